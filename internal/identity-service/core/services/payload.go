package services

import (
	"time"

	messagebrokerdto "food-dispatch/internal/identity-service/core/domain/message_broker_dto"
	"food-dispatch/internal/identity-service/core/domain/model"
)

// registrationMessage builds the registry request from what is stored for
// the driver. retryAt is nil on the first attempt.
func registrationMessage(provisionalID string, reg model.Registration, attempt int, retryAt *time.Time) messagebrokerdto.DriverRegistration {
	msg := messagebrokerdto.DriverRegistration{
		ProvisionalID:  provisionalID,
		Username:       reg.Profile.Username,
		Email:          reg.Profile.Email,
		PhoneNumber:    reg.Profile.PhoneNumber,
		FirstName:      reg.Profile.FirstName,
		LastName:       reg.Profile.LastName,
		LicenseNumber:  reg.Profile.LicenseNumber,
		Documents:      make([]messagebrokerdto.Document, 0, len(reg.Documents)),
		Attempt:        attempt,
		RetryTimestamp: retryAt,
	}
	if v := reg.Vehicle; v != nil {
		msg.VehicleType = v.VehicleType
		msg.VehicleBrand = v.Brand
		msg.VehicleModel = v.Model
		msg.VehicleYear = v.Year
		msg.LicensePlate = v.LicensePlate
		msg.VehicleColor = v.Color
	}
	for _, d := range reg.Documents {
		msg.Documents = append(msg.Documents, messagebrokerdto.Document{Type: d.Type, FileURL: d.FileURL})
	}
	return msg
}
