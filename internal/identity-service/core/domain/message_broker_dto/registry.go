package messagebrokerdto

import "time"

type Document struct {
	Type    string `json:"type"`
	FileURL string `json:"fileUrl"`
}

// DriverRegistration asks the registry to issue a permanent id.
type DriverRegistration struct {
	ProvisionalID  string     `json:"provisionalId"`
	Username       string     `json:"username"`
	Email          string     `json:"email,omitempty"`
	PhoneNumber    string     `json:"phoneNumber"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	LicenseNumber  string     `json:"licenseNumber"`
	VehicleType    string     `json:"vehicleType,omitempty"`
	VehicleBrand   string     `json:"vehicleBrand,omitempty"`
	VehicleModel   string     `json:"vehicleModel,omitempty"`
	VehicleYear    int        `json:"vehicleYear,omitempty"`
	LicensePlate   string     `json:"licensePlate,omitempty"`
	VehicleColor   string     `json:"vehicleColor,omitempty"`
	Documents      []Document `json:"documents"`
	Attempt        int        `json:"attempt"`
	RetryTimestamp *time.Time `json:"retryTimestamp,omitempty"`
}

// DriverSyncResult is published by the registry once a registration is
// processed.
type DriverSyncResult struct {
	ProvisionalID string `json:"provisionalId"`
	PermanentID   string `json:"permanentId"`
	Success       bool   `json:"success"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}
