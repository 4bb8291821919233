package dto

import "time"

type VehicleDto struct {
	Type         string `json:"type"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	LicensePlate string `json:"licensePlate"`
	Color        string `json:"color"`
}

type DocumentDto struct {
	Type    string `json:"type"`
	FileURL string `json:"fileUrl"`
}

type RegisterRequest struct {
	Username      string        `json:"username"`
	FirstName     string        `json:"firstName"`
	LastName      string        `json:"lastName"`
	PhoneNumber   string        `json:"phoneNumber"`
	Email         string        `json:"email"`
	LicenseNumber string        `json:"licenseNumber"`
	Vehicle       *VehicleDto   `json:"vehicle"`
	Documents     []DocumentDto `json:"documents"`
}

type IdentityDto struct {
	ProvisionalID        string    `json:"provisionalId"`
	PermanentID          *string   `json:"permanentId"`
	DriverID             string    `json:"driverId"`
	ReconciliationStatus string    `json:"reconciliationStatus"`
	Attempts             int       `json:"attempts"`
	LastError            string    `json:"lastError,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
