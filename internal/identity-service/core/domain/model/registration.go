package model

type Profile struct {
	Username      string
	FirstName     string
	LastName      string
	Email         string
	PhoneNumber   string
	LicenseNumber string
}

type Vehicle struct {
	VehicleType  string
	Brand        string
	Model        string
	Year         int
	LicensePlate string
	Color        string
}

// Document is a reference to an uploaded file; the file itself lives in
// blob storage.
type Document struct {
	Type    string
	FileURL string
}

// Registration is everything stored for a driver under its current id.
type Registration struct {
	DriverID  string
	Profile   Profile
	Vehicle   *Vehicle
	Documents []Document
}
