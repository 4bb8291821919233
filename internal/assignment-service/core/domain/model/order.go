package model

type Location struct {
	Lat float64
	Lng float64
}

type NearbyDriver struct {
	DriverID       string
	Location       Location
	DistanceMeters float64
	VehicleType    string
}

type NearbyQuery struct {
	Location     Location
	RadiusMeters int
	Limit        int
	VehicleType  string
}

type Place struct {
	ID       string
	Name     string
	Address  string
	Location Location
}

type OrderItem struct {
	Name     string
	Quantity int
	Price    float64
}

// OrderDetails is the read-only view of an order fetched from the order service.
type OrderDetails struct {
	OrderID     string
	Restaurant  Place
	Customer    Place
	Items       []OrderItem
	Total       float64
	DeliveryFee float64
	VehicleType string
}
