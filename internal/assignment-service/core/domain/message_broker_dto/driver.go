package messagebrokerdto

import "time"

type Coordinates struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order Offer ← driver_topic exchange ← driver.notification.{driverId}
// The same payload is pushed over the driver websocket as an order_offer event.
type OrderOffer struct {
	AssignmentID   string      `json:"assignmentId"`
	OrderID        string      `json:"orderId"`
	OrderNumber    string      `json:"orderNumber"`
	DriverID       string      `json:"driverId"`
	RestaurantName string      `json:"restaurantName"`
	Pickup         Coordinates `json:"pickup"`
	Dropoff        Coordinates `json:"dropoff"`
	Items          []Item      `json:"items"`
	Payment        float64     `json:"payment"`
	DeliveryFee    float64     `json:"deliveryFee"`
	Currency       string      `json:"currency"`
	DistanceMeters float64     `json:"distanceMeters"`
	ExpiryTime     time.Time   `json:"expiryTime"`
}

// Driver Response → driver_topic exchange → driver.response.{orderId}
type DriverResponse struct {
	OrderID  string `json:"orderId"`
	DriverID string `json:"driverId"`
	Decision string `json:"decision"`
}
