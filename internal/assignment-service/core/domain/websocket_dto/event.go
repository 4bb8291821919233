package websocketdto

import "encoding/json"

const (
	TypeAuth          = "auth"
	TypeOrderOffer    = "order_offer"
	TypeOfferResponse = "offer_response"
	TypeOfferResult   = "offer_result"
	TypeError         = "error"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Auth struct {
	Token string `json:"token"`
}

// Driver → server answer to an order_offer.
type OfferResponse struct {
	AssignmentID string `json:"assignmentId"`
	Decision     string `json:"decision"`
}

// Server → driver outcome of an offer_response.
type OfferResult struct {
	AssignmentID string `json:"assignmentId"`
	Result       string `json:"result"`
}

type Error struct {
	Message string `json:"message"`
}

// NewEvent marshals data into an event of the given type.
func NewEvent(typ string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Data: raw}, nil
}
