package model

import "time"

type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "PENDING"
	StatusAccepted  AssignmentStatus = "ACCEPTED"
	StatusCompleted AssignmentStatus = "COMPLETED"
	StatusRejected  AssignmentStatus = "REJECTED"
	StatusExpired   AssignmentStatus = "EXPIRED"
	StatusCancelled AssignmentStatus = "CANCELLED"
)

// IsActive reports whether the assignment still blocks a new one for its order.
func (s AssignmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusAccepted
}

func (s AssignmentStatus) HasCommittedDriver() bool {
	return s == StatusAccepted || s == StatusCompleted
}

type ResponseStatus string

const (
	ResponsePending  ResponseStatus = "PENDING"
	ResponseAccepted ResponseStatus = "ACCEPTED"
	ResponseRejected ResponseStatus = "REJECTED"
	ResponseExpired  ResponseStatus = "EXPIRED"
)

type Decision string

const (
	DecisionAccepted Decision = "ACCEPTED"
	DecisionRejected Decision = "REJECTED"
)

func (d Decision) Valid() bool {
	return d == DecisionAccepted || d == DecisionRejected
}

// ResponseResult is what a responding driver is told.
type ResponseResult string

const (
	ResultCommitted       ResponseResult = "COMMITTED"
	ResultAlreadyResolved ResponseResult = "ALREADY_RESOLVED"
	ResultRecorded        ResponseResult = "RECORDED"
)

type FailureReason string

const (
	ReasonNoDriversAvailable FailureReason = "NO_DRIVERS_AVAILABLE"
	ReasonAllRejected        FailureReason = "ALL_REJECTED"
	ReasonOfferWindowElapsed FailureReason = "OFFER_WINDOW_ELAPSED"
	// The order could not be dispatched because a dependency stayed down.
	ReasonDirectoryUnavailable    FailureReason = "DIRECTORY_UNAVAILABLE"
	ReasonOrderServiceUnavailable FailureReason = "ORDER_SERVICE_UNAVAILABLE"
)

type Assignment struct {
	ID                 string
	OrderID            string
	CandidateDriverIDs []string
	CommittedDriverID  string // empty unless ACCEPTED or COMPLETED
	Status             AssignmentStatus
	Attempt            int
	SearchRadiusMeters int
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ExpiryTime         time.Time
}

func (a Assignment) HasCandidate(driverID string) bool {
	for _, id := range a.CandidateDriverIDs {
		if id == driverID {
			return true
		}
	}
	return false
}

type Candidate struct {
	AssignmentID   string
	DriverID       string
	DistanceMeters float64
	ResponseStatus ResponseStatus
	RespondedAt    *time.Time
}

// SearchAttempt describes which selection round produced an assignment.
type SearchAttempt struct {
	Number       int
	RadiusMeters int
}
