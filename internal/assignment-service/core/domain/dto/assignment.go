package dto

import "time"

// API Transfer data

type StatusUpdateRequest struct {
	AssignmentID string `json:"assignmentId"`
	Status       string `json:"status"`
	DriverID     string `json:"driverId,omitempty"`
}

type StatusUpdateResponse struct {
	AssignmentID string `json:"assignmentId"`
	DriverID     string `json:"driverId"`
	Result       string `json:"result"`
}

type CandidateDto struct {
	DriverID       string     `json:"driverId"`
	DistanceMeters float64    `json:"distanceMeters"`
	ResponseStatus string     `json:"responseStatus"`
	RespondedAt    *time.Time `json:"respondedAt,omitempty"`
}

type AssignmentDto struct {
	ID                 string         `json:"id"`
	OrderID            string         `json:"orderId"`
	Status             string         `json:"status"`
	CandidateDriverIDs []string       `json:"candidateDriverIds"`
	CommittedDriverID  *string        `json:"committedDriverId"`
	Attempt            int            `json:"attempt"`
	SearchRadiusMeters int            `json:"searchRadiusMeters"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	ExpiryTime         time.Time      `json:"expiryTime"`
	Candidates         []CandidateDto `json:"candidates,omitempty"`
	Result             string         `json:"result,omitempty"`
}

type OverviewDto struct {
	Timestamp            time.Time `json:"timestamp"`
	Since                time.Time `json:"since"`
	PendingAssignments   int       `json:"pendingAssignments"`
	AcceptedAssignments  int       `json:"acceptedAssignments"`
	CreatedToday         int       `json:"createdToday"`
	CompletedToday       int       `json:"completedToday"`
	ExpiredToday         int       `json:"expiredToday"`
	CancelledToday       int       `json:"cancelledToday"`
	RejectedOffersToday  int       `json:"rejectedOffersToday"`
	AverageAcceptSeconds float64   `json:"averageAcceptSeconds"`
	ConnectedDrivers     int       `json:"connectedDrivers"`
}
