package messagebrokerdto

import "time"

// Order Created → order_topic exchange → order.created
type OrderCreated struct {
	OrderID   string    `json:"orderId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Assignment Completed ← order_topic exchange ← assignment.completed
type AssignmentCompleted struct {
	AssignmentID string    `json:"assignmentId"`
	OrderID      string    `json:"orderId"`
	DriverID     string    `json:"driverId"`
	CompletedAt  time.Time `json:"completedAt"`
}

// Assignment Failed ← order_topic exchange ← assignment.failed
type AssignmentFailed struct {
	AssignmentID string    `json:"assignmentId"`
	OrderID      string    `json:"orderId"`
	Reason       string    `json:"reason"`
	Attempt      int       `json:"attempt"`
	FailedAt     time.Time `json:"failedAt"`
}

// Assignment Cancelled ← order_topic exchange ← assignment.cancelled
type AssignmentCancelled struct {
	AssignmentID string    `json:"assignmentId"`
	OrderID      string    `json:"orderId"`
	CancelledAt  time.Time `json:"cancelledAt"`
}
