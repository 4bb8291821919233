package model

import "time"

type ReconciliationStatus string

const (
	StatusPending   ReconciliationStatus = "PENDING"
	StatusCompleted ReconciliationStatus = "COMPLETED"
	StatusFailed    ReconciliationStatus = "FAILED"
)

// DriverIdentity links the id minted at self-registration to the one the
// registry issues after approval.
type DriverIdentity struct {
	ProvisionalID string
	PermanentID   string
	Status        ReconciliationStatus
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DriverID is the id dependents currently reference.
func (d DriverIdentity) DriverID() string {
	if d.Status == StatusCompleted && d.PermanentID != "" {
		return d.PermanentID
	}
	return d.ProvisionalID
}

// SyncResult is the registry's answer to a registration request.
type SyncResult struct {
	ProvisionalID string
	PermanentID   string
	Success       bool
	ErrorMessage  string
}

type Outcome string

const (
	OutcomeCompleted        Outcome = "COMPLETED"
	OutcomeAlreadyCompleted Outcome = "ALREADY_COMPLETED"
	OutcomeFailed           Outcome = "FAILED"
	OutcomeIgnored          Outcome = "IGNORED"
	OutcomeConflict         Outcome = "CONFLICT"
)
