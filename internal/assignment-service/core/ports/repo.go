package ports

import (
	"context"
	"time"

	"food-dispatch/internal/assignment-service/core/domain/model"
)

// IAssignmentRepo persists assignments and their candidates. Every mutating
// method is a conditional update that reports whether a row changed.
type IAssignmentRepo interface {
	// Insert stores the assignment and its candidate rows in one transaction.
	// It returns myerrors.ErrActiveAssignmentExists when the order already has
	// an active assignment.
	Insert(ctx context.Context, a model.Assignment, candidates []model.Candidate) error
	HasActive(ctx context.Context, orderID string) (bool, error)
	GetByID(ctx context.Context, id string) (model.Assignment, error)
	// ListByOrder and ListByDriver return newest first.
	ListByOrder(ctx context.Context, orderID string) ([]model.Assignment, error)
	ListByDriver(ctx context.Context, driverID string) ([]model.Assignment, error)
	ListCandidates(ctx context.Context, assignmentID string) ([]model.Candidate, error)
	GetCandidate(ctx context.Context, assignmentID, driverID string) (model.Candidate, error)

	// CommitDriver sets PENDING → ACCEPTED for driverID if it is a still
	// pending candidate and the offer window is open at now.
	CommitDriver(ctx context.Context, assignmentID, driverID string, now time.Time) (bool, error)
	// Transition moves the assignment to `to` if its status is one of from.
	Transition(ctx context.Context, assignmentID string, from []model.AssignmentStatus, to model.AssignmentStatus, now time.Time) (bool, error)
	// ExpireOverdue moves every PENDING assignment with expiry_time <= now to
	// EXPIRED and returns the rows it changed.
	ExpireOverdue(ctx context.Context, now time.Time) ([]model.Assignment, error)
	ListStaleAccepted(ctx context.Context, updatedBefore time.Time) ([]model.Assignment, error)

	// SetCandidateResponse moves a PENDING candidate to `to`.
	SetCandidateResponse(ctx context.Context, assignmentID, driverID string, to model.ResponseStatus, now time.Time) (bool, error)
	// ClosePendingCandidates moves every PENDING candidate of the assignment to `to`.
	ClosePendingCandidates(ctx context.Context, assignmentID string, to model.ResponseStatus, now time.Time) (int64, error)
}

// IOverviewRepo aggregates ledger counters for the operations overview.
type IOverviewRepo interface {
	Overview(ctx context.Context, since time.Time) (model.Overview, error)
}
