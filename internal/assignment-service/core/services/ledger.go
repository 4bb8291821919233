package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/metrics"
	"food-dispatch/internal/mylogger"

	"github.com/google/uuid"
)

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

// AssignmentLedger owns every status change of an assignment. Each change is
// a single conditional update, so concurrent callers never both win.
type AssignmentLedger struct {
	repo        ports.IAssignmentRepo
	offerWindow time.Duration
	now         Clock
	metrics     *metrics.Dispatch
	log         mylogger.Logger
}

var _ ports.IAssignmentReader = (*AssignmentLedger)(nil)

func NewAssignmentLedger(repo ports.IAssignmentRepo, offerWindow time.Duration, now Clock, m *metrics.Dispatch, log mylogger.Logger) *AssignmentLedger {
	if now == nil {
		now = time.Now
	}
	return &AssignmentLedger{
		repo:        repo,
		offerWindow: offerWindow,
		now:         now,
		metrics:     m,
		log:         log,
	}
}

// CreateAssignment records a new assignment for orderID. With no candidates
// the assignment is stored already EXPIRED and has no candidate rows.
func (l *AssignmentLedger) CreateAssignment(ctx context.Context, orderID string, candidates []model.Candidate, search model.SearchAttempt) (model.Assignment, error) {
	log := l.log.Action("create_assignment").With("order_id", orderID)

	active, err := l.repo.HasActive(ctx, orderID)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("check active assignment: %w", err)
	}
	if active {
		return model.Assignment{}, myerrors.ErrActiveAssignmentExists
	}

	now := l.now().UTC()
	a := model.Assignment{
		ID:                 uuid.NewString(),
		OrderID:            orderID,
		CandidateDriverIDs: make([]string, 0, len(candidates)),
		Status:             model.StatusPending,
		Attempt:            search.Number,
		SearchRadiusMeters: search.RadiusMeters,
		CreatedAt:          now,
		UpdatedAt:          now,
		ExpiryTime:         now.Add(l.offerWindow),
	}
	rows := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		a.CandidateDriverIDs = append(a.CandidateDriverIDs, c.DriverID)
		rows = append(rows, model.Candidate{
			AssignmentID:   a.ID,
			DriverID:       c.DriverID,
			DistanceMeters: c.DistanceMeters,
			ResponseStatus: model.ResponsePending,
		})
	}
	if len(candidates) == 0 {
		a.Status = model.StatusExpired
		a.ExpiryTime = now
	}

	if err := l.repo.Insert(ctx, a, rows); err != nil {
		if errors.Is(err, myerrors.ErrActiveAssignmentExists) {
			return model.Assignment{}, err
		}
		return model.Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}

	l.metrics.AssignmentsCreated.WithLabelValues(string(a.Status)).Inc()
	log.Info("assignment created",
		"assignment_id", a.ID,
		"status", a.Status,
		"candidates", len(rows),
		"attempt", a.Attempt,
		"expiry_time", a.ExpiryTime.Format(time.RFC3339),
	)
	return a, nil
}

// Commit sets the winning driver. false means another response already
// resolved the assignment or the window closed; it is not an error.
func (l *AssignmentLedger) Commit(ctx context.Context, assignmentID, driverID string) (bool, error) {
	ok, err := l.repo.CommitDriver(ctx, assignmentID, driverID, l.now().UTC())
	if err != nil {
		return false, fmt.Errorf("commit driver: %w", err)
	}
	return ok, nil
}

// Expire moves a PENDING assignment to EXPIRED and closes its untouched
// candidates. It is a no-op on any other status.
func (l *AssignmentLedger) Expire(ctx context.Context, assignmentID string) (bool, error) {
	now := l.now().UTC()
	ok, err := l.repo.Transition(ctx, assignmentID, []model.AssignmentStatus{model.StatusPending}, model.StatusExpired, now)
	if err != nil {
		return false, fmt.Errorf("expire assignment: %w", err)
	}
	if !ok {
		return false, nil
	}
	if _, err := l.repo.ClosePendingCandidates(ctx, assignmentID, model.ResponseExpired, now); err != nil {
		return true, fmt.Errorf("close candidates: %w", err)
	}
	return true, nil
}

// ExpireOverdue expires every PENDING assignment past its expiry time and
// returns the ones this call transitioned.
func (l *AssignmentLedger) ExpireOverdue(ctx context.Context) ([]model.Assignment, error) {
	now := l.now().UTC()
	expired, err := l.repo.ExpireOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("expire overdue: %w", err)
	}
	for _, a := range expired {
		if _, err := l.repo.ClosePendingCandidates(ctx, a.ID, model.ResponseExpired, now); err != nil {
			l.log.Action("expire_overdue").Error("cannot close candidates", err, "assignment_id", a.ID)
		}
	}
	l.metrics.AssignmentsExpired.Add(float64(len(expired)))
	return expired, nil
}

// Cancel moves a PENDING or ACCEPTED assignment to CANCELLED.
func (l *AssignmentLedger) Cancel(ctx context.Context, assignmentID string) (bool, error) {
	now := l.now().UTC()
	ok, err := l.repo.Transition(ctx, assignmentID,
		[]model.AssignmentStatus{model.StatusPending, model.StatusAccepted}, model.StatusCancelled, now)
	if err != nil {
		return false, fmt.Errorf("cancel assignment: %w", err)
	}
	if ok {
		if _, err := l.repo.ClosePendingCandidates(ctx, assignmentID, model.ResponseExpired, now); err != nil {
			return true, fmt.Errorf("close candidates: %w", err)
		}
	}
	return ok, nil
}

// Complete records that AssignmentCompleted was published.
func (l *AssignmentLedger) Complete(ctx context.Context, assignmentID string) (bool, error) {
	ok, err := l.repo.Transition(ctx, assignmentID,
		[]model.AssignmentStatus{model.StatusAccepted}, model.StatusCompleted, l.now().UTC())
	if err != nil {
		return false, fmt.Errorf("complete assignment: %w", err)
	}
	return ok, nil
}

// StaleAccepted lists ACCEPTED assignments whose completion was not recorded
// within one offer window.
func (l *AssignmentLedger) StaleAccepted(ctx context.Context) ([]model.Assignment, error) {
	return l.repo.ListStaleAccepted(ctx, l.now().UTC().Add(-l.offerWindow))
}

func (l *AssignmentLedger) HasActive(ctx context.Context, orderID string) (bool, error) {
	return l.repo.HasActive(ctx, orderID)
}

func (l *AssignmentLedger) Get(ctx context.Context, id string) (model.Assignment, error) {
	return l.repo.GetByID(ctx, id)
}

func (l *AssignmentLedger) Candidates(ctx context.Context, assignmentID string) ([]model.Candidate, error) {
	return l.repo.ListCandidates(ctx, assignmentID)
}

// LatestForOrder returns the most recent assignment of the order.
func (l *AssignmentLedger) LatestForOrder(ctx context.Context, orderID string) (model.Assignment, error) {
	list, err := l.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return model.Assignment{}, err
	}
	if len(list) == 0 {
		return model.Assignment{}, myerrors.ErrAssignmentNotFound
	}
	return list[0], nil
}

func (l *AssignmentLedger) ListByOrder(ctx context.Context, orderID string) ([]model.Assignment, error) {
	return l.repo.ListByOrder(ctx, orderID)
}

func (l *AssignmentLedger) ListByDriver(ctx context.Context, driverID string) ([]model.Assignment, error) {
	return l.repo.ListByDriver(ctx, driverID)
}
