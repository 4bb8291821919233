package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	messagebrokerdto "food-dispatch/internal/assignment-service/core/domain/message_broker_dto"
	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/metrics"
	"food-dispatch/internal/mylogger"
)

// ExhaustionHandler is told when every candidate rejected an assignment.
type ExhaustionHandler interface {
	OnAllRejected(ctx context.Context, a model.Assignment, rejected []string)
}

// ResponseResolver applies driver responses. Losing a race is reported as a
// result value, never as an error.
type ResponseResolver struct {
	ledger     *AssignmentLedger
	repo       ports.IAssignmentRepo
	publisher  ports.IDispatchPublisher
	exhaustion ExhaustionHandler
	now        Clock
	metrics    *metrics.Dispatch
	log        mylogger.Logger
}

var _ ports.IResponseResolver = (*ResponseResolver)(nil)

func NewResponseResolver(
	ledger *AssignmentLedger,
	repo ports.IAssignmentRepo,
	publisher ports.IDispatchPublisher,
	exhaustion ExhaustionHandler,
	now Clock,
	m *metrics.Dispatch,
	log mylogger.Logger,
) *ResponseResolver {
	if now == nil {
		now = time.Now
	}
	return &ResponseResolver{
		ledger:     ledger,
		repo:       repo,
		publisher:  publisher,
		exhaustion: exhaustion,
		now:        now,
		metrics:    m,
		log:        log,
	}
}

// HandleResponse applies a response addressed by order id. It resolves
// against the order's most recent assignment.
func (r *ResponseResolver) HandleResponse(ctx context.Context, orderID, driverID string, decision model.Decision) (model.ResponseResult, error) {
	if !decision.Valid() {
		return "", myerrors.ErrInvalidDecision
	}
	a, err := r.ledger.LatestForOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return r.handle(ctx, a, driverID, decision)
}

// HandleStatusUpdate applies a response addressed by assignment id.
func (r *ResponseResolver) HandleStatusUpdate(ctx context.Context, assignmentID, driverID string, decision model.Decision) (model.ResponseResult, error) {
	if !decision.Valid() {
		return "", myerrors.ErrInvalidDecision
	}
	a, err := r.ledger.Get(ctx, assignmentID)
	if err != nil {
		return "", err
	}
	return r.handle(ctx, a, driverID, decision)
}

func (r *ResponseResolver) handle(ctx context.Context, a model.Assignment, driverID string, decision model.Decision) (model.ResponseResult, error) {
	cand, err := r.repo.GetCandidate(ctx, a.ID, driverID)
	if err != nil {
		return "", err
	}

	if decision == model.DecisionAccepted {
		return r.accept(ctx, a, driverID)
	}
	return r.reject(ctx, a, cand)
}

func (r *ResponseResolver) accept(ctx context.Context, a model.Assignment, driverID string) (model.ResponseResult, error) {
	log := r.log.Action("accept").With("assignment_id", a.ID, "order_id", a.OrderID, "driver_id", driverID)

	won, err := r.ledger.Commit(ctx, a.ID, driverID)
	if err != nil {
		return "", err
	}
	if !won {
		cur, err := r.ledger.Get(ctx, a.ID)
		if err != nil {
			return "", err
		}
		if cur.Status.HasCommittedDriver() && cur.CommittedDriverID == driverID {
			r.metrics.CommitOutcomes.WithLabelValues("repeated").Inc()
			return model.ResultCommitted, nil
		}
		r.metrics.CommitOutcomes.WithLabelValues("lost").Inc()
		log.Info("accept arrived after resolution", "status", cur.Status)
		return model.ResultAlreadyResolved, nil
	}

	r.metrics.CommitOutcomes.WithLabelValues("won").Inc()
	now := r.now().UTC()
	if _, err := r.repo.SetCandidateResponse(ctx, a.ID, driverID, model.ResponseAccepted, now); err != nil {
		log.Error("cannot mark winning candidate", err)
	}
	if n, err := r.repo.ClosePendingCandidates(ctx, a.ID, model.ResponseRejected, now); err != nil {
		log.Error("cannot close remaining candidates", err)
	} else if n > 0 {
		log.Debug("remaining candidates rejected", "count", n)
	}

	r.completeCommitted(ctx, a.ID, a.OrderID, driverID, log)
	log.Info("driver committed")
	return model.ResultCommitted, nil
}

// completeCommitted publishes assignment.completed and then records it. When
// the publish fails the row stays ACCEPTED and the sweep retries it.
func (r *ResponseResolver) completeCommitted(ctx context.Context, assignmentID, orderID, driverID string, log mylogger.Logger) {
	msg := messagebrokerdto.AssignmentCompleted{
		AssignmentID: assignmentID,
		OrderID:      orderID,
		DriverID:     driverID,
		CompletedAt:  r.now().UTC(),
	}
	if err := r.publisher.PublishCompleted(ctx, msg); err != nil {
		log.Error("cannot publish completion, left for the sweep", err)
		return
	}
	if _, err := r.ledger.Complete(ctx, assignmentID); err != nil {
		log.Error("cannot record completion", err)
	}
}

func (r *ResponseResolver) reject(ctx context.Context, a model.Assignment, cand model.Candidate) (model.ResponseResult, error) {
	log := r.log.Action("reject").With("assignment_id", a.ID, "order_id", a.OrderID, "driver_id", cand.DriverID)

	changed, err := r.repo.SetCandidateResponse(ctx, a.ID, cand.DriverID, model.ResponseRejected, r.now().UTC())
	if err != nil {
		return "", fmt.Errorf("record rejection: %w", err)
	}
	if !changed {
		if cand.ResponseStatus == model.ResponseRejected {
			return model.ResultRecorded, nil
		}
		return model.ResultAlreadyResolved, nil
	}
	log.Info("rejection recorded")

	candidates, err := r.repo.ListCandidates(ctx, a.ID)
	if err != nil {
		return model.ResultRecorded, fmt.Errorf("list candidates: %w", err)
	}
	rejected := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.ResponseStatus != model.ResponseRejected {
			return model.ResultRecorded, nil
		}
		rejected = append(rejected, c.DriverID)
	}

	expired, err := r.ledger.Expire(ctx, a.ID)
	if err != nil && !errors.Is(err, myerrors.ErrAssignmentNotFound) {
		log.Error("cannot expire fully rejected assignment", err)
		return model.ResultRecorded, nil
	}
	if expired {
		log.Info("all candidates rejected, assignment expired early")
		r.exhaustion.OnAllRejected(ctx, a, rejected)
	}
	return model.ResultRecorded, nil
}
