package services

import (
	"context"
	"time"

	messagebrokerdto "food-dispatch/internal/assignment-service/core/domain/message_broker_dto"
	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/mylogger"
)

// ExpirySweeper closes assignments whose offer window elapsed and finishes
// commits whose completion was never published. Every step is conditional,
// so overlapping runs and in-flight responses are safe.
type ExpirySweeper struct {
	ledger    *AssignmentLedger
	publisher ports.IDispatchPublisher
	now       Clock
	log       mylogger.Logger
}

func NewExpirySweeper(ledger *AssignmentLedger, publisher ports.IDispatchPublisher, now Clock, log mylogger.Logger) *ExpirySweeper {
	if now == nil {
		now = time.Now
	}
	return &ExpirySweeper{
		ledger:    ledger,
		publisher: publisher,
		now:       now,
		log:       log,
	}
}

func (s *ExpirySweeper) Sweep(ctx context.Context) error {
	log := s.log.Action("expiry_sweep")

	expired, err := s.ledger.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	for _, a := range expired {
		s.publishFailed(ctx, a, log)
	}

	stale, err := s.ledger.StaleAccepted(ctx)
	if err != nil {
		return err
	}
	for _, a := range stale {
		s.republishCompleted(ctx, a, log)
	}

	log.Info("sweep finished", "expired", len(expired), "completions_retried", len(stale))
	return nil
}

func (s *ExpirySweeper) publishFailed(ctx context.Context, a model.Assignment, log mylogger.Logger) {
	msg := messagebrokerdto.AssignmentFailed{
		AssignmentID: a.ID,
		OrderID:      a.OrderID,
		Reason:       string(model.ReasonOfferWindowElapsed),
		Attempt:      a.Attempt,
		FailedAt:     s.now().UTC(),
	}
	if err := s.publisher.PublishFailed(ctx, msg); err != nil {
		log.Error("cannot publish expiry", err, "assignment_id", a.ID)
		return
	}
	log.Info("assignment expired", "assignment_id", a.ID, "order_id", a.OrderID)
}

func (s *ExpirySweeper) republishCompleted(ctx context.Context, a model.Assignment, log mylogger.Logger) {
	msg := messagebrokerdto.AssignmentCompleted{
		AssignmentID: a.ID,
		OrderID:      a.OrderID,
		DriverID:     a.CommittedDriverID,
		CompletedAt:  s.now().UTC(),
	}
	if err := s.publisher.PublishCompleted(ctx, msg); err != nil {
		log.Error("cannot republish completion", err, "assignment_id", a.ID)
		return
	}
	if _, err := s.ledger.Complete(ctx, a.ID); err != nil {
		log.Error("cannot record completion", err, "assignment_id", a.ID)
		return
	}
	log.Info("completion republished", "assignment_id", a.ID, "driver_id", a.CommittedDriverID)
}
