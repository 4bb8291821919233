package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-dispatch/internal/bm"
	messagebrokerdto "food-dispatch/internal/identity-service/core/domain/message_broker_dto"
	"food-dispatch/internal/identity-service/core/domain/model"
	"food-dispatch/internal/identity-service/core/myerrors"
	"food-dispatch/internal/identity-service/core/ports"
	"food-dispatch/internal/mylogger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	SyncResultsQueue = "identity.sync_results"

	prefetch       = 10
	handlerTimeout = 30 * time.Second
)

var errMalformed = errors.New("malformed message")

type Consumers struct {
	reconciler ports.IReconciler
	log        mylogger.Logger
}

func New(r ports.IReconciler, log mylogger.Logger) *Consumers {
	return &Consumers{reconciler: r, log: log}
}

func (c *Consumers) Register(rt *bm.Router) {
	rt.Handle(bm.Binding{
		Exchange:   bm.RegistryExchange,
		Queue:      SyncResultsQueue,
		BindingKey: bm.DriverSyncResultKey,
	}, bm.ConsumeOptions{Prefetch: prefetch, QueueDurable: true}, c.SyncResult)
}

// SyncResult applies the registry's answer. Results for unknown identities
// are acked and dropped. Storage failures are transient: the message is
// requeued once, and a result lost after that is recovered by the retry
// sweep republishing the stale PENDING identity.
func (c *Consumers) SyncResult(ctx context.Context, msg amqp.Delivery) error {
	log := c.log.Action("sync_result")

	var m messagebrokerdto.DriverSyncResult
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	outcome, err := c.reconciler.OnRegistrationResult(ctx, model.SyncResult{
		ProvisionalID: m.ProvisionalID,
		PermanentID:   m.PermanentID,
		Success:       m.Success,
		ErrorMessage:  m.ErrorMessage,
	})
	switch {
	case err == nil:
		log.Debug("sync result applied", "provisional_id", m.ProvisionalID, "outcome", string(outcome))
		return nil
	case errors.Is(err, myerrors.ErrInvalidResult):
		return fmt.Errorf("%w: %w", errMalformed, err)
	case errors.Is(err, myerrors.ErrIdentityNotFound):
		log.Warn("sync result for unknown identity", "provisional_id", m.ProvisionalID)
		return nil
	default:
		return bm.Transient(err)
	}
}
