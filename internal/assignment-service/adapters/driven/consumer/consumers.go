package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	messagebrokerdto "food-dispatch/internal/assignment-service/core/domain/message_broker_dto"
	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/bm"
	"food-dispatch/internal/mylogger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrderCreatedQueue    = "assignment.order_created"
	DriverResponsesQueue = "assignment.driver_responses"

	prefetch       = 10
	handlerTimeout = 30 * time.Second
)

var errMalformed = errors.New("malformed message")

// Consumers wires the inbound channels of the assignment service.
type Consumers struct {
	orchestrator ports.IOrchestrator
	resolver     ports.IResponseResolver
	log          mylogger.Logger
}

func New(o ports.IOrchestrator, r ports.IResponseResolver, log mylogger.Logger) *Consumers {
	return &Consumers{orchestrator: o, resolver: r, log: log}
}

// Register binds the order.created and driver.response.* queues on rt.
func (c *Consumers) Register(rt *bm.Router) {
	opts := bm.ConsumeOptions{Prefetch: prefetch, QueueDurable: true}
	rt.Handle(bm.Binding{
		Exchange:   bm.OrderExchange,
		Queue:      OrderCreatedQueue,
		BindingKey: bm.OrderCreatedKey,
	}, opts, c.OrderCreated)
	rt.Handle(bm.Binding{
		Exchange:   bm.DriverExchange,
		Queue:      DriverResponsesQueue,
		BindingKey: bm.DriverResponsePrefix + "*",
	}, opts, c.DriverResponse)
}

// OrderCreated starts dispatch for a new order. Orders that already have an
// active assignment or vanished from the order service are acked. When the
// Directory or the order service is down the message is requeued once; if it
// fails again the order is abandoned with a failure signal naming the
// dependency.
func (c *Consumers) OrderCreated(ctx context.Context, msg amqp.Delivery) error {
	log := c.log.Action("order_created")

	var m messagebrokerdto.OrderCreated
	if err := json.Unmarshal(msg.Body, &m); err != nil || m.OrderID == "" {
		return fmt.Errorf("%w: %s", errMalformed, string(msg.Body))
	}
	log = log.With("order_id", m.OrderID)

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	a, err := c.orchestrator.ProcessOrder(ctx, m.OrderID)
	switch {
	case err == nil:
		log.Info("order dispatched", "assignment_id", a.ID, "status", string(a.Status))
		return nil
	case errors.Is(err, myerrors.ErrActiveAssignmentExists):
		log.Info("order already has an active assignment")
		return nil
	case errors.Is(err, myerrors.ErrOrderNotFound):
		log.Warn("order not found, skipping")
		return nil
	case errors.Is(err, myerrors.ErrDirectoryUnavailable),
		errors.Is(err, myerrors.ErrOrderServiceDown):
		if !msg.Redelivered {
			log.Warn("dependency unavailable, retrying order", "error", err.Error())
			return bm.Transient(err)
		}
		return c.abandon(ctx, m.OrderID, unavailableReason(err), log)
	default:
		return bm.Transient(err)
	}
}

func (c *Consumers) abandon(ctx context.Context, orderID string, reason model.FailureReason, log mylogger.Logger) error {
	a, err := c.orchestrator.AbandonOrder(ctx, orderID, reason)
	switch {
	case err == nil:
		log.Warn("order abandoned", "assignment_id", a.ID, "reason", string(reason))
		return nil
	case errors.Is(err, myerrors.ErrActiveAssignmentExists):
		log.Info("order already has an active assignment")
		return nil
	default:
		return bm.Transient(err)
	}
}

func unavailableReason(err error) model.FailureReason {
	if errors.Is(err, myerrors.ErrDirectoryUnavailable) {
		return model.ReasonDirectoryUnavailable
	}
	return model.ReasonOrderServiceUnavailable
}

// DriverResponse applies a driver's answer published on driver.response.{orderId}.
func (c *Consumers) DriverResponse(ctx context.Context, msg amqp.Delivery) error {
	log := c.log.Action("driver_response")

	var m messagebrokerdto.DriverResponse
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	if m.OrderID == "" {
		m.OrderID = strings.TrimPrefix(msg.RoutingKey, bm.DriverResponsePrefix)
	}
	if m.OrderID == "" || m.DriverID == "" {
		return fmt.Errorf("%w: missing orderId or driverId", errMalformed)
	}
	log = log.With("order_id", m.OrderID, "driver_id", m.DriverID)

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	decision := model.Decision(strings.ToUpper(strings.TrimSpace(m.Decision)))
	result, err := c.resolver.HandleResponse(ctx, m.OrderID, m.DriverID, decision)
	switch {
	case err == nil:
		log.Info("driver response applied", "result", string(result))
		return nil
	case errors.Is(err, myerrors.ErrNotCandidate),
		errors.Is(err, myerrors.ErrAssignmentNotFound):
		log.Warn("driver response ignored", "error", err.Error())
		return nil
	case errors.Is(err, myerrors.ErrInvalidDecision):
		return fmt.Errorf("%w: %w", errMalformed, err)
	default:
		return bm.Transient(err)
	}
}
