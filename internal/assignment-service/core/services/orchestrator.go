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
	"food-dispatch/internal/mylogger"
)

type DispatchPolicy struct {
	SearchRadiusMeters  int
	WidenedRadiusMeters int
	WidenOnExhaustion   bool
	VehicleClass        string
	Currency            string
}

// Orchestrator drives one order through selection, the ledger and fan-out.
type Orchestrator struct {
	orders    ports.IOrderDetails
	selector  *CandidateSelector
	ledger    *AssignmentLedger
	fanout    *NotificationFanout
	publisher ports.IDispatchPublisher
	policy    DispatchPolicy
	now       Clock
	log       mylogger.Logger
}

var _ ports.IOrchestrator = (*Orchestrator)(nil)

func NewOrchestrator(
	orders ports.IOrderDetails,
	selector *CandidateSelector,
	ledger *AssignmentLedger,
	fanout *NotificationFanout,
	publisher ports.IDispatchPublisher,
	policy DispatchPolicy,
	now Clock,
	log mylogger.Logger,
) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		orders:    orders,
		selector:  selector,
		ledger:    ledger,
		fanout:    fanout,
		publisher: publisher,
		policy:    policy,
		now:       now,
		log:       log,
	}
}

// ProcessOrder creates the first assignment for orderID and offers it to the
// selected candidates. With no candidates the returned assignment is EXPIRED
// and an assignment.failed signal has been published.
func (o *Orchestrator) ProcessOrder(ctx context.Context, orderID string) (model.Assignment, error) {
	active, err := o.ledger.HasActive(ctx, orderID)
	if err != nil {
		return model.Assignment{}, err
	}
	if active {
		return model.Assignment{}, myerrors.ErrActiveAssignmentExists
	}

	details, err := o.orders.GetOrderDetails(ctx, orderID)
	if err != nil {
		return model.Assignment{}, err
	}

	return o.dispatch(ctx, details, model.SearchAttempt{Number: 1, RadiusMeters: o.policy.SearchRadiusMeters}, nil)
}

// AbandonOrder records orderID as unassignable without selecting anyone: an
// EXPIRED assignment without candidates is stored and assignment.failed is
// published with reason. Like ProcessOrder it refuses an order that has an
// active assignment.
func (o *Orchestrator) AbandonOrder(ctx context.Context, orderID string, reason model.FailureReason) (model.Assignment, error) {
	active, err := o.ledger.HasActive(ctx, orderID)
	if err != nil {
		return model.Assignment{}, err
	}
	if active {
		return model.Assignment{}, myerrors.ErrActiveAssignmentExists
	}

	a, err := o.ledger.CreateAssignment(ctx, orderID, nil, model.SearchAttempt{Number: 1, RadiusMeters: o.policy.SearchRadiusMeters})
	if err != nil {
		return model.Assignment{}, err
	}
	o.log.Action("abandon_order").Warn("order abandoned", "order_id", orderID, "assignment_id", a.ID, "reason", reason)
	o.publishFailed(ctx, a, reason)
	return a, nil
}

// OnAllRejected runs after every candidate of a now expired assignment
// rejected it. The first attempt is retried once with the widened radius,
// otherwise the order is reported unassignable.
func (o *Orchestrator) OnAllRejected(ctx context.Context, a model.Assignment, rejected []string) {
	log := o.log.Action("all_rejected").With("assignment_id", a.ID, "order_id", a.OrderID)

	if !o.policy.WidenOnExhaustion || a.Attempt > 1 {
		o.publishFailed(ctx, a, model.ReasonAllRejected)
		return
	}

	details, err := o.orders.GetOrderDetails(ctx, a.OrderID)
	if err != nil {
		log.Error("cannot reload order for widened search", err)
		o.publishFailed(ctx, a, model.ReasonAllRejected)
		return
	}

	next, err := o.dispatch(ctx, details, model.SearchAttempt{
		Number:       a.Attempt + 1,
		RadiusMeters: o.policy.WidenedRadiusMeters,
	}, rejected)
	if err != nil {
		if errors.Is(err, myerrors.ErrActiveAssignmentExists) {
			log.Info("order already has a newer assignment")
			return
		}
		log.Error("widened search failed", err)
		o.publishFailed(ctx, a, model.ReasonAllRejected)
		return
	}
	log.Info("widened search dispatched", "next_assignment_id", next.ID, "status", next.Status)
}

// Cancel cancels the assignment and publishes assignment.cancelled.
func (o *Orchestrator) Cancel(ctx context.Context, assignmentID string) (model.Assignment, error) {
	a, err := o.ledger.Get(ctx, assignmentID)
	if err != nil {
		return model.Assignment{}, err
	}
	ok, err := o.ledger.Cancel(ctx, assignmentID)
	if err != nil {
		return model.Assignment{}, err
	}
	if !ok {
		return model.Assignment{}, myerrors.ErrCannotCancel
	}

	msg := messagebrokerdto.AssignmentCancelled{
		AssignmentID: a.ID,
		OrderID:      a.OrderID,
		CancelledAt:  o.now().UTC(),
	}
	if err := o.publisher.PublishCancelled(ctx, msg); err != nil {
		o.log.Action("cancel").Error("cannot publish cancellation", err, "assignment_id", a.ID)
	}
	return o.ledger.Get(ctx, assignmentID)
}

func (o *Orchestrator) dispatch(ctx context.Context, details model.OrderDetails, search model.SearchAttempt, exclude []string) (model.Assignment, error) {
	vehicle := details.VehicleType
	if vehicle == "" {
		vehicle = o.policy.VehicleClass
	}

	candidates, err := o.selector.Select(ctx, SelectionRequest{
		OrderID:      details.OrderID,
		Pickup:       details.Restaurant.Location,
		RadiusMeters: search.RadiusMeters,
		VehicleClass: vehicle,
		Exclude:      exclude,
	})
	if err != nil {
		return model.Assignment{}, err
	}

	a, err := o.ledger.CreateAssignment(ctx, details.OrderID, candidates, search)
	if err != nil {
		return model.Assignment{}, err
	}

	if a.Status == model.StatusExpired {
		o.log.Action("dispatch").Warn("no drivers available", "order_id", a.OrderID, "radius_m", search.RadiusMeters)
		o.publishFailed(ctx, a, model.ReasonNoDriversAvailable)
		return a, nil
	}

	o.fanout.OfferAll(ctx, candidates, o.buildOffer(details, a))
	return a, nil
}

func (o *Orchestrator) buildOffer(details model.OrderDetails, a model.Assignment) messagebrokerdto.OrderOffer {
	items := make([]messagebrokerdto.Item, 0, len(details.Items))
	for _, it := range details.Items {
		items = append(items, messagebrokerdto.Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return messagebrokerdto.OrderOffer{
		AssignmentID:   a.ID,
		OrderID:        a.OrderID,
		OrderNumber:    OrderNumber(a.OrderID),
		RestaurantName: details.Restaurant.Name,
		Pickup: messagebrokerdto.Coordinates{
			Lat:     details.Restaurant.Location.Lat,
			Lng:     details.Restaurant.Location.Lng,
			Address: details.Restaurant.Address,
		},
		Dropoff: messagebrokerdto.Coordinates{
			Lat:     details.Customer.Location.Lat,
			Lng:     details.Customer.Location.Lng,
			Address: details.Customer.Address,
		},
		Items:       items,
		Payment:     details.Total,
		DeliveryFee: details.DeliveryFee,
		Currency:    o.policy.Currency,
		ExpiryTime:  a.ExpiryTime,
	}
}

func (o *Orchestrator) publishFailed(ctx context.Context, a model.Assignment, reason model.FailureReason) {
	msg := messagebrokerdto.AssignmentFailed{
		AssignmentID: a.ID,
		OrderID:      a.OrderID,
		Reason:       string(reason),
		Attempt:      a.Attempt,
		FailedAt:     o.now().UTC(),
	}
	if err := o.publisher.PublishFailed(ctx, msg); err != nil {
		o.log.Action("publish_failed").Error("cannot publish assignment failure", err,
			"assignment_id", a.ID, "reason", reason)
		return
	}
	o.log.Action("publish_failed").Info("order could not be assigned", "assignment_id", a.ID, "order_id", a.OrderID, "reason", reason)
}

// OrderNumber is the human readable order reference shown to drivers.
func OrderNumber(orderID string) string {
	return fmt.Sprintf("ORD-%s", orderID)
}
