package services

import (
	"context"
	"errors"
	"sync"

	messagebrokerdto "food-dispatch/internal/assignment-service/core/domain/message_broker_dto"
	"food-dispatch/internal/assignment-service/core/domain/model"
	websocketdto "food-dispatch/internal/assignment-service/core/domain/websocket_dto"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/metrics"
	"food-dispatch/internal/mylogger"
)

const (
	channelBroker = "broker"
	channelPush   = "push"
)

// NotificationFanout sends each offer over the broker and the push channel.
// The two channels are independent: a failure on one never stops the other
// and is never returned to the caller.
type NotificationFanout struct {
	publisher ports.IDispatchPublisher
	pusher    ports.IDriverPusher
	metrics   *metrics.Dispatch
	log       mylogger.Logger
}

func NewNotificationFanout(publisher ports.IDispatchPublisher, pusher ports.IDriverPusher, m *metrics.Dispatch, log mylogger.Logger) *NotificationFanout {
	return &NotificationFanout{
		publisher: publisher,
		pusher:    pusher,
		metrics:   m,
		log:       log,
	}
}

// Offer delivers one offer to one driver on both channels.
func (f *NotificationFanout) Offer(ctx context.Context, offer messagebrokerdto.OrderOffer) {
	log := f.log.Action("offer").With(
		"assignment_id", offer.AssignmentID,
		"order_id", offer.OrderID,
		"driver_id", offer.DriverID,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := f.publisher.PublishOffer(ctx, offer); err != nil {
			f.metrics.OfferDeliveries.WithLabelValues(channelBroker, "failed").Inc()
			log.Error("broker offer failed", err)
			return
		}
		f.metrics.OfferDeliveries.WithLabelValues(channelBroker, "sent").Inc()
	}()
	go func() {
		defer wg.Done()
		event, err := websocketdto.NewEvent(websocketdto.TypeOrderOffer, offer)
		if err == nil {
			err = f.pusher.SendToDriver(offer.DriverID, event)
		}
		switch {
		case err == nil:
			f.metrics.OfferDeliveries.WithLabelValues(channelPush, "sent").Inc()
		case errors.Is(err, myerrors.ErrDriverNotConnected):
			f.metrics.OfferDeliveries.WithLabelValues(channelPush, "offline").Inc()
			log.Debug("driver not connected to push channel")
		default:
			f.metrics.OfferDeliveries.WithLabelValues(channelPush, "failed").Inc()
			log.Error("push offer failed", err)
		}
	}()
	wg.Wait()
}

// OfferAll notifies every candidate in parallel. base carries the order
// context; driver id and distance are filled in per candidate.
func (f *NotificationFanout) OfferAll(ctx context.Context, candidates []model.Candidate, base messagebrokerdto.OrderOffer) {
	var wg sync.WaitGroup
	for _, c := range candidates {
		offer := base
		offer.DriverID = c.DriverID
		offer.DistanceMeters = c.DistanceMeters

		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Offer(ctx, offer)
		}()
	}
	wg.Wait()
	f.log.Action("offer_all").Info("offers sent", "assignment_id", base.AssignmentID, "candidates", len(candidates))
}
