package bm

import (
	"context"

	messagebrokerdto "food-dispatch/internal/assignment-service/core/domain/message_broker_dto"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/bm"
)

// DispatchPublisher maps dispatch events onto the order and driver topics.
type DispatchPublisher struct {
	pub bm.Publisher
}

var _ ports.IDispatchPublisher = (*DispatchPublisher)(nil)

func NewDispatchPublisher(pub bm.Publisher) *DispatchPublisher {
	return &DispatchPublisher{pub: pub}
}

func (p *DispatchPublisher) PublishOffer(ctx context.Context, offer messagebrokerdto.OrderOffer) error {
	return p.pub.PublishJSON(ctx, bm.DriverExchange, bm.DriverNotificationKey(offer.DriverID), offer)
}

func (p *DispatchPublisher) PublishCompleted(ctx context.Context, msg messagebrokerdto.AssignmentCompleted) error {
	return p.pub.PublishJSON(ctx, bm.OrderExchange, bm.AssignmentCompletedKey, msg)
}

func (p *DispatchPublisher) PublishFailed(ctx context.Context, msg messagebrokerdto.AssignmentFailed) error {
	return p.pub.PublishJSON(ctx, bm.OrderExchange, bm.AssignmentFailedKey, msg)
}

func (p *DispatchPublisher) PublishCancelled(ctx context.Context, msg messagebrokerdto.AssignmentCancelled) error {
	return p.pub.PublishJSON(ctx, bm.OrderExchange, bm.AssignmentCancelledKey, msg)
}
