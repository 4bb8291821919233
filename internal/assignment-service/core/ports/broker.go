package ports

import (
	"context"

	messagebrokerdto "food-dispatch/internal/assignment-service/core/domain/message_broker_dto"
)

//go:generate mockgen -source=broker.go -destination=mocks/broker_mock.go -package=mocks

type IDispatchPublisher interface {
	PublishOffer(ctx context.Context, offer messagebrokerdto.OrderOffer) error
	PublishCompleted(ctx context.Context, msg messagebrokerdto.AssignmentCompleted) error
	PublishFailed(ctx context.Context, msg messagebrokerdto.AssignmentFailed) error
	PublishCancelled(ctx context.Context, msg messagebrokerdto.AssignmentCancelled) error
}
