package ports

import (
	"context"

	messagebrokerdto "food-dispatch/internal/identity-service/core/domain/message_broker_dto"
)

//go:generate mockgen -source=broker.go -destination=mocks/broker_mock.go -package=mocks

type IRegistryPublisher interface {
	PublishRegistration(ctx context.Context, msg messagebrokerdto.DriverRegistration) error
}
