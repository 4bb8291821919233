package bm

import (
	"context"

	"food-dispatch/internal/bm"
	messagebrokerdto "food-dispatch/internal/identity-service/core/domain/message_broker_dto"
	"food-dispatch/internal/identity-service/core/ports"
)

type RegistryPublisher struct {
	pub bm.Publisher
}

var _ ports.IRegistryPublisher = (*RegistryPublisher)(nil)

func NewRegistryPublisher(pub bm.Publisher) *RegistryPublisher {
	return &RegistryPublisher{pub: pub}
}

func (p *RegistryPublisher) PublishRegistration(ctx context.Context, msg messagebrokerdto.DriverRegistration) error {
	return p.pub.PublishJSON(ctx, bm.RegistryExchange, bm.DriverRegistrationKey, msg)
}
