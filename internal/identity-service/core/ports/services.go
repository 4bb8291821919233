package ports

import (
	"context"

	"food-dispatch/internal/identity-service/core/domain/model"
)

type IReconciler interface {
	OnRegistrationResult(ctx context.Context, res model.SyncResult) (model.Outcome, error)
}

type IRegistrationService interface {
	Register(ctx context.Context, reg model.Registration) (model.DriverIdentity, error)
	Get(ctx context.Context, provisionalID string) (model.DriverIdentity, error)
}
