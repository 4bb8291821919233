package ports

import (
	"context"
	"time"

	"food-dispatch/internal/identity-service/core/domain/model"
)

// IIdentityRepo stores identities and the records keyed by a driver id.
// Status changes are conditional updates that report whether a row changed.
type IIdentityRepo interface {
	// Create stores the identity together with its profile, vehicle and
	// documents in one transaction.
	Create(ctx context.Context, id model.DriverIdentity, reg model.Registration) error
	Get(ctx context.Context, provisionalID string) (model.DriverIdentity, error)
	ListFailed(ctx context.Context, limit int) ([]model.DriverIdentity, error)
	// ListStalePending returns PENDING identities not touched since before.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]model.DriverIdentity, error)
	LoadRegistration(ctx context.Context, driverID string) (model.Registration, error)

	// Complete moves PENDING|FAILED → COMPLETED and rewrites every dependent
	// from provisionalID to permanentID in the same transaction.
	Complete(ctx context.Context, provisionalID, permanentID string, now time.Time) (bool, error)
	// MarkFailed moves PENDING → FAILED.
	MarkFailed(ctx context.Context, provisionalID, reason string, now time.Time) (bool, error)
	// ClaimForRetry moves FAILED → PENDING and increments attempts.
	ClaimForRetry(ctx context.Context, provisionalID string, now time.Time) (bool, error)
	// ClaimStale increments attempts of a PENDING identity whose updated_at
	// is not after before, stamping it with now.
	ClaimStale(ctx context.Context, provisionalID string, before, now time.Time) (bool, error)
}
