package handle

import "context"

type driverKey struct{}

// WithDriver stores the authenticated driver id on ctx.
func WithDriver(ctx context.Context, driverID string) context.Context {
	return context.WithValue(ctx, driverKey{}, driverID)
}

// DriverFromContext returns the driver id set by the auth middleware.
func DriverFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(driverKey{}).(string)
	return id, ok && id != ""
}
