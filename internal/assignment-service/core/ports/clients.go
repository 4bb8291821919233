package ports

import (
	"context"

	"food-dispatch/internal/assignment-service/core/domain/model"
)

// IDirectory answers "who is near X".
type IDirectory interface {
	Nearby(ctx context.Context, q model.NearbyQuery) ([]model.NearbyDriver, error)
}

// IOrderDetails reads order details from the order service.
type IOrderDetails interface {
	GetOrderDetails(ctx context.Context, orderID string) (model.OrderDetails, error)
}
