package ports

import (
	"context"

	"food-dispatch/internal/assignment-service/core/domain/model"
)

// IResponseResolver turns driver answers into ledger transitions.
type IResponseResolver interface {
	HandleResponse(ctx context.Context, orderID, driverID string, decision model.Decision) (model.ResponseResult, error)
	HandleStatusUpdate(ctx context.Context, assignmentID, driverID string, decision model.Decision) (model.ResponseResult, error)
}

type IOrchestrator interface {
	ProcessOrder(ctx context.Context, orderID string) (model.Assignment, error)
	AbandonOrder(ctx context.Context, orderID string, reason model.FailureReason) (model.Assignment, error)
	Cancel(ctx context.Context, assignmentID string) (model.Assignment, error)
}

// IAssignmentReader is the read side of the ledger.
type IAssignmentReader interface {
	Get(ctx context.Context, id string) (model.Assignment, error)
	Candidates(ctx context.Context, assignmentID string) ([]model.Candidate, error)
	ListByOrder(ctx context.Context, orderID string) ([]model.Assignment, error)
	ListByDriver(ctx context.Context, driverID string) ([]model.Assignment, error)
}

type IOverviewService interface {
	Overview(ctx context.Context) (model.Overview, error)
}

// IConnectionCounter reports how many drivers hold an open push channel.
type IConnectionCounter interface {
	ConnectedCount() int
}
