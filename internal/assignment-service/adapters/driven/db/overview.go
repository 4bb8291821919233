package db

import (
	"context"
	"fmt"
	"time"

	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/ports"
)

var _ ports.IOverviewRepo = (*AssignmentRepo)(nil)

func (r *AssignmentRepo) Overview(ctx context.Context, since time.Time) (model.Overview, error) {
	var o model.Overview

	q1 := `
	SELECT
		COUNT(*) FILTER (WHERE status = 'PENDING'),
		COUNT(*) FILTER (WHERE status = 'ACCEPTED'),
		COUNT(*) FILTER (WHERE created_at >= $1),
		COUNT(*) FILTER (WHERE status = 'COMPLETED' AND created_at >= $1),
		COUNT(*) FILTER (WHERE status = 'EXPIRED' AND created_at >= $1),
		COUNT(*) FILTER (WHERE status = 'CANCELLED' AND created_at >= $1)
	FROM assignments`
	err := r.db.Pool.QueryRow(ctx, q1, since).Scan(
		&o.Pending,
		&o.Accepted,
		&o.CreatedToday,
		&o.CompletedToday,
		&o.ExpiredToday,
		&o.CancelledToday,
	)
	if err != nil {
		return model.Overview{}, fmt.Errorf("assignment counters: %w", err)
	}

	q2 := `
	SELECT
		COUNT(*) FILTER (WHERE c.response_status = 'REJECTED' AND c.responded_at >= $1),
		COALESCE(AVG(EXTRACT(EPOCH FROM (c.responded_at - a.created_at)))
			FILTER (WHERE c.response_status = 'ACCEPTED' AND a.created_at >= $1), 0)::float8
	FROM assignment_candidates c
	JOIN assignments a ON a.id = c.assignment_id`
	if err := r.db.Pool.QueryRow(ctx, q2, since).Scan(&o.RejectedOffersToday, &o.AverageAcceptSeconds); err != nil {
		return model.Overview{}, fmt.Errorf("candidate counters: %w", err)
	}
	return o, nil
}
