package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schema string

const (
	assignmentColumns = `id, order_id, candidate_driver_ids, committed_driver_id, status,
	attempt, search_radius_m, created_at, updated_at, expiry_time`
	assignmentSelect = `id::text, order_id, candidate_driver_ids, committed_driver_id, status,
	attempt, search_radius_m, created_at, updated_at, expiry_time`
)

type AssignmentRepo struct {
	db *postgres.DB
}

var _ ports.IAssignmentRepo = (*AssignmentRepo)(nil)

func NewAssignmentRepo(db *postgres.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// EnsureSchema creates the tables and indexes if they are missing.
func (r *AssignmentRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply assignment schema: %w", err)
	}
	return nil
}

func (r *AssignmentRepo) Insert(ctx context.Context, a model.Assignment, candidates []model.Candidate) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		q := `INSERT INTO assignments (` + assignmentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err := tx.Exec(ctx, q,
			a.ID,
			a.OrderID,
			a.CandidateDriverIDs,
			nullable(a.CommittedDriverID),
			string(a.Status),
			a.Attempt,
			a.SearchRadiusMeters,
			a.CreatedAt,
			a.UpdatedAt,
			a.ExpiryTime,
		)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, c := range candidates {
			batch.Queue(`INSERT INTO assignment_candidates (assignment_id, driver_id, distance_m, response_status)
				VALUES ($1, $2, $3, $4)`, a.ID, c.DriverID, c.DistanceMeters, string(c.ResponseStatus))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if postgres.IsUniqueViolation(err) {
		return myerrors.ErrActiveAssignmentExists
	}
	return err
}

func (r *AssignmentRepo) HasActive(ctx context.Context, orderID string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM assignments WHERE order_id = $1 AND status IN ('PENDING', 'ACCEPTED'))`
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, q, orderID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *AssignmentRepo) GetByID(ctx context.Context, id string) (model.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Assignment{}, myerrors.ErrAssignmentNotFound
	}
	q := `SELECT ` + assignmentSelect + ` FROM assignments WHERE id = $1`
	a, err := scanAssignment(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Assignment{}, myerrors.ErrAssignmentNotFound
	}
	return a, err
}

func (r *AssignmentRepo) ListByOrder(ctx context.Context, orderID string) ([]model.Assignment, error) {
	q := `SELECT ` + assignmentSelect + ` FROM assignments
		WHERE order_id = $1
		ORDER BY created_at DESC, attempt DESC`
	return r.queryAssignments(ctx, q, orderID)
}

func (r *AssignmentRepo) ListByDriver(ctx context.Context, driverID string) ([]model.Assignment, error) {
	q := `SELECT ` + assignmentSelect + ` FROM assignments
		WHERE $1 = ANY(candidate_driver_ids)
		ORDER BY created_at DESC`
	return r.queryAssignments(ctx, q, driverID)
}

func (r *AssignmentRepo) ListCandidates(ctx context.Context, assignmentID string) ([]model.Candidate, error) {
	q := `SELECT assignment_id::text, driver_id, distance_m, response_status, responded_at
		FROM assignment_candidates
		WHERE assignment_id = $1
		ORDER BY distance_m, driver_id`
	rows, err := r.db.Pool.Query(ctx, q, assignmentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Candidate, error) {
		return scanCandidate(row)
	})
}

func (r *AssignmentRepo) GetCandidate(ctx context.Context, assignmentID, driverID string) (model.Candidate, error) {
	if _, err := uuid.Parse(assignmentID); err != nil {
		return model.Candidate{}, myerrors.ErrNotCandidate
	}
	q := `SELECT assignment_id::text, driver_id, distance_m, response_status, responded_at
		FROM assignment_candidates
		WHERE assignment_id = $1 AND driver_id = $2`
	c, err := scanCandidate(r.db.Pool.QueryRow(ctx, q, assignmentID, driverID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Candidate{}, myerrors.ErrNotCandidate
	}
	return c, err
}

func (r *AssignmentRepo) CommitDriver(ctx context.Context, assignmentID, driverID string, now time.Time) (bool, error) {
	q := `UPDATE assignments a
		SET status = 'ACCEPTED', committed_driver_id = $2, updated_at = $3
		WHERE a.id = $1
		  AND a.status = 'PENDING'
		  AND a.expiry_time > $3
		  AND EXISTS (
			SELECT 1 FROM assignment_candidates c
			WHERE c.assignment_id = a.id AND c.driver_id = $2 AND c.response_status = 'PENDING'
		  )`
	tag, err := r.db.Pool.Exec(ctx, q, assignmentID, driverID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AssignmentRepo) Transition(ctx context.Context, assignmentID string, from []model.AssignmentStatus, to model.AssignmentStatus, now time.Time) (bool, error) {
	q := `UPDATE assignments
		SET status = $3::text,
		    updated_at = $4,
		    committed_driver_id = CASE WHEN $3::text IN ('ACCEPTED', 'COMPLETED') THEN committed_driver_id ELSE NULL END
		WHERE id = $1 AND status = ANY($2)`
	tag, err := r.db.Pool.Exec(ctx, q, assignmentID, statusStrings(from), string(to), now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AssignmentRepo) ExpireOverdue(ctx context.Context, now time.Time) ([]model.Assignment, error) {
	q := `UPDATE assignments
		SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'PENDING' AND expiry_time <= $1
		RETURNING ` + assignmentSelect
	return r.queryAssignments(ctx, q, now)
}

func (r *AssignmentRepo) ListStaleAccepted(ctx context.Context, updatedBefore time.Time) ([]model.Assignment, error) {
	q := `SELECT ` + assignmentSelect + ` FROM assignments
		WHERE status = 'ACCEPTED' AND updated_at < $1
		ORDER BY updated_at`
	return r.queryAssignments(ctx, q, updatedBefore)
}

func (r *AssignmentRepo) SetCandidateResponse(ctx context.Context, assignmentID, driverID string, to model.ResponseStatus, now time.Time) (bool, error) {
	q := `UPDATE assignment_candidates
		SET response_status = $3, responded_at = $4
		WHERE assignment_id = $1 AND driver_id = $2 AND response_status = 'PENDING'`
	tag, err := r.db.Pool.Exec(ctx, q, assignmentID, driverID, string(to), now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AssignmentRepo) ClosePendingCandidates(ctx context.Context, assignmentID string, to model.ResponseStatus, now time.Time) (int64, error) {
	q := `UPDATE assignment_candidates
		SET response_status = $2, responded_at = $3
		WHERE assignment_id = $1 AND response_status = 'PENDING'`
	tag, err := r.db.Pool.Exec(ctx, q, assignmentID, string(to), now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *AssignmentRepo) queryAssignments(ctx context.Context, q string, args ...any) ([]model.Assignment, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Assignment, error) {
		return scanAssignment(row)
	})
}

func scanAssignment(row pgx.Row) (model.Assignment, error) {
	var (
		a         model.Assignment
		committed *string
		status    string
	)
	err := row.Scan(
		&a.ID,
		&a.OrderID,
		&a.CandidateDriverIDs,
		&committed,
		&status,
		&a.Attempt,
		&a.SearchRadiusMeters,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.ExpiryTime,
	)
	if err != nil {
		return model.Assignment{}, err
	}
	a.Status = model.AssignmentStatus(status)
	if committed != nil {
		a.CommittedDriverID = *committed
	}
	if a.CandidateDriverIDs == nil {
		a.CandidateDriverIDs = []string{}
	}
	return a, nil
}

func scanCandidate(row pgx.Row) (model.Candidate, error) {
	var (
		c      model.Candidate
		status string
	)
	if err := row.Scan(&c.AssignmentID, &c.DriverID, &c.DistanceMeters, &status, &c.RespondedAt); err != nil {
		return model.Candidate{}, err
	}
	c.ResponseStatus = model.ResponseStatus(status)
	return c, nil
}

func statusStrings(in []model.AssignmentStatus) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
