package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"food-dispatch/internal/identity-service/core/domain/model"
	"food-dispatch/internal/identity-service/core/myerrors"
	"food-dispatch/internal/identity-service/core/ports"
	"food-dispatch/internal/postgres"

	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schema string

const identitySelect = `provisional_id, permanent_id, reconciliation_status, attempts,
	last_error, created_at, updated_at`

// dependentTables hold rows keyed by driver_id that move to the permanent id
// on reconciliation.
var dependentTables = []string{"driver_profiles", "vehicles", "driver_documents"}

type IdentityRepo struct {
	db *postgres.DB
}

var _ ports.IIdentityRepo = (*IdentityRepo)(nil)

func NewIdentityRepo(db *postgres.DB) *IdentityRepo {
	return &IdentityRepo{db: db}
}

func (r *IdentityRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply identity schema: %w", err)
	}
	return nil
}

func (r *IdentityRepo) Create(ctx context.Context, id model.DriverIdentity, reg model.Registration) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO driver_identities
			(provisional_id, reconciliation_status, attempts, last_error, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id.ProvisionalID, string(id.Status), id.Attempts, nullable(id.LastError), id.CreatedAt, id.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert identity: %w", err)
		}

		p := reg.Profile
		batch := &pgx.Batch{}
		batch.Queue(`INSERT INTO driver_profiles
			(driver_id, username, first_name, last_name, email, phone_number, license_number, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id.ProvisionalID, p.Username, p.FirstName, p.LastName, nullable(p.Email), p.PhoneNumber, p.LicenseNumber, id.CreatedAt)
		if v := reg.Vehicle; v != nil {
			batch.Queue(`INSERT INTO vehicles (driver_id, vehicle_type, brand, model, year, license_plate, color)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				id.ProvisionalID, v.VehicleType, nullable(v.Brand), nullable(v.Model), v.Year, nullable(v.LicensePlate), nullable(v.Color))
		}
		for _, d := range reg.Documents {
			batch.Queue(`INSERT INTO driver_documents (driver_id, document_type, file_url, uploaded_at)
				VALUES ($1, $2, $3, $4)`, id.ProvisionalID, d.Type, d.FileURL, id.CreatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if postgres.IsUniqueViolation(err) {
		return myerrors.ErrDuplicateUsername
	}
	return err
}

func (r *IdentityRepo) Get(ctx context.Context, provisionalID string) (model.DriverIdentity, error) {
	q := `SELECT ` + identitySelect + ` FROM driver_identities WHERE provisional_id = $1`
	id, err := scanIdentity(r.db.Pool.QueryRow(ctx, q, provisionalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DriverIdentity{}, myerrors.ErrIdentityNotFound
	}
	return id, err
}

func (r *IdentityRepo) ListFailed(ctx context.Context, limit int) ([]model.DriverIdentity, error) {
	q := `SELECT ` + identitySelect + ` FROM driver_identities
		WHERE reconciliation_status = 'FAILED'
		ORDER BY updated_at
		LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DriverIdentity, error) {
		return scanIdentity(row)
	})
}

func (r *IdentityRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]model.DriverIdentity, error) {
	q := `SELECT ` + identitySelect + ` FROM driver_identities
		WHERE reconciliation_status = 'PENDING' AND updated_at <= $1
		ORDER BY updated_at
		LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, before, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DriverIdentity, error) {
		return scanIdentity(row)
	})
}

func (r *IdentityRepo) LoadRegistration(ctx context.Context, driverID string) (model.Registration, error) {
	reg := model.Registration{DriverID: driverID}

	var email *string
	err := r.db.Pool.QueryRow(ctx, `SELECT username, first_name, last_name, email, phone_number, license_number
		FROM driver_profiles WHERE driver_id = $1`, driverID).
		Scan(&reg.Profile.Username, &reg.Profile.FirstName, &reg.Profile.LastName, &email,
			&reg.Profile.PhoneNumber, &reg.Profile.LicenseNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Registration{}, myerrors.ErrIdentityNotFound
	}
	if err != nil {
		return model.Registration{}, fmt.Errorf("load profile: %w", err)
	}
	reg.Profile.Email = deref(email)

	var (
		v                           model.Vehicle
		brand, vmodel, plate, color *string
		year                        *int
	)
	err = r.db.Pool.QueryRow(ctx, `SELECT vehicle_type, brand, model, year, license_plate, color
		FROM vehicles WHERE driver_id = $1`, driverID).
		Scan(&v.VehicleType, &brand, &vmodel, &year, &plate, &color)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return model.Registration{}, fmt.Errorf("load vehicle: %w", err)
	default:
		v.Brand, v.Model, v.LicensePlate, v.Color = deref(brand), deref(vmodel), deref(plate), deref(color)
		if year != nil {
			v.Year = *year
		}
		reg.Vehicle = &v
	}

	rows, err := r.db.Pool.Query(ctx, `SELECT document_type, file_url
		FROM driver_documents WHERE driver_id = $1 ORDER BY id`, driverID)
	if err != nil {
		return model.Registration{}, fmt.Errorf("load documents: %w", err)
	}
	reg.Documents, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Document, error) {
		var d model.Document
		err := row.Scan(&d.Type, &d.FileURL)
		return d, err
	})
	if err != nil {
		return model.Registration{}, fmt.Errorf("load documents: %w", err)
	}
	return reg, nil
}

// Complete adopts permanentID and moves every dependent row to it in one
// transaction. It reports false when the identity was already COMPLETED.
func (r *IdentityRepo) Complete(ctx context.Context, provisionalID, permanentID string, now time.Time) (bool, error) {
	changed := false
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE driver_identities
			SET reconciliation_status = 'COMPLETED', permanent_id = $2, last_error = NULL, updated_at = $3
			WHERE provisional_id = $1 AND reconciliation_status IN ('PENDING', 'FAILED')`,
			provisionalID, permanentID, now)
		if err != nil {
			return fmt.Errorf("complete identity: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.ensureExists(ctx, tx, provisionalID)
		}

		for _, table := range dependentTables {
			q := fmt.Sprintf(`UPDATE %s SET driver_id = $2 WHERE driver_id = $1`, table)
			if _, err := tx.Exec(ctx, q, provisionalID, permanentID); err != nil {
				return fmt.Errorf("rewrite %s: %w", table, err)
			}
		}
		changed = true
		return nil
	})
	return changed, err
}

func (r *IdentityRepo) MarkFailed(ctx context.Context, provisionalID, reason string, now time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE driver_identities
		SET reconciliation_status = 'FAILED', last_error = $2, updated_at = $3
		WHERE provisional_id = $1 AND reconciliation_status = 'PENDING'`,
		provisionalID, reason, now)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, r.ensureExists(ctx, r.db.Pool, provisionalID)
	}
	return true, nil
}

func (r *IdentityRepo) ClaimForRetry(ctx context.Context, provisionalID string, now time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE driver_identities
		SET reconciliation_status = 'PENDING', attempts = attempts + 1, updated_at = $2
		WHERE provisional_id = $1 AND reconciliation_status = 'FAILED'`,
		provisionalID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IdentityRepo) ClaimStale(ctx context.Context, provisionalID string, before, now time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE driver_identities
		SET attempts = attempts + 1, updated_at = $3
		WHERE provisional_id = $1 AND reconciliation_status = 'PENDING' AND updated_at <= $2`,
		provisionalID, before, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IdentityRepo) ensureExists(ctx context.Context, q postgres.Querier, provisionalID string) error {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM driver_identities WHERE provisional_id = $1)`, provisionalID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return myerrors.ErrIdentityNotFound
	}
	return nil
}

func scanIdentity(row pgx.Row) (model.DriverIdentity, error) {
	var (
		id                 model.DriverIdentity
		permanent, lastErr *string
		status             string
	)
	err := row.Scan(&id.ProvisionalID, &permanent, &status, &id.Attempts, &lastErr, &id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		return model.DriverIdentity{}, err
	}
	id.Status = model.ReconciliationStatus(status)
	id.PermanentID = deref(permanent)
	id.LastError = deref(lastErr)
	return id, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
