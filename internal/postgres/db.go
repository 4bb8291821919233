package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-dispatch/internal/config"
	"food-dispatch/internal/mylogger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectAttempts = 10
	connectDelay    = time.Second
	attemptTimeout  = 3 * time.Second
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so repository code
// can run inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DB struct {
	Pool  *pgxpool.Pool
	mylog mylogger.Logger
}

// New connects a pool, retrying while the database is starting up.
func New(ctx context.Context, dbCfg *config.DBconfig, mylog mylogger.Logger) (*DB, error) {
	pool, err := connectWithRetry(ctx, dbCfg.DSN(), connectAttempts, connectDelay, mylog)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool, mylog: mylog}, nil
}

// FromPool wraps an existing pool.
func FromPool(pool *pgxpool.Pool, mylog mylogger.Logger) *DB {
	return &DB{Pool: pool, mylog: mylog}
}

func (d *DB) Close() {
	d.Pool.Close()
}

// IsAlive pings the DB to verify it's responsive
func (d *DB) IsAlive(ctx context.Context) error {
	if d.Pool == nil {
		return errors.New("DB is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()
	if err := d.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction. The transaction is rolled back when fn
// returns an error or panics.
func (d *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := d.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func connectWithRetry(ctx context.Context, dsn string, retries int, delay time.Duration, mylog mylogger.Logger) (*pgxpool.Pool, error) {
	log := mylog.Action("db_connect")
	var lastErr error
	for i := 1; i <= retries; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		pool, err := newPool(attemptCtx, dsn)
		cancel()
		if err == nil {
			log.Info("db connected", "attempt", i)
			return pool, nil
		}
		lastErr = err
		log.Warn("db connect failed", "attempt", i, "of", retries, "error", err.Error())
		if i < retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil, fmt.Errorf("db connect failed after %d attempts: %w", retries, lastErr)
}

func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
