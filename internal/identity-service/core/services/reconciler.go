package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-dispatch/internal/identity-service/core/domain/model"
	"food-dispatch/internal/identity-service/core/myerrors"
	"food-dispatch/internal/identity-service/core/ports"
	"food-dispatch/internal/metrics"
	"food-dispatch/internal/mylogger"
)

const retryBatch = 100

type Clock func() time.Time

// Reconciler applies registry results and retries registrations that failed
// or whose result never arrived. Every state change is conditional on the
// identity's current status, so a retry sweep may overlap with an incoming
// result.
type Reconciler struct {
	repo           ports.IIdentityRepo
	publisher      ports.IRegistryPublisher
	now            Clock
	pendingTimeout time.Duration
	metrics        *metrics.Identity
	log            mylogger.Logger
}

type claimFunc func(ctx context.Context, provisionalID string, now time.Time) (bool, error)

var _ ports.IReconciler = (*Reconciler)(nil)

// NewReconciler builds a Reconciler. PENDING identities untouched for
// pendingTimeout are republished by RetrySweep.
func NewReconciler(repo ports.IIdentityRepo, publisher ports.IRegistryPublisher, now Clock, pendingTimeout time.Duration, m *metrics.Identity, log mylogger.Logger) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		repo:           repo,
		publisher:      publisher,
		now:            now,
		pendingTimeout: pendingTimeout,
		metrics:        m,
		log:            log,
	}
}

// OnRegistrationResult adopts the permanent id on success or records the
// failure. Repeating a result is a no-op.
func (r *Reconciler) OnRegistrationResult(ctx context.Context, res model.SyncResult) (model.Outcome, error) {
	if res.ProvisionalID == "" || (res.Success && res.PermanentID == "") {
		return "", myerrors.ErrInvalidResult
	}
	log := r.log.Action("registration_result").With("provisional_id", res.ProvisionalID, "success", res.Success)

	outcome, err := r.apply(ctx, res, log)
	if err != nil {
		return "", err
	}
	r.count(outcome)
	return outcome, nil
}

func (r *Reconciler) apply(ctx context.Context, res model.SyncResult, log mylogger.Logger) (model.Outcome, error) {
	if !res.Success {
		return r.fail(ctx, res, log)
	}

	changed, err := r.repo.Complete(ctx, res.ProvisionalID, res.PermanentID, r.now())
	if err != nil {
		return "", fmt.Errorf("complete identity: %w", err)
	}
	if changed {
		log.Info("permanent id adopted", "permanent_id", res.PermanentID)
		return model.OutcomeCompleted, nil
	}

	cur, err := r.repo.Get(ctx, res.ProvisionalID)
	if err != nil {
		return "", err
	}
	if cur.PermanentID == res.PermanentID {
		log.Debug("result already applied")
		return model.OutcomeAlreadyCompleted, nil
	}
	log.Warn("registry issued a different permanent id, keeping the first",
		"permanent_id", cur.PermanentID,
		"received_permanent_id", res.PermanentID,
	)
	return model.OutcomeConflict, nil
}

func (r *Reconciler) fail(ctx context.Context, res model.SyncResult, log mylogger.Logger) (model.Outcome, error) {
	reason := res.ErrorMessage
	if reason == "" {
		reason = "registry rejected the registration"
	}
	changed, err := r.repo.MarkFailed(ctx, res.ProvisionalID, reason, r.now())
	if err != nil {
		return "", fmt.Errorf("mark identity failed: %w", err)
	}
	if changed {
		log.Warn("registration failed", "reason", reason)
		return model.OutcomeFailed, nil
	}

	cur, err := r.repo.Get(ctx, res.ProvisionalID)
	if err != nil {
		return "", err
	}
	log.Info("failure result ignored", "status", string(cur.Status))
	return model.OutcomeIgnored, nil
}

// RetrySweep republishes every FAILED registration and every PENDING one
// whose result has not arrived within the pending timeout. An identity is
// claimed before publishing (FAILED → PENDING, or a stale PENDING restamped)
// and released to FAILED if the publish does not go through.
func (r *Reconciler) RetrySweep(ctx context.Context) error {
	log := r.log.Action("retry_sweep")

	failed, err := r.repo.ListFailed(ctx, retryBatch)
	if err != nil {
		return fmt.Errorf("list failed identities: %w", err)
	}
	before := r.now().Add(-r.pendingTimeout)
	stale, err := r.repo.ListStalePending(ctx, before, retryBatch)
	if err != nil {
		return fmt.Errorf("list stale identities: %w", err)
	}
	claimStale := func(ctx context.Context, provisionalID string, now time.Time) (bool, error) {
		return r.repo.ClaimStale(ctx, provisionalID, before, now)
	}

	published := 0
	for _, id := range failed {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if r.retry(ctx, id, r.repo.ClaimForRetry, log.With("provisional_id", id.ProvisionalID, "status", string(id.Status))) {
			published++
		}
	}
	for _, id := range stale {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if r.retry(ctx, id, claimStale, log.With("provisional_id", id.ProvisionalID, "status", string(id.Status))) {
			published++
		}
	}
	log.Info("sweep finished", "failed", len(failed), "stale_pending", len(stale), "republished", published)
	return nil
}

func (r *Reconciler) retry(ctx context.Context, id model.DriverIdentity, claim claimFunc, log mylogger.Logger) bool {
	now := r.now()
	claimed, err := claim(ctx, id.ProvisionalID, now)
	if err != nil {
		log.Error("cannot claim identity", err)
		r.countRetry("error")
		return false
	}
	if !claimed {
		log.Debug("identity changed since listing, skipping")
		r.countRetry("skipped")
		return false
	}
	attempt := id.Attempts + 1

	reg, err := r.repo.LoadRegistration(ctx, id.ProvisionalID)
	if err != nil {
		r.release(ctx, id.ProvisionalID, fmt.Errorf("load registration: %w", err), log)
		return false
	}

	msg := registrationMessage(id.ProvisionalID, reg, attempt, &now)
	if err := r.publisher.PublishRegistration(ctx, msg); err != nil {
		r.release(ctx, id.ProvisionalID, fmt.Errorf("publish registration: %w", err), log)
		return false
	}
	log.Info("registration republished", "attempt", attempt)
	r.countRetry("published")
	return true
}

func (r *Reconciler) release(ctx context.Context, provisionalID string, cause error, log mylogger.Logger) {
	log.Error("retry attempt failed", cause)
	r.countRetry("failed")
	if _, err := r.repo.MarkFailed(ctx, provisionalID, cause.Error(), r.now()); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("cannot return identity to FAILED", err)
	}
}

func (r *Reconciler) count(o model.Outcome) {
	if r.metrics != nil {
		r.metrics.Reconciliations.WithLabelValues(string(o)).Inc()
	}
}

func (r *Reconciler) countRetry(result string) {
	if r.metrics != nil {
		r.metrics.RetryAttempts.WithLabelValues(result).Inc()
	}
}
