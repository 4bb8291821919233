package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/myerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateStatus(t *testing.T, h *harness, assignmentID string) map[string]model.ResponseStatus {
	t.Helper()
	cands, err := h.ledger.Candidates(context.Background(), assignmentID)
	require.NoError(t, err)
	out := make(map[string]model.ResponseStatus, len(cands))
	for _, c := range cands {
		out[c.DriverID] = c.ResponseStatus
	}
	return out
}

func TestResolver_RejectThenAcceptScenario(t *testing.T) {
	h := newHarness(t, harnessOpts{maxCandidates: 2, widen: true})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	h.driverAt("D2", 1200)

	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)
	require.Equal(t, []string{"D1", "D2"}, a.CandidateDriverIDs)

	h.clock.Advance(time.Second)
	res, err := h.resolver.HandleResponse(ctx, "O1", "D2", model.DecisionRejected)
	require.NoError(t, err)
	assert.Equal(t, model.ResultRecorded, res)

	h.clock.Advance(time.Second)
	res, err = h.resolver.HandleResponse(ctx, "O1", "D1", model.DecisionAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.ResultCommitted, res)

	got, err := h.ledger.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, "D1", got.CommittedDriverID)

	st := candidateStatus(t, h, a.ID)
	assert.Equal(t, model.ResponseAccepted, st["D1"])
	assert.Equal(t, model.ResponseRejected, st["D2"])

	_, completed, failed, _ := h.publisher.counts()
	assert.Equal(t, 1, completed)
	assert.Zero(t, failed)
	assert.Equal(t, "D1", h.publisher.completed[0].DriverID)
}

func TestResolver_ConcurrentAcceptsSingleWinner(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	h.driverAt("D2", 900)

	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	results := make(map[string]model.ResponseResult)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, d := range []string{"D1", "D2"} {
		wg.Add(1)
		go func(driver string) {
			defer wg.Done()
			res, err := h.resolver.HandleStatusUpdate(ctx, a.ID, driver, model.DecisionAccepted)
			assert.NoError(t, err)
			mu.Lock()
			results[driver] = res
			mu.Unlock()
		}(d)
	}
	wg.Wait()

	var winner, loser string
	for d, r := range results {
		switch r {
		case model.ResultCommitted:
			winner = d
		case model.ResultAlreadyResolved:
			loser = d
		}
	}
	require.NotEmpty(t, winner)
	require.NotEmpty(t, loser)

	res, err := h.resolver.HandleStatusUpdate(ctx, a.ID, loser, model.DecisionAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.ResultAlreadyResolved, res, "losing response is idempotent")

	res, err = h.resolver.HandleStatusUpdate(ctx, a.ID, winner, model.DecisionAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.ResultCommitted, res, "winner's repeat keeps its answer")

	_, completed, _, _ := h.publisher.counts()
	assert.Equal(t, 1, completed, "repeats have no side effects")

	got, err := h.ledger.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, winner, got.CommittedDriverID)
}

func TestResolver_NotACandidate(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	_, err = h.resolver.HandleStatusUpdate(ctx, a.ID, "D9", model.DecisionAccepted)
	require.ErrorIs(t, err, myerrors.ErrNotCandidate)

	got, err := h.ledger.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestResolver_InvalidDecisionAndUnknownAssignment(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()

	_, err := h.resolver.HandleStatusUpdate(ctx, "missing", "D1", model.Decision("MAYBE"))
	require.ErrorIs(t, err, myerrors.ErrInvalidDecision)

	_, err = h.resolver.HandleStatusUpdate(ctx, "missing", "D1", model.DecisionAccepted)
	require.ErrorIs(t, err, myerrors.ErrAssignmentNotFound)

	_, err = h.resolver.HandleResponse(ctx, "no-order", "D1", model.DecisionAccepted)
	require.ErrorIs(t, err, myerrors.ErrAssignmentNotFound)
}

func TestResolver_RepeatedRejectIsIdempotent(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	h.driverAt("D2", 600)
	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := h.resolver.HandleStatusUpdate(ctx, a.ID, "D1", model.DecisionRejected)
		require.NoError(t, err)
		assert.Equal(t, model.ResultRecorded, res)
	}
	got, err := h.ledger.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status, "one rejection does not touch the assignment")
}

func TestResolver_AcceptAfterRejectingIsAlreadyResolved(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	h.driverAt("D2", 600)
	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	_, err = h.resolver.HandleStatusUpdate(ctx, a.ID, "D1", model.DecisionRejected)
	require.NoError(t, err)

	res, err := h.resolver.HandleStatusUpdate(ctx, a.ID, "D1", model.DecisionAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.ResultAlreadyResolved, res)
}

func TestResolver_AllRejectedWidensOnce(t *testing.T) {
	h := newHarness(t, harnessOpts{maxCandidates: 2, widen: true})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	h.driverAt("D2", 1200)

	first, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	// D3 only becomes visible to the widened search
	h.driverAt("D3", 7000)

	_, err = h.resolver.HandleStatusUpdate(ctx, first.ID, "D1", model.DecisionRejected)
	require.NoError(t, err)
	_, err = h.resolver.HandleStatusUpdate(ctx, first.ID, "D2", model.DecisionRejected)
	require.NoError(t, err)

	got, err := h.ledger.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, got.Status, "expired early without waiting for the window")

	list := h.repo.byOrder("O1")
	require.Len(t, list, 2)
	second := list[0]
	assert.Equal(t, 2, second.Attempt)
	assert.Equal(t, 8000, second.SearchRadiusMeters)
	assert.Equal(t, model.StatusPending, second.Status)
	assert.Equal(t, []string{"D3"}, second.CandidateDriverIDs)

	queries := h.directory.queryLog()
	require.Len(t, queries, 2)
	assert.Equal(t, 8000, queries[1].RadiusMeters)

	// the second round is terminal when everyone rejects again
	_, err = h.resolver.HandleStatusUpdate(ctx, second.ID, "D3", model.DecisionRejected)
	require.NoError(t, err)
	assert.Len(t, h.repo.byOrder("O1"), 2)
	_, _, failed, _ := h.publisher.counts()
	require.Equal(t, 1, failed)
	assert.Equal(t, string(model.ReasonAllRejected), h.publisher.failed[0].Reason)
}

func TestResolver_AllRejectedWithoutWidening(t *testing.T) {
	h := newHarness(t, harnessOpts{widen: false})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	_, err = h.resolver.HandleResponse(ctx, "O1", "D1", model.DecisionRejected)
	require.NoError(t, err)

	assert.Len(t, h.repo.byOrder("O1"), 1)
	_, _, failed, _ := h.publisher.counts()
	require.Equal(t, 1, failed)
	assert.Equal(t, a.ID, h.publisher.failed[0].AssignmentID)
	assert.Equal(t, string(model.ReasonAllRejected), h.publisher.failed[0].Reason)
}

func TestResolver_AcceptAfterWindowIsAlreadyResolved(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	h.clock.Advance(3 * time.Minute)
	res, err := h.resolver.HandleStatusUpdate(ctx, a.ID, "D1", model.DecisionAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.ResultAlreadyResolved, res)
}

func TestResolver_CompletionPublishFailureIsRetriedBySweep(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	h.publisher.setCompletedErr(errors.New("broker down"))
	res, err := h.resolver.HandleStatusUpdate(ctx, a.ID, "D1", model.DecisionAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.ResultCommitted, res)

	got, err := h.ledger.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, got.Status)

	h.publisher.setCompletedErr(nil)
	h.clock.Advance(3 * time.Minute)
	require.NoError(t, h.sweeper.Sweep(ctx))

	got, err = h.ledger.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, "D1", got.CommittedDriverID)
	_, completed, _, _ := h.publisher.counts()
	assert.Equal(t, 1, completed)
}
