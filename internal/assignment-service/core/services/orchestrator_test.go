package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	messagebrokerdto "food-dispatch/internal/assignment-service/core/domain/message_broker_dto"
	"food-dispatch/internal/assignment-service/core/domain/model"
	websocketdto "food-dispatch/internal/assignment-service/core/domain/websocket_dto"
	"food-dispatch/internal/assignment-service/core/myerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrchestrator_ZeroCandidatesScenario(t *testing.T) {
	h := newHarness(t, harnessOpts{widen: true})
	ctx := context.Background()
	h.addOrder("O2")

	a, err := h.orchestrator.ProcessOrder(ctx, "O2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, a.Status)

	cands, err := h.ledger.Candidates(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, cands)

	offers, _, failed, _ := h.publisher.counts()
	assert.Zero(t, offers)
	assert.Zero(t, h.pusher.total())
	require.Equal(t, 1, failed)
	assert.Equal(t, string(model.ReasonNoDriversAvailable), h.publisher.failed[0].Reason)
	assert.Len(t, h.directory.queryLog(), 1, "no automatic retry")
}

func TestOrchestrator_OffersCarryOrderContext(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	h.driverAt("D2", 1200)

	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, a.Status)

	offers, _, _, _ := h.publisher.counts()
	require.Equal(t, 2, offers)
	byDriver := map[string]messagebrokerdto.OrderOffer{}
	for _, o := range h.publisher.offers {
		byDriver[o.DriverID] = o
	}
	o := byDriver["D1"]
	assert.Equal(t, a.ID, o.AssignmentID)
	assert.Equal(t, "ORD-O1", o.OrderNumber)
	assert.Equal(t, "Kottu Hut", o.RestaurantName)
	assert.Equal(t, "12 Galle Rd", o.Pickup.Address)
	assert.Equal(t, "4 Flower Rd", o.Dropoff.Address)
	assert.Equal(t, 2900.0, o.Payment)
	assert.Equal(t, 250.0, o.DeliveryFee)
	assert.Equal(t, "LKR", o.Currency)
	assert.Len(t, o.Items, 1)
	assert.True(t, o.ExpiryTime.Equal(h.clock.Now().Add(2*time.Minute)))
	assert.InDelta(t, 500, o.DistanceMeters, 1)
	assert.InDelta(t, 1200, byDriver["D2"].DistanceMeters, 1)

	require.Len(t, h.pusher.sent["D1"], 1)
	ev := h.pusher.sent["D1"][0]
	assert.Equal(t, websocketdto.TypeOrderOffer, ev.Type)
	var pushed messagebrokerdto.OrderOffer
	require.NoError(t, json.Unmarshal(ev.Data, &pushed))
	assert.Equal(t, o.AssignmentID, pushed.AssignmentID)
	assert.Equal(t, o.DriverID, pushed.DriverID)
}

func TestOrchestrator_RejectsReinvocationWhileActive(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)

	_, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	_, err = h.orchestrator.ProcessOrder(ctx, "O1")
	require.ErrorIs(t, err, myerrors.ErrActiveAssignmentExists)
	assert.Len(t, h.directory.queryLog(), 1)
	assert.Len(t, h.repo.byOrder("O1"), 1)
}

func TestOrchestrator_DownstreamFailuresHaveNoSideEffects(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()

	_, err := h.orchestrator.ProcessOrder(ctx, "vanished")
	require.ErrorIs(t, err, myerrors.ErrOrderNotFound)

	h.addOrder("O1")
	h.directory.err = errors.New("connection refused")
	_, err = h.orchestrator.ProcessOrder(ctx, "O1")
	require.ErrorIs(t, err, myerrors.ErrDirectoryUnavailable)

	assert.Empty(t, h.repo.byOrder("O1"))
	offers, _, failed, _ := h.publisher.counts()
	assert.Zero(t, offers)
	assert.Zero(t, failed)
}

func TestOrchestrator_AbandonOrder(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()

	a, err := h.orchestrator.AbandonOrder(ctx, "O1", model.ReasonDirectoryUnavailable)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, a.Status)
	assert.Len(t, h.repo.byOrder("O1"), 1)

	_, _, failed, _ := h.publisher.counts()
	require.Equal(t, 1, failed)
	assert.Equal(t, string(model.ReasonDirectoryUnavailable), h.publisher.failed[0].Reason)
	assert.Equal(t, "O1", h.publisher.failed[0].OrderID)
	assert.Empty(t, h.directory.queryLog())
}

func TestOrchestrator_AbandonOrderKeepsActiveAssignment(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	_, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	_, err = h.orchestrator.AbandonOrder(ctx, "O1", model.ReasonDirectoryUnavailable)
	require.ErrorIs(t, err, myerrors.ErrActiveAssignmentExists)
	_, _, failed, _ := h.publisher.counts()
	assert.Zero(t, failed)
}

func TestOrchestrator_Cancel(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 500)
	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	got, err := h.orchestrator.Cancel(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = h.orchestrator.Cancel(ctx, a.ID)
	require.ErrorIs(t, err, myerrors.ErrCannotCancel)

	_, err = h.orchestrator.Cancel(ctx, "missing")
	require.ErrorIs(t, err, myerrors.ErrAssignmentNotFound)

	_, _, _, cancelled := h.publisher.counts()
	assert.Equal(t, 1, cancelled)

	res, err := h.resolver.HandleStatusUpdate(ctx, a.ID, "D1", model.DecisionAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.ResultAlreadyResolved, res)

	_, err = h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err, "a cancelled assignment no longer blocks the order")
}

func TestOrchestrator_ExactlyOneCommittedPerOrder(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.addOrder("O1")
	h.driverAt("D1", 300)
	h.driverAt("D2", 700)
	h.driverAt("D3", 900)
	a, err := h.orchestrator.ProcessOrder(ctx, "O1")
	require.NoError(t, err)

	for _, d := range []string{"D3", "D1", "D2"} {
		_, err := h.resolver.HandleResponse(ctx, "O1", d, model.DecisionAccepted)
		require.NoError(t, err)
	}

	committed := 0
	for _, x := range h.repo.byOrder("O1") {
		if x.Status.HasCommittedDriver() {
			committed++
			assert.Contains(t, a.CandidateDriverIDs, x.CommittedDriverID)
		}
	}
	assert.Equal(t, 1, committed)
}
