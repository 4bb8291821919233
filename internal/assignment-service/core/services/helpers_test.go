package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	messagebrokerdto "food-dispatch/internal/assignment-service/core/domain/message_broker_dto"
	"food-dispatch/internal/assignment-service/core/domain/model"
	websocketdto "food-dispatch/internal/assignment-service/core/domain/websocket_dto"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/metrics"
	"food-dispatch/internal/mylogger"

	"github.com/prometheus/client_golang/prometheus"
)

const metersPerDegreeLat = earthRadiusMeters * 3.141592653589793 / 180

var colombo = model.Location{Lat: 6.9271, Lng: 79.8612}

func north(from model.Location, meters float64) model.Location {
	return model.Location{Lat: from.Lat + meters/metersPerDegreeLat, Lng: from.Lng}
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memRepo mirrors the conditional-update semantics of the postgres repository.
type memRepo struct {
	mu          sync.Mutex
	seq         int
	assignments map[string]*model.Assignment
	inserted    map[string]int
	candidates  map[string][]*model.Candidate
}

func newMemRepo() *memRepo {
	return &memRepo{
		assignments: map[string]*model.Assignment{},
		inserted:    map[string]int{},
		candidates:  map[string][]*model.Candidate{},
	}
}

func (m *memRepo) Insert(_ context.Context, a model.Assignment, candidates []model.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.assignments {
		if existing.OrderID == a.OrderID && existing.Status.IsActive() && a.Status.IsActive() {
			return myerrors.ErrActiveAssignmentExists
		}
	}
	cp := a
	cp.CandidateDriverIDs = append([]string(nil), a.CandidateDriverIDs...)
	m.assignments[a.ID] = &cp
	m.seq++
	m.inserted[a.ID] = m.seq
	rows := make([]*model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, &c)
	}
	m.candidates[a.ID] = rows
	return nil
}

func (m *memRepo) HasActive(_ context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.OrderID == orderID && a.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return model.Assignment{}, myerrors.ErrAssignmentNotFound
	}
	return copyAssignment(a), nil
}

func (m *memRepo) list(match func(*model.Assignment) bool) []model.Assignment {
	var out []model.Assignment
	for _, a := range m.assignments {
		if match(a) {
			out = append(out, copyAssignment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.inserted[out[i].ID] > m.inserted[out[j].ID] })
	return out
}

func (m *memRepo) ListByOrder(_ context.Context, orderID string) ([]model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(a *model.Assignment) bool { return a.OrderID == orderID }), nil
}

func (m *memRepo) ListByDriver(_ context.Context, driverID string) ([]model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(a *model.Assignment) bool { return a.HasCandidate(driverID) }), nil
}

func (m *memRepo) ListCandidates(_ context.Context, assignmentID string) ([]model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Candidate, 0, len(m.candidates[assignmentID]))
	for _, c := range m.candidates[assignmentID] {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memRepo) GetCandidate(_ context.Context, assignmentID, driverID string) (model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.candidate(assignmentID, driverID); c != nil {
		return *c, nil
	}
	return model.Candidate{}, myerrors.ErrNotCandidate
}

func (m *memRepo) candidate(assignmentID, driverID string) *model.Candidate {
	for _, c := range m.candidates[assignmentID] {
		if c.DriverID == driverID {
			return c
		}
	}
	return nil
}

func (m *memRepo) CommitDriver(_ context.Context, assignmentID, driverID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[assignmentID]
	if !ok || a.Status != model.StatusPending || !a.ExpiryTime.After(now) {
		return false, nil
	}
	c := m.candidate(assignmentID, driverID)
	if c == nil || c.ResponseStatus != model.ResponsePending {
		return false, nil
	}
	a.Status = model.StatusAccepted
	a.CommittedDriverID = driverID
	a.UpdatedAt = now
	return true, nil
}

func (m *memRepo) Transition(_ context.Context, assignmentID string, from []model.AssignmentStatus, to model.AssignmentStatus, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[assignmentID]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if a.Status == s {
			a.Status = to
			a.UpdatedAt = now
			if !to.HasCommittedDriver() {
				a.CommittedDriverID = ""
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ExpireOverdue(_ context.Context, now time.Time) ([]model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Assignment
	for _, a := range m.assignments {
		if a.Status == model.StatusPending && !a.ExpiryTime.After(now) {
			a.Status = model.StatusExpired
			a.UpdatedAt = now
			out = append(out, copyAssignment(a))
		}
	}
	return out, nil
}

func (m *memRepo) ListStaleAccepted(_ context.Context, updatedBefore time.Time) ([]model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(a *model.Assignment) bool {
		return a.Status == model.StatusAccepted && a.UpdatedAt.Before(updatedBefore)
	}), nil
}

func (m *memRepo) SetCandidateResponse(_ context.Context, assignmentID, driverID string, to model.ResponseStatus, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.candidate(assignmentID, driverID)
	if c == nil || c.ResponseStatus != model.ResponsePending {
		return false, nil
	}
	c.ResponseStatus = to
	t := now
	c.RespondedAt = &t
	return true, nil
}

func (m *memRepo) ClosePendingCandidates(_ context.Context, assignmentID string, to model.ResponseStatus, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.candidates[assignmentID] {
		if c.ResponseStatus == model.ResponsePending {
			c.ResponseStatus = to
			t := now
			c.RespondedAt = &t
			n++
		}
	}
	return n, nil
}

func (m *memRepo) byOrder(orderID string) []model.Assignment {
	list, _ := m.ListByOrder(context.Background(), orderID)
	return list
}

func copyAssignment(a *model.Assignment) model.Assignment {
	cp := *a
	cp.CandidateDriverIDs = append([]string(nil), a.CandidateDriverIDs...)
	return cp
}

type fakeDirectory struct {
	mu      sync.Mutex
	drivers []model.NearbyDriver
	err     error
	queries []model.NearbyQuery
}

func (f *fakeDirectory) Nearby(_ context.Context, q model.NearbyQuery) ([]model.NearbyDriver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.NearbyDriver(nil), f.drivers...), nil
}

func (f *fakeDirectory) queryLog() []model.NearbyQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.NearbyQuery(nil), f.queries...)
}

type fakeOrders struct {
	details map[string]model.OrderDetails
}

func (f *fakeOrders) GetOrderDetails(_ context.Context, orderID string) (model.OrderDetails, error) {
	d, ok := f.details[orderID]
	if !ok {
		return model.OrderDetails{}, myerrors.ErrOrderNotFound
	}
	return d, nil
}

type recordingPublisher struct {
	mu           sync.Mutex
	offers       []messagebrokerdto.OrderOffer
	completed    []messagebrokerdto.AssignmentCompleted
	failed       []messagebrokerdto.AssignmentFailed
	cancelled    []messagebrokerdto.AssignmentCancelled
	completedErr error
}

func (p *recordingPublisher) PublishOffer(_ context.Context, offer messagebrokerdto.OrderOffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offers = append(p.offers, offer)
	return nil
}

func (p *recordingPublisher) PublishCompleted(_ context.Context, msg messagebrokerdto.AssignmentCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completedErr != nil {
		return p.completedErr
	}
	p.completed = append(p.completed, msg)
	return nil
}

func (p *recordingPublisher) PublishFailed(_ context.Context, msg messagebrokerdto.AssignmentFailed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, msg)
	return nil
}

func (p *recordingPublisher) PublishCancelled(_ context.Context, msg messagebrokerdto.AssignmentCancelled) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, msg)
	return nil
}

func (p *recordingPublisher) setCompletedErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completedErr = err
}

func (p *recordingPublisher) counts() (offers, completed, failed, cancelled int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.offers), len(p.completed), len(p.failed), len(p.cancelled)
}

type recordingPusher struct {
	mu   sync.Mutex
	sent map[string][]websocketdto.Event
}

func (p *recordingPusher) SendToDriver(driverID string, event websocketdto.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = map[string][]websocketdto.Event{}
	}
	p.sent[driverID] = append(p.sent[driverID], event)
	return nil
}

func (p *recordingPusher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, evs := range p.sent {
		n += len(evs)
	}
	return n
}

type harness struct {
	clock     *testClock
	repo      *memRepo
	directory *fakeDirectory
	orders    *fakeOrders
	publisher *recordingPublisher
	pusher    *recordingPusher
	metrics   *metrics.Dispatch

	ledger       *AssignmentLedger
	orchestrator *Orchestrator
	resolver     *ResponseResolver
	sweeper      *ExpirySweeper
}

type harnessOpts struct {
	maxCandidates int
	widen         bool
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()
	if opts.maxCandidates == 0 {
		opts.maxCandidates = 3
	}
	log := mylogger.Nop()
	h := &harness{
		clock:     newTestClock(),
		repo:      newMemRepo(),
		directory: &fakeDirectory{},
		orders:    &fakeOrders{details: map[string]model.OrderDetails{}},
		publisher: &recordingPublisher{},
		pusher:    &recordingPusher{},
		metrics:   metrics.NewDispatch(prometheus.NewRegistry()),
	}
	now := h.clock.Now
	h.ledger = NewAssignmentLedger(h.repo, 2*time.Minute, now, h.metrics, log)
	selector := NewCandidateSelector(h.directory, opts.maxCandidates, log)
	fanout := NewNotificationFanout(h.publisher, h.pusher, h.metrics, log)
	h.orchestrator = NewOrchestrator(h.orders, selector, h.ledger, fanout, h.publisher, DispatchPolicy{
		SearchRadiusMeters:  5000,
		WidenedRadiusMeters: 8000,
		WidenOnExhaustion:   opts.widen,
		Currency:            "LKR",
	}, now, log)
	h.resolver = NewResponseResolver(h.ledger, h.repo, h.publisher, h.orchestrator, now, h.metrics, log)
	h.sweeper = NewExpirySweeper(h.ledger, h.publisher, now, log)
	return h
}

func (h *harness) addOrder(orderID string) {
	h.orders.details[orderID] = model.OrderDetails{
		OrderID:     orderID,
		Restaurant:  model.Place{ID: "R1", Name: "Kottu Hut", Address: "12 Galle Rd", Location: colombo},
		Customer:    model.Place{ID: "C1", Name: "Nimal", Address: "4 Flower Rd", Location: north(colombo, 2500)},
		Items:       []model.OrderItem{{Name: "Chicken kottu", Quantity: 2, Price: 1450}},
		Total:       2900,
		DeliveryFee: 250,
	}
}

func (h *harness) driverAt(id string, meters float64) {
	h.directory.drivers = append(h.directory.drivers, model.NearbyDriver{
		DriverID:       id,
		Location:       north(colombo, meters),
		DistanceMeters: meters,
	})
}
