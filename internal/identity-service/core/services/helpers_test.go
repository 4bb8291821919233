package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"food-dispatch/internal/identity-service/core/domain/model"
	"food-dispatch/internal/identity-service/core/myerrors"
)

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

// memRepo mirrors the conditional updates of the postgres repository.
// Dependents are keyed by the driver id they currently reference.
type memRepo struct {
	mu         sync.Mutex
	identities map[string]*model.DriverIdentity
	dependents map[string]model.Registration
	loadErr    error
	// completeErrs fail the next Complete calls, one per call.
	completeErrs []error
}

func newMemRepo() *memRepo {
	return &memRepo{
		identities: map[string]*model.DriverIdentity{},
		dependents: map[string]model.Registration{},
	}
}

func (m *memRepo) Create(_ context.Context, id model.DriverIdentity, reg model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.dependents {
		if r.Profile.Username == reg.Profile.Username {
			return myerrors.ErrDuplicateUsername
		}
	}
	cp := id
	m.identities[id.ProvisionalID] = &cp
	reg.DriverID = id.ProvisionalID
	m.dependents[id.ProvisionalID] = reg
	return nil
}

func (m *memRepo) Get(_ context.Context, provisionalID string) (model.DriverIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[provisionalID]
	if !ok {
		return model.DriverIdentity{}, myerrors.ErrIdentityNotFound
	}
	return *id, nil
}

func (m *memRepo) ListFailed(_ context.Context, limit int) ([]model.DriverIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DriverIdentity
	for _, id := range m.identities {
		if id.Status == model.StatusFailed {
			out = append(out, *id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProvisionalID < out[j].ProvisionalID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) ListStalePending(_ context.Context, before time.Time, limit int) ([]model.DriverIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DriverIdentity
	for _, id := range m.identities {
		if id.Status == model.StatusPending && !id.UpdatedAt.After(before) {
			out = append(out, *id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProvisionalID < out[j].ProvisionalID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) LoadRegistration(_ context.Context, driverID string) (model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return model.Registration{}, m.loadErr
	}
	reg, ok := m.dependents[driverID]
	if !ok {
		return model.Registration{}, myerrors.ErrIdentityNotFound
	}
	return reg, nil
}

func (m *memRepo) Complete(_ context.Context, provisionalID, permanentID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.completeErrs) > 0 {
		err := m.completeErrs[0]
		m.completeErrs = m.completeErrs[1:]
		return false, err
	}
	id, ok := m.identities[provisionalID]
	if !ok {
		return false, myerrors.ErrIdentityNotFound
	}
	if id.Status == model.StatusCompleted {
		return false, nil
	}
	id.Status = model.StatusCompleted
	id.PermanentID = permanentID
	id.LastError = ""
	id.UpdatedAt = now
	if reg, ok := m.dependents[provisionalID]; ok {
		delete(m.dependents, provisionalID)
		reg.DriverID = permanentID
		m.dependents[permanentID] = reg
	}
	return true, nil
}

func (m *memRepo) MarkFailed(_ context.Context, provisionalID, reason string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[provisionalID]
	if !ok {
		return false, myerrors.ErrIdentityNotFound
	}
	if id.Status != model.StatusPending {
		return false, nil
	}
	id.Status = model.StatusFailed
	id.LastError = reason
	id.UpdatedAt = now
	return true, nil
}

func (m *memRepo) ClaimForRetry(_ context.Context, provisionalID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[provisionalID]
	if !ok || id.Status != model.StatusFailed {
		return false, nil
	}
	id.Status = model.StatusPending
	id.Attempts++
	id.UpdatedAt = now
	return true, nil
}

func (m *memRepo) ClaimStale(_ context.Context, provisionalID string, before, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[provisionalID]
	if !ok || id.Status != model.StatusPending || id.UpdatedAt.After(before) {
		return false, nil
	}
	id.Attempts++
	id.UpdatedAt = now
	return true, nil
}

func (m *memRepo) dependentIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.dependents))
	for k := range m.dependents {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sampleRegistration(username string) model.Registration {
	return model.Registration{
		Profile: model.Profile{
			Username:      username,
			FirstName:     "Nimal",
			LastName:      "Perera",
			Email:         username + "@example.com",
			PhoneNumber:   "+94771234567",
			LicenseNumber: "B1234567",
		},
		Vehicle: &model.Vehicle{
			VehicleType:  "MOTORBIKE",
			Brand:        "Honda",
			Model:        "Dio",
			Year:         2021,
			LicensePlate: "WP-BCD-1234",
			Color:        "red",
		},
		Documents: []model.Document{{Type: "LICENSE", FileURL: "https://files.example.com/l.png"}},
	}
}
