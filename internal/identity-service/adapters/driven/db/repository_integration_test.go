//go:build integration

package db

import (
	"context"
	"testing"
	"time"

	"food-dispatch/internal/identity-service/core/domain/model"
	"food-dispatch/internal/identity-service/core/myerrors"
	"food-dispatch/internal/mylogger"
	"food-dispatch/internal/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type IdentityRepoSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	repo      *IdentityRepo
	now       time.Time
}

func TestIdentityRepoSuite(t *testing.T) {
	suite.Run(t, new(IdentityRepoSuite))
}

func (s *IdentityRepoSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("identity_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	pool, err := pgxpool.New(ctx, dsn)
	s.Require().NoError(err)
	s.pool = pool

	s.repo = NewIdentityRepo(postgres.FromPool(pool, mylogger.Nop()))
	s.Require().NoError(s.repo.EnsureSchema(ctx))
}

func (s *IdentityRepoSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func (s *IdentityRepoSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(),
		"TRUNCATE TABLE driver_identities, driver_profiles, vehicles, driver_documents")
	s.Require().NoError(err)
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *IdentityRepoSuite) create(provisionalID, username string) {
	err := s.repo.Create(context.Background(), model.DriverIdentity{
		ProvisionalID: provisionalID,
		Status:        model.StatusPending,
		Attempts:      1,
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
	}, model.Registration{
		Profile: model.Profile{
			Username:      username,
			FirstName:     "Kamal",
			LastName:      "Silva",
			PhoneNumber:   "+94770000000",
			LicenseNumber: "L-" + username,
		},
		Vehicle: &model.Vehicle{VehicleType: "CAR", Brand: "Toyota", Year: 2019},
		Documents: []model.Document{
			{Type: "LICENSE", FileURL: "https://files/l"},
			{Type: "INSURANCE", FileURL: "https://files/i"},
		},
	})
	s.Require().NoError(err)
}

func (s *IdentityRepoSuite) countByDriver(table, driverID string) int {
	var n int
	err := s.pool.QueryRow(context.Background(), "SELECT count(*) FROM "+table+" WHERE driver_id = $1", driverID).Scan(&n)
	s.Require().NoError(err)
	return n
}

func (s *IdentityRepoSuite) TestCreateAndLoad() {
	ctx := context.Background()
	s.create("tmp-1", "kamal")

	id, err := s.repo.Get(ctx, "tmp-1")
	s.Require().NoError(err)
	s.Equal(model.StatusPending, id.Status)
	s.Empty(id.PermanentID)
	s.Equal(1, id.Attempts)

	reg, err := s.repo.LoadRegistration(ctx, "tmp-1")
	s.Require().NoError(err)
	s.Equal("kamal", reg.Profile.Username)
	s.Empty(reg.Profile.Email)
	s.Require().NotNil(reg.Vehicle)
	s.Equal("Toyota", reg.Vehicle.Brand)
	s.Equal(2019, reg.Vehicle.Year)
	s.Len(reg.Documents, 2)
}

func (s *IdentityRepoSuite) TestDuplicateUsernameRollsBack() {
	ctx := context.Background()
	s.create("tmp-1", "kamal")

	err := s.repo.Create(ctx, model.DriverIdentity{
		ProvisionalID: "tmp-2", Status: model.StatusPending, Attempts: 1, CreatedAt: s.now, UpdatedAt: s.now,
	}, model.Registration{Profile: model.Profile{Username: "kamal", FirstName: "a", LastName: "b", PhoneNumber: "1", LicenseNumber: "2"}})
	s.ErrorIs(err, myerrors.ErrDuplicateUsername)

	_, err = s.repo.Get(ctx, "tmp-2")
	s.ErrorIs(err, myerrors.ErrIdentityNotFound)
}

func (s *IdentityRepoSuite) TestCompleteRewritesDependents() {
	ctx := context.Background()
	s.create("tmp-1", "kamal")

	changed, err := s.repo.Complete(ctx, "tmp-1", "drv-100", s.now.Add(time.Second))
	s.Require().NoError(err)
	s.True(changed)

	for _, table := range dependentTables {
		s.Zero(s.countByDriver(table, "tmp-1"), table)
	}
	s.Equal(1, s.countByDriver("driver_profiles", "drv-100"))
	s.Equal(1, s.countByDriver("vehicles", "drv-100"))
	s.Equal(2, s.countByDriver("driver_documents", "drv-100"))

	id, err := s.repo.Get(ctx, "tmp-1")
	s.Require().NoError(err)
	s.Equal(model.StatusCompleted, id.Status)
	s.Equal("drv-100", id.PermanentID)

	changed, err = s.repo.Complete(ctx, "tmp-1", "drv-100", s.now.Add(2*time.Second))
	s.Require().NoError(err)
	s.False(changed)

	reg, err := s.repo.LoadRegistration(ctx, "drv-100")
	s.Require().NoError(err)
	s.Equal("kamal", reg.Profile.Username)
}

func (s *IdentityRepoSuite) TestCompleteUnknown() {
	_, err := s.repo.Complete(context.Background(), "missing", "drv-1", s.now)
	s.ErrorIs(err, myerrors.ErrIdentityNotFound)
}

func (s *IdentityRepoSuite) TestFailClaimAndList() {
	ctx := context.Background()
	s.create("tmp-1", "kamal")
	s.create("tmp-2", "sunil")

	changed, err := s.repo.MarkFailed(ctx, "tmp-1", "registry timeout", s.now.Add(time.Second))
	s.Require().NoError(err)
	s.True(changed)

	changed, err = s.repo.MarkFailed(ctx, "tmp-1", "again", s.now.Add(2*time.Second))
	s.Require().NoError(err)
	s.False(changed)

	failed, err := s.repo.ListFailed(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(failed, 1)
	s.Equal("tmp-1", failed[0].ProvisionalID)
	s.Equal("registry timeout", failed[0].LastError)

	claimed, err := s.repo.ClaimForRetry(ctx, "tmp-1", s.now.Add(3*time.Second))
	s.Require().NoError(err)
	s.True(claimed)
	claimed, err = s.repo.ClaimForRetry(ctx, "tmp-1", s.now.Add(4*time.Second))
	s.Require().NoError(err)
	s.False(claimed)

	id, err := s.repo.Get(ctx, "tmp-1")
	s.Require().NoError(err)
	s.Equal(model.StatusPending, id.Status)
	s.Equal(2, id.Attempts)

	_, err = s.repo.MarkFailed(ctx, "missing", "x", s.now)
	s.ErrorIs(err, myerrors.ErrIdentityNotFound)
}

func (s *IdentityRepoSuite) TestStalePendingClaim() {
	ctx := context.Background()
	s.create("tmp-1", "kamal")
	s.create("tmp-2", "sunil")

	_, err := s.repo.MarkFailed(ctx, "tmp-2", "registry timeout", s.now)
	s.Require().NoError(err)

	before := s.now.Add(time.Minute)
	stale, err := s.repo.ListStalePending(ctx, before, 10)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal("tmp-1", stale[0].ProvisionalID)

	none, err := s.repo.ListStalePending(ctx, s.now.Add(-time.Minute), 10)
	s.Require().NoError(err)
	s.Empty(none)

	claimed, err := s.repo.ClaimStale(ctx, "tmp-1", before, s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.True(claimed)
	claimed, err = s.repo.ClaimStale(ctx, "tmp-1", before, s.now.Add(3*time.Minute))
	s.Require().NoError(err)
	s.False(claimed)
	claimed, err = s.repo.ClaimStale(ctx, "tmp-2", before, s.now.Add(3*time.Minute))
	s.Require().NoError(err)
	s.False(claimed)

	id, err := s.repo.Get(ctx, "tmp-1")
	s.Require().NoError(err)
	s.Equal(model.StatusPending, id.Status)
	s.Equal(2, id.Attempts)
}
