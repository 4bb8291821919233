package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"food-dispatch/internal/identity-service/core/domain/model"
	"food-dispatch/internal/identity-service/core/myerrors"
	"food-dispatch/internal/identity-service/core/ports"
	"food-dispatch/internal/mylogger"

	"github.com/google/uuid"
)

// RegistrationService is the self-registration intake. It mints the
// provisional id and sends the first registration request.
type RegistrationService struct {
	repo      ports.IIdentityRepo
	publisher ports.IRegistryPublisher
	now       Clock
	log       mylogger.Logger
}

var _ ports.IRegistrationService = (*RegistrationService)(nil)

func NewRegistrationService(repo ports.IIdentityRepo, publisher ports.IRegistryPublisher, now Clock, log mylogger.Logger) *RegistrationService {
	if now == nil {
		now = time.Now
	}
	return &RegistrationService{
		repo:      repo,
		publisher: publisher,
		now:       now,
		log:       log,
	}
}

// Register stores the driver under a new provisional id. A failed publish
// does not fail the registration: the identity is left FAILED and the retry
// sweep sends it later.
func (s *RegistrationService) Register(ctx context.Context, reg model.Registration) (model.DriverIdentity, error) {
	if err := validate(reg); err != nil {
		return model.DriverIdentity{}, err
	}

	now := s.now()
	id := model.DriverIdentity{
		ProvisionalID: uuid.NewString(),
		Status:        model.StatusPending,
		Attempts:      1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	reg.DriverID = id.ProvisionalID
	log := s.log.Action("register").With("provisional_id", id.ProvisionalID)

	if err := s.repo.Create(ctx, id, reg); err != nil {
		return model.DriverIdentity{}, fmt.Errorf("store registration: %w", err)
	}

	if err := s.publisher.PublishRegistration(ctx, registrationMessage(id.ProvisionalID, reg, id.Attempts, nil)); err != nil {
		log.Error("registration request not published, leaving it to the retry sweep", err)
		if _, mErr := s.repo.MarkFailed(ctx, id.ProvisionalID, err.Error(), s.now()); mErr != nil {
			log.Error("cannot mark identity failed", mErr)
		}
		id.Status = model.StatusFailed
		id.LastError = err.Error()
		return id, nil
	}

	log.Info("driver registered")
	return id, nil
}

func (s *RegistrationService) Get(ctx context.Context, provisionalID string) (model.DriverIdentity, error) {
	return s.repo.Get(ctx, provisionalID)
}

func validate(reg model.Registration) error {
	var missing []string
	p := reg.Profile
	for name, v := range map[string]string{
		"username":      p.Username,
		"firstName":     p.FirstName,
		"lastName":      p.LastName,
		"phoneNumber":   p.PhoneNumber,
		"licenseNumber": p.LicenseNumber,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: missing %s", myerrors.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if v := reg.Vehicle; v != nil && strings.TrimSpace(v.VehicleType) == "" {
		return fmt.Errorf("%w: vehicle needs a vehicleType", myerrors.ErrInvalidRequest)
	}
	return nil
}
