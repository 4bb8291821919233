package handle

import (
	"encoding/json"
	"net/http"

	"food-dispatch/internal/identity-service/core/domain/dto"
	"food-dispatch/internal/identity-service/core/domain/model"
	"food-dispatch/internal/identity-service/core/ports"
	"food-dispatch/internal/mylogger"

	"github.com/go-chi/chi/v5"
)

type RegistrationHandler struct {
	svc ports.IRegistrationService
	log mylogger.Logger
}

func NewRegistrationHandler(svc ports.IRegistrationService, log mylogger.Logger) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, log: log}
}

// Register answers 202: the identity exists but the registry has not
// confirmed it yet.
func (h *RegistrationHandler) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.log.Action("register_driver")

		req := dto.RegisterRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		id, err := h.svc.Register(r.Context(), toRegistration(req))
		if err != nil {
			code, pubErr := statusFor(err)
			if code >= http.StatusInternalServerError {
				log.Error("registration failed", err)
			}
			JsonError(w, code, pubErr)
			return
		}
		jsonResponse(w, http.StatusAccepted, toIdentityDto(id))
	}
}

func (h *RegistrationHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := h.svc.Get(r.Context(), chi.URLParam(r, "provisionalId"))
		if err != nil {
			code, pubErr := statusFor(err)
			if code >= http.StatusInternalServerError {
				h.log.Action("get_identity").Error("cannot load identity", err)
			}
			JsonError(w, code, pubErr)
			return
		}
		jsonResponse(w, http.StatusOK, toIdentityDto(id))
	}
}

func toRegistration(req dto.RegisterRequest) model.Registration {
	reg := model.Registration{
		Profile: model.Profile{
			Username:      req.Username,
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			Email:         req.Email,
			PhoneNumber:   req.PhoneNumber,
			LicenseNumber: req.LicenseNumber,
		},
	}
	if v := req.Vehicle; v != nil {
		reg.Vehicle = &model.Vehicle{
			VehicleType:  v.Type,
			Brand:        v.Brand,
			Model:        v.Model,
			Year:         v.Year,
			LicensePlate: v.LicensePlate,
			Color:        v.Color,
		}
	}
	for _, d := range req.Documents {
		reg.Documents = append(reg.Documents, model.Document{Type: d.Type, FileURL: d.FileURL})
	}
	return reg
}

func toIdentityDto(id model.DriverIdentity) dto.IdentityDto {
	out := dto.IdentityDto{
		ProvisionalID:        id.ProvisionalID,
		DriverID:             id.DriverID(),
		ReconciliationStatus: string(id.Status),
		Attempts:             id.Attempts,
		LastError:            id.LastError,
		CreatedAt:            id.CreatedAt,
		UpdatedAt:            id.UpdatedAt,
	}
	if id.PermanentID != "" {
		perm := id.PermanentID
		out.PermanentID = &perm
	}
	return out
}
