package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"food-dispatch/internal/assignment-service/core/domain/dto"
	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/mylogger"

	"github.com/go-chi/chi/v5"
)

var (
	errMissingDriver       = errors.New("driverId is required")
	errMissingAssignmentID = errors.New("assignmentId is required")
	errDriverMismatch      = errors.New("driverId does not match the token")
)

type AssignmentHandler struct {
	orchestrator ports.IOrchestrator
	resolver     ports.IResponseResolver
	reader       ports.IAssignmentReader
	log          mylogger.Logger
}

func NewAssignmentHandler(o ports.IOrchestrator, r ports.IResponseResolver, reader ports.IAssignmentReader, log mylogger.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		orchestrator: o,
		resolver:     r,
		reader:       reader,
		log:          log,
	}
}

func (h *AssignmentHandler) ProcessOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		log := h.log.Action("process_order").With("order_id", orderID)

		a, err := h.orchestrator.ProcessOrder(r.Context(), orderID)
		if err != nil {
			h.fail(w, log, err)
			return
		}

		res := toAssignmentDto(a, nil)
		if a.Status == model.StatusExpired {
			res.Result = string(model.ReasonNoDriversAvailable)
			jsonResponse(w, http.StatusOK, res)
			return
		}
		jsonResponse(w, http.StatusCreated, res)
	}
}

func (h *AssignmentHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.log.Action("update_status")

		req := dto.StatusUpdateRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}
		if req.AssignmentID == "" {
			JsonError(w, http.StatusBadRequest, errMissingAssignmentID)
			return
		}

		driverID := req.DriverID
		if fromToken, ok := DriverFromContext(r.Context()); ok {
			if driverID != "" && driverID != fromToken {
				JsonError(w, http.StatusForbidden, errDriverMismatch)
				return
			}
			driverID = fromToken
		}
		if driverID == "" {
			JsonError(w, http.StatusBadRequest, errMissingDriver)
			return
		}

		decision := model.Decision(strings.ToUpper(strings.TrimSpace(req.Status)))
		result, err := h.resolver.HandleStatusUpdate(r.Context(), req.AssignmentID, driverID, decision)
		if err != nil {
			h.fail(w, log.With("assignment_id", req.AssignmentID, "driver_id", driverID), err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.StatusUpdateResponse{
			AssignmentID: req.AssignmentID,
			DriverID:     driverID,
			Result:       string(result),
		})
	}
}

func (h *AssignmentHandler) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "assignmentId")
		a, err := h.orchestrator.Cancel(r.Context(), id)
		if err != nil {
			h.fail(w, h.log.Action("cancel").With("assignment_id", id), err)
			return
		}
		jsonResponse(w, http.StatusOK, toAssignmentDto(a, nil))
	}
}

func (h *AssignmentHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "assignmentId")
		log := h.log.Action("get_assignment").With("assignment_id", id)

		a, err := h.reader.Get(r.Context(), id)
		if err != nil {
			h.fail(w, log, err)
			return
		}
		candidates, err := h.reader.Candidates(r.Context(), id)
		if err != nil {
			h.fail(w, log, err)
			return
		}
		jsonResponse(w, http.StatusOK, toAssignmentDto(a, candidates))
	}
}

func (h *AssignmentHandler) ListByOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		list, err := h.reader.ListByOrder(r.Context(), orderID)
		if err != nil {
			h.fail(w, h.log.Action("list_by_order").With("order_id", orderID), err)
			return
		}
		jsonResponse(w, http.StatusOK, toAssignmentDtos(list))
	}
}

func (h *AssignmentHandler) ListByDriver() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := chi.URLParam(r, "driverId")
		list, err := h.reader.ListByDriver(r.Context(), driverID)
		if err != nil {
			h.fail(w, h.log.Action("list_by_driver").With("driver_id", driverID), err)
			return
		}
		jsonResponse(w, http.StatusOK, toAssignmentDtos(list))
	}
}

func (h *AssignmentHandler) fail(w http.ResponseWriter, log mylogger.Logger, err error) {
	code, public := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", err)
	} else {
		log.Debug("request rejected", "status", code, "error", err.Error())
	}
	JsonError(w, code, public)
}

func toAssignmentDto(a model.Assignment, candidates []model.Candidate) dto.AssignmentDto {
	out := dto.AssignmentDto{
		ID:                 a.ID,
		OrderID:            a.OrderID,
		Status:             string(a.Status),
		CandidateDriverIDs: a.CandidateDriverIDs,
		Attempt:            a.Attempt,
		SearchRadiusMeters: a.SearchRadiusMeters,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
		ExpiryTime:         a.ExpiryTime,
	}
	if out.CandidateDriverIDs == nil {
		out.CandidateDriverIDs = []string{}
	}
	if a.CommittedDriverID != "" {
		committed := a.CommittedDriverID
		out.CommittedDriverID = &committed
	}
	for _, c := range candidates {
		out.Candidates = append(out.Candidates, dto.CandidateDto{
			DriverID:       c.DriverID,
			DistanceMeters: c.DistanceMeters,
			ResponseStatus: string(c.ResponseStatus),
			RespondedAt:    c.RespondedAt,
		})
	}
	return out
}

func toAssignmentDtos(list []model.Assignment) []dto.AssignmentDto {
	out := make([]dto.AssignmentDto, 0, len(list))
	for _, a := range list {
		out = append(out, toAssignmentDto(a, nil))
	}
	return out
}
