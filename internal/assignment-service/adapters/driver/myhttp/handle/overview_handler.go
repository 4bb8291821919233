package handle

import (
	"net/http"

	"food-dispatch/internal/assignment-service/core/domain/dto"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/mylogger"
)

type OverviewHandler struct {
	svc ports.IOverviewService
	log mylogger.Logger
}

func NewOverviewHandler(svc ports.IOverviewService, log mylogger.Logger) *OverviewHandler {
	return &OverviewHandler{svc: svc, log: log}
}

func (h *OverviewHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := h.svc.Overview(r.Context())
		if err != nil {
			h.log.Action("overview").Error("cannot build overview", err)
			JsonError(w, http.StatusInternalServerError, myerrors.ErrDBConnClosedMsg)
			return
		}
		jsonResponse(w, http.StatusOK, dto.OverviewDto{
			Timestamp:            o.Timestamp,
			Since:                o.Since,
			PendingAssignments:   o.Pending,
			AcceptedAssignments:  o.Accepted,
			CreatedToday:         o.CreatedToday,
			CompletedToday:       o.CompletedToday,
			ExpiredToday:         o.ExpiredToday,
			CancelledToday:       o.CancelledToday,
			RejectedOffersToday:  o.RejectedOffersToday,
			AverageAcceptSeconds: o.AverageAcceptSeconds,
			ConnectedDrivers:     o.ConnectedDrivers,
		})
	}
}
