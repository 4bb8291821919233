package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"food-dispatch/internal/assignment-service/core/myerrors"
)

// jsonResponse writes data as a JSON body with the given status code.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// JsonError writes {"error": ..., "code": ...} with the given status code.
func JsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

// statusFor maps core errors to HTTP codes. Unknown errors are 500 and their
// text is not leaked.
func statusFor(err error) (int, error) {
	switch {
	case errors.Is(err, myerrors.ErrActiveAssignmentExists),
		errors.Is(err, myerrors.ErrCannotCancel):
		return http.StatusConflict, err
	case errors.Is(err, myerrors.ErrAssignmentNotFound),
		errors.Is(err, myerrors.ErrOrderNotFound):
		return http.StatusNotFound, err
	case errors.Is(err, myerrors.ErrNotCandidate):
		return http.StatusForbidden, myerrors.ErrNotCandidate
	case errors.Is(err, myerrors.ErrInvalidDecision):
		return http.StatusBadRequest, myerrors.ErrInvalidDecision
	case errors.Is(err, myerrors.ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable, myerrors.ErrDirectoryUnavailable
	case errors.Is(err, myerrors.ErrOrderServiceDown):
		return http.StatusServiceUnavailable, myerrors.ErrOrderServiceDown
	default:
		return http.StatusInternalServerError, myerrors.ErrDBConnClosedMsg
	}
}
