package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"food-dispatch/internal/identity-service/core/myerrors"
)

func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

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

func statusFor(err error) (int, error) {
	switch {
	case errors.Is(err, myerrors.ErrInvalidRequest):
		return http.StatusBadRequest, err
	case errors.Is(err, myerrors.ErrDuplicateUsername):
		return http.StatusConflict, myerrors.ErrDuplicateUsername
	case errors.Is(err, myerrors.ErrIdentityNotFound):
		return http.StatusNotFound, myerrors.ErrIdentityNotFound
	default:
		return http.StatusInternalServerError, myerrors.ErrDBConnClosedMsg
	}
}
