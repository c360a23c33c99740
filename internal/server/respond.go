package server

import (
	"encoding/json"
	"errors"
	"net/http"

	errs "github.com/matzehuels/trialviz/pkg/errors"
)

type errorResponse struct {
	Error string    `json:"error"`
	Code  errs.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: errs.UserMessage(err), Code: errs.GetCode(err)})
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	var rl *errs.RateLimitedError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidConfig,
		errs.ErrCodeInvalidDataset, errs.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound, errs.ErrCodeNodeNotFound, errs.ErrCodeFileNotFound, errs.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case errs.ErrCodeEmptyDataset:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case errs.ErrCodeNetwork:
		return http.StatusBadGateway
	case errs.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
