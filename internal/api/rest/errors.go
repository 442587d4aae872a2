package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/imamik/kubedash/internal/api/middleware"
	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/credential"
	"github.com/imamik/kubedash/internal/platform/ssh"
)

// APIError is the structured error response body.
type APIError struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Error codes.
const (
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeProvisioningFailed   = "PROVISIONING_FAILED"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	ErrCodeRolloutRejected      = "ROLLOUT_REJECTED"
	ErrCodePersistenceFailed    = "PERSISTENCE_FAILED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// respondStructuredError sends a structured error response with error code and details.
func respondStructuredError(w http.ResponseWriter, status int, code, message, requestID string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{
		Error:     message,
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Details:   details,
	})
}

// respondError classifies err and writes the matching structured error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, details := classify(err)
	respondStructuredError(w, status, code, err.Error(), middleware.RequestIDFromContext(r.Context()), details)
}

// respondBadRequest writes a 400 for a malformed request.
func respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	respondStructuredError(w, http.StatusBadRequest, ErrCodeInvalidRequest, message, middleware.RequestIDFromContext(r.Context()), nil)
}

// classify maps an error kind to an HTTP status and error code.
func classify(err error) (int, string, map[string]string) {
	var perr *credential.ProvisioningError
	if errors.As(err, &perr) {
		details := map[string]string{"stage": string(perr.Stage)}
		if errors.Is(err, ssh.ErrAuthentication) {
			return http.StatusUnauthorized, ErrCodeAuthenticationFailed, details
		}
		return http.StatusBadGateway, ErrCodeProvisioningFailed, details
	}

	switch {
	case errors.Is(err, cluster.ErrInvalidArgument):
		return http.StatusBadRequest, ErrCodeInvalidRequest, nil
	case errors.Is(err, cluster.ErrRolloutRejected):
		return http.StatusBadGateway, ErrCodeRolloutRejected, nil
	case errors.Is(err, cluster.ErrNotFound), apierrors.IsNotFound(err):
		return http.StatusNotFound, ErrCodeNotFound, nil
	case errors.Is(err, cluster.ErrValidationFailed):
		return http.StatusUnprocessableEntity, ErrCodeValidationFailed, nil
	case errors.Is(err, cluster.ErrPersistence):
		return http.StatusInternalServerError, ErrCodePersistenceFailed, nil
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, nil
	}
}
