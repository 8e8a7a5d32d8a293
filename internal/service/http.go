package service

import (
	"errors"
	"net/http"

	"github.com/openai-token-gateway/internal/httputil"
)

// HTTPStatus maps an ErrorKind to its corresponding HTTP status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrBadRequest, ErrAlreadyExists:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden, ErrExhausted:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrPersistence:
		return http.StatusServiceUnavailable
	case ErrUpstreamTimeout:
		return http.StatusGatewayTimeout
	case ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes an appropriate HTTP error response for a service error.
// Upstream errors are passed through with the provider's original status and
// body rather than translated. Anything that is not a *service.Error becomes
// a generic 500.
func RespondError(w http.ResponseWriter, err error) {
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	if svcErr.Kind == ErrUpstream {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(svcErr.UpstreamStatus)
		w.Write(svcErr.UpstreamBody)
		return
	}
	httputil.RespondError(w, svcErr.Kind.HTTPStatus(), svcErr.Code, svcErr.Message)
}
