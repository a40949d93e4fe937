package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/authsdk"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// writeServiceError maps a service error to its HTTP response. Anything
// unclassified is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	errors.As(err, &se)

	message := func(fallback string) string {
		if se != nil {
			return se.Message
		}
		return fallback
	}

	var apiErr *authsdk.APIError
	switch {
	case errors.Is(err, service.ErrValidation):
		apiErr = authsdk.NewAPIError(http.StatusBadRequest, authsdk.ErrorCodeValidation, message("invalid request"))
		if se != nil {
			apiErr.Fields = se.Fields
		}
	case errors.Is(err, service.ErrConflict):
		apiErr = authsdk.NewAPIError(http.StatusConflict, authsdk.ErrorCodeConflict, message("conflict"))
	case errors.Is(err, service.ErrUnauthenticated):
		apiErr = authsdk.NewAPIError(http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized, message("unauthorized"))
	case errors.Is(err, service.ErrNotFound):
		apiErr = authsdk.NewAPIError(http.StatusNotFound, authsdk.ErrorCodeNotFound, message("not found"))
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		apiErr = authsdk.ErrServerError
	}
	apiErr.WriteError(w)
}
