package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

// writeServiceError maps service errors onto a status and a client-safe
// message. Anything unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var retry *service.RetryAfterError

	switch {
	case errors.As(err, &retry):
		w.Header().Set("Retry-After", strconv.FormatInt(max(retry.Seconds(), 1), 10))
		httpx.WriteError(w, http.StatusTooManyRequests, retry.Error())

	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrInvalidCredentials):
		// One message for both so the endpoint does not reveal which
		// numbers are registered.
		httpx.WriteError(w, http.StatusUnauthorized, "invalid mobile or password")
	case errors.Is(err, service.ErrAccountDisabled):
		httpx.WriteError(w, http.StatusForbidden, "account is disabled")
	case errors.Is(err, service.ErrNoPermissions):
		httpx.WriteError(w, http.StatusForbidden, "no permissions assigned to this account")

	case errors.Is(err, httpx.ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnknownReference),
		errors.Is(err, service.ErrParentNotFound),
		errors.Is(err, service.ErrWrongPassword):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRoleNotFound),
		errors.Is(err, service.ErrMenuNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrMobileTaken),
		errors.Is(err, service.ErrRoleNameTaken),
		errors.Is(err, service.ErrRoleInUse),
		errors.Is(err, service.ErrMenuHasChildren):
		httpx.WriteError(w, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrSuperAdminProtected),
		errors.Is(err, service.ErrRoleProtected):
		httpx.WriteError(w, http.StatusForbidden, err.Error())

	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads the JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(r, v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
