// Package httperr turns backoffice errors into HTTP responses.
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andrebq/backoffice/auth"
	"github.com/andrebq/backoffice/internal/httpserver"
	"github.com/andrebq/backoffice/internal/logutil"
	"github.com/andrebq/backoffice/store"
)

const (
	retryAfterSeconds = "1"
	maxBodyBytes      = 1 << 20
)

// Write translates err into a status code and a message that is safe
// to show to clients. Server side failures are logged, never returned.
func Write(ctx context.Context, w http.ResponseWriter, err error) {
	status, msg := Classify(err)
	log := logutil.GetOrDefault(ctx)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	httpserver.WriteMessage(ctx, w, status, msg)
}

func Classify(err error) (int, string) {
	var verr auth.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Msg
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password."
	case errors.Is(err, auth.ErrNoToken):
		return http.StatusUnauthorized, "No token provided"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Failed to authenticate token"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, store.ErrDuplicate):
		return http.StatusBadRequest, "Username already exists."
	case errors.Is(err, store.ErrMissingReference):
		return http.StatusBadRequest, "Referenced record does not exist"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Record not found"
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// DecodeJSON reads the request body into out, a malformed body is reported
// as a ValidationError.
func DecodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(out)
	if err != nil {
		return auth.ValidationError{Msg: "Malformed request body"}
	}
	return nil
}
