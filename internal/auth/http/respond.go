package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ecowise/ecowise/internal/auth/domain"
	"github.com/ecowise/ecowise/internal/auth/service"
	"github.com/ecowise/ecowise/pkg/authsdk"
	"github.com/ecowise/ecowise/pkg/httpx"
	"github.com/ecowise/ecowise/pkg/slogx"
)

// maxBodyBytes caps request bodies; every auth payload is a few hundred bytes.
const maxBodyBytes = 64 << 10

// decodeJSON reads the request body into v. On failure it writes the 400
// response itself and returns false. A value of the wrong JSON type is
// reported against its field path the same way a validation failure is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		// An empty body decodes as an empty request so validation can
		// list every missing field.
		return true
	}
	if err == nil {
		// Exactly one JSON value; anything after it is rejected.
		if err := dec.Decode(&struct{}{}); errors.Is(err, io.EOF) {
			return true
		}
		httpx.WriteError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return false
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		writeValidation(w, authsdk.ValidationErrors{{
			Path: typeErr.Field,
			Msg:  authsdk.TypeErrorMessage(typeErr.Field),
		}})
	default:
		httpx.WriteError(w, http.StatusBadRequest, "Request body must be valid JSON")
	}
	return false
}

func writeValidation(w http.ResponseWriter, errs authsdk.ValidationErrors) {
	httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
		Success: false,
		Message: authsdk.MsgValidationFailed,
		Errors:  errs,
	})
}

// writeServiceError maps a service error onto the response envelope. Errors
// without a mapping are logged with detail and answered with a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs authsdk.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeValidation(w, verrs)
	case errors.Is(err, service.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusBadRequest, authsdk.MsgUserExists)
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.MsgInvalidCredentials)
	case errors.Is(err, service.ErrCurrentPasswordWrong):
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.MsgCurrentPasswordWrong)
	case errors.Is(err, service.ErrAccountDeactivated):
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.MsgAccountDeactivated)
	case errors.Is(err, service.ErrUnknownUser):
		httpx.WriteError(w, http.StatusUnauthorized, MsgNoUser)
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, httpx.MsgNotAuthorized)
	default:
		slogx.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		httpx.WriteError(w, http.StatusInternalServerError, authsdk.MsgServerError)
	}
}

// MsgNoUser answers a valid token whose user no longer exists.
const MsgNoUser = "No user found with this token"

// toSDKUser is the public projection of a stored user.
func toSDKUser(u domain.User) authsdk.User {
	badges := make([]authsdk.Badge, len(u.Badges))
	for i, b := range u.Badges {
		badges[i] = authsdk.Badge(b)
	}
	return authsdk.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      string(u.Role),
		Avatar:    u.Avatar,
		EcoPoints: u.EcoPoints,
		Level:     u.Level,
		Badges:    badges,
		Location: authsdk.Location{
			City:    u.Location.City,
			Country: u.Location.Country,
			Coordinates: authsdk.Coordinates{
				Lat: u.Location.Coordinates.Lat,
				Lng: u.Location.Coordinates.Lng,
			},
		},
		Preferences: authsdk.Preferences{
			Notifications: authsdk.Notifications(u.Preferences.Notifications),
			Theme:         string(u.Preferences.Theme),
		},
		IsVerified: u.IsVerified,
		IsActive:   u.IsActive,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

