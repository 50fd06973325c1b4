package http

import (
	"net/http"

	"github.com/ecowise/ecowise/internal/auth/observability"
	"github.com/ecowise/ecowise/pkg/authsdk"
	"github.com/ecowise/ecowise/pkg/httpx"
)

// HandleGetProfile returns the authenticated user.
//
//	@Summary		Get profile
//	@Tags			Profile
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.ProfileResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token, or account deactivated"
//	@Router			/api/auth/profile [get].
func (h *AuthHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "no authenticated user")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.ProfileResponse{Success: true, User: toSDKUser(u)})
}

// HandleUpdateProfile merges a partial profile update.
//
//	@Summary		Update profile
//	@Description	Applies the fields present in the body. Email, password, role and account flags cannot be changed here.
//	@Tags			Profile
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.UpdateProfileRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.ProfileResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		500		{object}	authsdk.ErrorResponse
//	@Router			/api/auth/profile [put].
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "no authenticated user")
		return
	}

	var req authsdk.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.Users.UpdateProfile(r.Context(), u.ID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.ProfileResponse{Success: true, User: toSDKUser(updated)})
}

// HandleChangePassword replaces the password and returns a new token.
//
//	@Summary		Change password
//	@Description	Every token issued before the change stops working. The response carries the replacement token, which is also set as the "token" cookie.
//	@Tags			Profile
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		200		{object}	authsdk.ChangePasswordResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Current password is incorrect, or token invalid"
//	@Failure		500		{object}	authsdk.ErrorResponse
//	@Router			/api/auth/change-password [put].
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "no authenticated user")
		return
	}

	var req authsdk.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		h.Metrics.RecordAuth("change_password", observability.OutcomeInvalid)
		return
	}

	token, err := h.Users.ChangePassword(r.Context(), u.ID, req)
	if err != nil {
		h.Metrics.RecordAuth("change_password", outcomeOf(err))
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordAuth("change_password", observability.OutcomeSuccess)
	h.setTokenCookie(w, token)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ChangePasswordResponse{
		Success: true,
		Message: authsdk.MsgPasswordChanged,
		Token:   token,
	})
}
