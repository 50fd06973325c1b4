package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/ecowise/ecowise/internal/auth/observability"
	"github.com/ecowise/ecowise/internal/auth/service"
	"github.com/ecowise/ecowise/pkg/authsdk"
	"github.com/ecowise/ecowise/pkg/httpx"
)

type AuthHandler struct {
	Users   *service.UserService
	Metrics *observability.Metrics

	// CookieSecure marks the token cookie Secure; on outside local dev.
	CookieSecure bool
	CookieTTL    time.Duration
}

// HandleRegister creates an account.
//
//	@Summary		Register a new user
//	@Description	Creates an account and returns a session token. The token is also set as the "token" cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed, user already exists or passwords do not match"
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Failure		500		{object}	authsdk.ErrorResponse
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decodeJSON(w, r, &req) {
		h.Metrics.RecordAuth("register", observability.OutcomeInvalid)
		return
	}

	sess, err := h.Users.Register(r.Context(), req)
	if err != nil {
		h.Metrics.RecordAuth("register", outcomeOf(err))
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordAuth("register", observability.OutcomeSuccess)
	h.writeSession(w, http.StatusCreated, sess)
}

// HandleLogin authenticates with email and password.
//
//	@Summary		Log in
//	@Description	Exchanges email and password for a session token. Unknown emails and wrong passwords get the same answer.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid email or password, or account deactivated"
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Failure		500		{object}	authsdk.ErrorResponse
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeJSON(w, r, &req) {
		h.Metrics.RecordAuth("login", observability.OutcomeInvalid)
		return
	}

	sess, err := h.Users.Login(r.Context(), req)
	if err != nil {
		h.Metrics.RecordAuth("login", outcomeOf(err))
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordAuth("login", observability.OutcomeSuccess)
	h.writeSession(w, http.StatusOK, sess)
}

// HandleLogout clears the token cookie. There is no server-side session, so
// it always succeeds.
//
//	@Summary		Log out
//	@Description	Clears the "token" cookie. Always succeeds; clients drop their stored token regardless.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.LogoutResponse
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{
		Success: true,
		Message: authsdk.MsgLoggedOut,
	})
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, sess service.Session) {
	h.setTokenCookie(w, sess.Token)
	httpx.WriteJSON(w, status, authsdk.AuthResponse{
		Success: true,
		ID:      sess.User.ID,
		Name:    sess.User.Name(),
		Email:   sess.User.Email,
		Role:    string(sess.User.Role),
		Token:   sess.Token,
	})
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.CookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func outcomeOf(err error) string {
	var verrs authsdk.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, service.ErrDuplicateEmail):
		return observability.OutcomeInvalid
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrCurrentPasswordWrong):
		return observability.OutcomeRejected
	case errors.Is(err, service.ErrAccountDeactivated):
		return observability.OutcomeDeactivated
	default:
		return observability.OutcomeError
	}
}
