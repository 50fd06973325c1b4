package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// SDKClient is the request gateway to the EcoWise auth service. Every call
// carries the cached bearer token, reports its outcome to the SessionCache
// and returns a Result instead of an error.
//
// Any 401, from any endpoint, ends the session: the cache goes anonymous,
// storage is purged and OnUnauthorized runs once per forced logout.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// OnUnauthorized is the "back to the login screen" hook.
	OnUnauthorized func()

	// ValidateBeforeSend runs the request rules locally and skips the
	// round trip when they fail. The server checks them regardless.
	ValidateBeforeSend bool

	cache  *SessionCache
	logout singleflight.Group
}

// Option configures an SDKClient.
type Option func(*SDKClient)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *SDKClient) { c.HTTPClient = hc }
}

// WithOnUnauthorized sets the hook run after a forced logout.
func WithOnUnauthorized(fn func()) Option {
	return func(c *SDKClient) { c.OnUnauthorized = fn }
}

// NewSDKClient creates a gateway bound to cache. A nil cache gets an
// in-memory one.
func NewSDKClient(baseURL string, cache *SessionCache, opts ...Option) *SDKClient {
	if cache == nil {
		cache = NewSessionCache(nil)
	}
	c := &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		ValidateBeforeSend: true,
		cache:              cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache returns the session cache this client reports to.
func (c *SDKClient) Cache() *SessionCache {
	return c.cache
}

// fail reports err to the cache and turns it into a Result. A 401 forces a
// logout.
func fail[T any](ctx context.Context, c *SDKClient, op Op, err error) Result[T] {
	apiErr := AsAPIError(err)
	if apiErr.IsUnauthorized() {
		c.forceLogout(ctx, op, apiErr)
	} else {
		_, _ = c.cache.Dispatch(ctx, RequestFailed{
			Op:      op,
			Status:  apiErr.StatusCode,
			Message: apiErr.Message,
			Errors:  apiErr.Errors,
		})
	}
	return failed[T](apiErr)
}

// forceLogout collapses concurrent 401s into one transition and one hook
// call. A 401 arriving once the cache is already anonymous only records
// the message.
func (c *SDKClient) forceLogout(ctx context.Context, op Op, apiErr *APIError) {
	_, _, _ = c.logout.Do("logout", func() (any, error) {
		wasAuthenticated := c.cache.State().Authenticated
		_, err := c.cache.Dispatch(ctx, RequestFailed{
			Op:      op,
			Status:  http.StatusUnauthorized,
			Message: apiErr.Message,
			Errors:  apiErr.Errors,
		})
		if wasAuthenticated && c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return nil, err
	})
}

// ============================================================================
// Auth operations
// ============================================================================

// Register creates an account and signs in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) Result[AuthResponse] {
	_, _ = c.cache.Dispatch(ctx, RequestStarted{Op: OpRegister})

	if c.ValidateBeforeSend {
		if errs := req.Validate(); errs != nil {
			return fail[AuthResponse](ctx, c, OpRegister, errs)
		}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", req)
	if err != nil {
		return fail[AuthResponse](ctx, c, OpRegister, err)
	}
	var out AuthResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return fail[AuthResponse](ctx, c, OpRegister, err)
	}

	return c.signedIn(ctx, OpRegister, out, http.StatusCreated)
}

// Login signs in with email and password.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) Result[AuthResponse] {
	_, _ = c.cache.Dispatch(ctx, RequestStarted{Op: OpLogin})

	if c.ValidateBeforeSend {
		if errs := req.Validate(); errs != nil {
			return fail[AuthResponse](ctx, c, OpLogin, errs)
		}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", req)
	if err != nil {
		return fail[AuthResponse](ctx, c, OpLogin, err)
	}
	var out AuthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return fail[AuthResponse](ctx, c, OpLogin, err)
	}

	return c.signedIn(ctx, OpLogin, out, http.StatusOK)
}

// signedIn fetches the full profile for a fresh token, since the
// register/login reply only carries a summary.
func (c *SDKClient) signedIn(ctx context.Context, op Op, out AuthResponse, status int) Result[AuthResponse] {
	if out.Token == "" {
		return fail[AuthResponse](ctx, c, op, &APIError{StatusCode: status, Message: MsgUnexpectedServerReply})
	}

	user, err := c.fetchProfile(ctx, out.Token)
	if err != nil {
		return fail[AuthResponse](ctx, c, op, err)
	}

	_, _ = c.cache.Dispatch(ctx, AuthSucceeded{User: user, Token: out.Token})
	return succeeded(out, status)
}

func (c *SDKClient) fetchProfile(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/auth/profile"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	var out ProfileResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout ends the session. The local session is cleared even when the server
// call fails.
func (c *SDKClient) Logout(ctx context.Context) Result[LogoutResponse] {
	_, _ = c.cache.Dispatch(ctx, RequestStarted{Op: OpLogout})

	var out LogoutResponse
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/logout", nil)
	if err == nil {
		err = decodeJSON(resp, &out, http.StatusOK)
	}

	_, _ = c.cache.Dispatch(ctx, LoggedOut{})
	if err != nil {
		return failed[LogoutResponse](err)
	}
	return succeeded(out, http.StatusOK)
}

// GetProfile loads the signed-in user.
func (c *SDKClient) GetProfile(ctx context.Context) Result[User] {
	_, _ = c.cache.Dispatch(ctx, RequestStarted{Op: OpGetProfile})

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/auth/profile", nil)
	if err != nil {
		return fail[User](ctx, c, OpGetProfile, err)
	}
	var out ProfileResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return fail[User](ctx, c, OpGetProfile, err)
	}

	_, _ = c.cache.Dispatch(ctx, ProfileLoaded{User: &out.User})
	return succeeded(out.User, http.StatusOK)
}

// UpdateProfile applies a partial profile update.
func (c *SDKClient) UpdateProfile(ctx context.Context, req UpdateProfileRequest) Result[User] {
	_, _ = c.cache.Dispatch(ctx, RequestStarted{Op: OpUpdateProfile})

	if c.ValidateBeforeSend {
		if errs := req.Validate(); errs != nil {
			return fail[User](ctx, c, OpUpdateProfile, errs)
		}
	}

	resp, err := c.doRequest(ctx, http.MethodPut, "/api/auth/profile", req)
	if err != nil {
		return fail[User](ctx, c, OpUpdateProfile, err)
	}
	var out ProfileResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return fail[User](ctx, c, OpUpdateProfile, err)
	}

	_, _ = c.cache.Dispatch(ctx, ProfileLoaded{User: &out.User})
	return succeeded(out.User, http.StatusOK)
}

// ChangePassword replaces the password and swaps in the new token. A wrong
// current password is a 401 and therefore ends the session.
func (c *SDKClient) ChangePassword(ctx context.Context, req ChangePasswordRequest) Result[ChangePasswordResponse] {
	_, _ = c.cache.Dispatch(ctx, RequestStarted{Op: OpChangePassword})

	if c.ValidateBeforeSend {
		if errs := req.Validate(); errs != nil {
			return fail[ChangePasswordResponse](ctx, c, OpChangePassword, errs)
		}
	}

	resp, err := c.doRequest(ctx, http.MethodPut, "/api/auth/change-password", req)
	if err != nil {
		return fail[ChangePasswordResponse](ctx, c, OpChangePassword, err)
	}
	var out ChangePasswordResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return fail[ChangePasswordResponse](ctx, c, OpChangePassword, err)
	}

	_, _ = c.cache.Dispatch(ctx, PasswordChanged{Token: out.Token})
	return succeeded(out, http.StatusOK)
}

// ClearError dismisses the last error shown to the user.
func (c *SDKClient) ClearError(ctx context.Context) {
	_, _ = c.cache.Dispatch(ctx, ErrorCleared{})
}

// ============================================================================
// Startup
// ============================================================================

// Hydrate restores the stored session and, when one exists, revalidates it
// against the server.
func (c *SDKClient) Hydrate(ctx context.Context) (State, error) {
	st, err := c.cache.Hydrate(ctx)
	if err != nil || !st.Authenticated {
		return st, err
	}
	c.Revalidate(ctx)
	return c.cache.State(), nil
}

// Revalidate confirms the cached token with a profile fetch. A 401 logs out;
// other failures keep the optimistic session.
func (c *SDKClient) Revalidate(ctx context.Context) Result[User] {
	if !c.cache.State().Authenticated {
		return failed[User](&APIError{Message: "no stored session"})
	}

	res := c.GetProfile(ctx)
	if !res.Success && res.StatusCode != http.StatusUnauthorized {
		_, _ = c.cache.Dispatch(ctx, ErrorCleared{})
	}
	return res
}

// ============================================================================
// Health
// ============================================================================

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service can serve traffic.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
