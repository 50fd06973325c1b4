package authsdk

import "time"

// ============================================================================
// Envelope Types
// ============================================================================

// ErrorResponse is the failure body of every /api/auth endpoint.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// ============================================================================
// User Types
// ============================================================================

// User is the public view of an account. It never carries the password hash.
type User struct {
	ID          string      `json:"id"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	Avatar      string      `json:"avatar,omitempty"`
	EcoPoints   int         `json:"ecoPoints"`
	Level       int         `json:"level"`
	Badges      []Badge     `json:"badges"`
	Location    Location    `json:"location"`
	Preferences Preferences `json:"preferences"`
	IsVerified  bool        `json:"isVerified"`
	IsActive    bool        `json:"isActive"`
	LastLogin   *time.Time  `json:"lastLogin,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type Badge struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	EarnedAt    time.Time `json:"earnedAt"`
}

type Location struct {
	City        string      `json:"city,omitempty"`
	Country     string      `json:"country,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

type Coordinates struct {
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
}

type Preferences struct {
	Notifications Notifications `json:"notifications"`
	Theme         string        `json:"theme"`
}

type Notifications struct {
	Email     bool `json:"email"`
	Campaigns bool `json:"campaigns"`
	Blogs     bool `json:"blogs"`
}

// ============================================================================
// Register / Login
// ============================================================================

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`

	// Role is optional and defaults to "user".
	Role string `json:"role,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register (201) and login (200).
type AuthResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Token   string `json:"token"`
}

// LogoutResponse is returned by POST /api/auth/logout.
type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ============================================================================
// Profile
// ============================================================================

// ProfileResponse is returned by GET and PUT /api/auth/profile.
type ProfileResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// UpdateProfileRequest is a partial update: nil fields are left unchanged.
// Email, password, role and account flags cannot be changed here.
type UpdateProfileRequest struct {
	FirstName   *string            `json:"firstName,omitempty"`
	LastName    *string            `json:"lastName,omitempty"`
	Avatar      *string            `json:"avatar,omitempty"`
	Location    *LocationUpdate    `json:"location,omitempty"`
	Preferences *PreferencesUpdate `json:"preferences,omitempty"`

	// Theme is accepted as shorthand for preferences.theme.
	Theme *string `json:"theme,omitempty"`
}

type LocationUpdate struct {
	City        *string            `json:"city,omitempty"`
	Country     *string            `json:"country,omitempty"`
	Coordinates *CoordinatesUpdate `json:"coordinates,omitempty"`
}

type CoordinatesUpdate struct {
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
}

type PreferencesUpdate struct {
	Notifications *NotificationsUpdate `json:"notifications,omitempty"`
	Theme         *string              `json:"theme,omitempty"`
}

type NotificationsUpdate struct {
	Email     *bool `json:"email,omitempty"`
	Campaigns *bool `json:"campaigns,omitempty"`
	Blogs     *bool `json:"blogs,omitempty"`
}

// ============================================================================
// Password
// ============================================================================

// ChangePasswordRequest is the body of PUT /api/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

// ChangePasswordResponse carries a replacement token: every token issued
// before the change stops verifying.
type ChangePasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
