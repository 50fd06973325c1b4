package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ecowise/ecowise/pkg/authsdk"
	"github.com/ecowise/ecowise/pkg/cryptox"
)

// ErrInvalidUser is wrapped by CheckInvariants with the offending field.
var ErrInvalidUser = errors.New("domain: invalid user")

type Role string

const (
	RoleUser  Role = authsdk.RoleUser
	RoleAdmin Role = authsdk.RoleAdmin
)

type Theme string

const (
	ThemeLight Theme = authsdk.ThemeLight
	ThemeDark  Theme = authsdk.ThemeDark
)

type Badge struct {
	Name        string
	Description string
	EarnedAt    time.Time
}

type Coordinates struct {
	Lat *float64
	Lng *float64
}

type Location struct {
	City        string
	Country     string
	Coordinates Coordinates
}

type Notifications struct {
	Email     bool
	Campaigns bool
	Blogs     bool
}

type Preferences struct {
	Notifications Notifications
	Theme         Theme
}

// DefaultPreferences opts a new account into every notification.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: Notifications{Email: true, Campaigns: true, Blogs: true},
		Theme:         ThemeLight,
	}
}

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string // lowercased
	PasswordHash string // argon2id PHC, or bcrypt for imported accounts
	Role         Role
	Avatar       string

	EcoPoints int
	Level     int
	Badges    []Badge

	Location    Location
	Preferences Preferences

	IsVerified           bool
	VerificationToken    string
	PasswordResetToken   string
	PasswordResetExpires *time.Time
	LastLogin            *time.Time
	IsActive             bool

	// TokenVersion is embedded in issued tokens; bumping it revokes them all.
	TokenVersion int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser returns an active account with the schema defaults applied.
func NewUser(id, firstName, lastName, email, passwordHash string, role Role, now time.Time) User {
	if role == "" {
		role = RoleUser
	}
	return User{
		ID:           id,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Email:        authsdk.NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		Level:        1,
		Badges:       []Badge{},
		Preferences:  DefaultPreferences(),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CheckInvariants reports the first field that would make u unsafe to
// persist. Stores call it before every insert so the rules hold whatever the
// engine enforces.
func (u User) CheckInvariants() error {
	if err := u.CheckProfile(); err != nil {
		return err
	}
	if !cryptox.IsPasswordHash(u.PasswordHash) {
		return fmt.Errorf("%w: password is not hashed", ErrInvalidUser)
	}
	return nil
}

// CheckProfile is CheckInvariants without the credential check, for writes
// that do not carry the password hash.
func (u User) CheckProfile() error {
	switch {
	case u.ID == "":
		return fmt.Errorf("%w: id is empty", ErrInvalidUser)
	case u.Email != authsdk.NormalizeEmail(u.Email) || !authsdk.IsValidEmail(u.Email):
		return fmt.Errorf("%w: email", ErrInvalidUser)
	case !authsdk.IsValidName(u.FirstName):
		return fmt.Errorf("%w: first name", ErrInvalidUser)
	case !authsdk.IsValidName(u.LastName):
		return fmt.Errorf("%w: last name", ErrInvalidUser)
	case !authsdk.IsValidRole(string(u.Role)):
		return fmt.Errorf("%w: role %q", ErrInvalidUser, u.Role)
	case !authsdk.IsValidTheme(string(u.Preferences.Theme)):
		return fmt.Errorf("%w: theme %q", ErrInvalidUser, u.Preferences.Theme)
	case utf8.RuneCountInString(u.Location.City) > authsdk.MaxPlaceLength,
		utf8.RuneCountInString(u.Location.Country) > authsdk.MaxPlaceLength:
		return fmt.Errorf("%w: location", ErrInvalidUser)
	case u.Location.Coordinates.Lat != nil && !authsdk.IsValidLatitude(*u.Location.Coordinates.Lat):
		return fmt.Errorf("%w: latitude", ErrInvalidUser)
	case u.Location.Coordinates.Lng != nil && !authsdk.IsValidLongitude(*u.Location.Coordinates.Lng):
		return fmt.Errorf("%w: longitude", ErrInvalidUser)
	case u.Level < 1 || u.EcoPoints < 0 || u.TokenVersion < 0:
		return fmt.Errorf("%w: counters", ErrInvalidUser)
	}
	return nil
}

// Name is the display name returned by register and login.
func (u User) Name() string {
	return u.FirstName
}
