package domain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ecowise/ecowise/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cryptox.SetPepperPath(filepath.Join(os.TempDir(), "ecowise-domain-test-pepper"))
	os.Exit(m.Run())
}

func validUser(t *testing.T) User {
	t.Helper()
	hash, err := cryptox.HashPassword("Abcdef1")
	require.NoError(t, err)
	return NewUser("01J0000000000000000000000A", " Ann ", "Lee", " Ann@X.com ", hash, "", time.Now().UTC())
}

func TestNewUserDefaults(t *testing.T) {
	u := validUser(t)

	require.Equal(t, "Ann", u.FirstName)
	require.Equal(t, "ann@x.com", u.Email)
	require.Equal(t, RoleUser, u.Role)
	require.Equal(t, 1, u.Level)
	require.Zero(t, u.EcoPoints)
	require.NotNil(t, u.Badges)
	require.True(t, u.IsActive)
	require.False(t, u.IsVerified)
	require.Equal(t, DefaultPreferences(), u.Preferences)
	require.True(t, u.Preferences.Notifications.Blogs)
	require.Equal(t, "Ann", u.Name())
	require.NoError(t, u.CheckInvariants())
}

func TestCheckInvariants(t *testing.T) {
	lat := 120.0

	cases := map[string]func(u *User){
		"plaintext password": func(u *User) { u.PasswordHash = "Abcdef1" },
		"empty password":     func(u *User) { u.PasswordHash = "" },
		"uppercase email":    func(u *User) { u.Email = "Ann@x.com" },
		"bad email":          func(u *User) { u.Email = "ann" },
		"digit in name":      func(u *User) { u.FirstName = "Ann2" },
		"unknown role":       func(u *User) { u.Role = "root" },
		"unknown theme":      func(u *User) { u.Preferences.Theme = "purple" },
		"latitude":           func(u *User) { u.Location.Coordinates.Lat = &lat },
		"level zero":         func(u *User) { u.Level = 0 },
		"missing id":         func(u *User) { u.ID = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			u := validUser(t)
			mutate(&u)
			require.ErrorIs(t, u.CheckInvariants(), ErrInvalidUser)
		})
	}
}

func TestCheckProfileIgnoresHash(t *testing.T) {
	u := validUser(t)
	u.PasswordHash = ""
	require.NoError(t, u.CheckProfile())
	require.ErrorIs(t, u.CheckInvariants(), ErrInvalidUser)
}

func TestLegacyBcryptHashIsAccepted(t *testing.T) {
	u := validUser(t)
	u.PasswordHash = "$2b$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	require.NoError(t, u.CheckInvariants())
}
