package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ecowise/ecowise/internal/auth/domain"
	"github.com/ecowise/ecowise/internal/auth/store"
	"github.com/ecowise/ecowise/pkg/idx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func seedUser(t *testing.T, s *Store, email string) domain.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	u := domain.NewUser(idx.New().String(), "Ann", "Lee", email, testHash(t, "Abcdef1"), domain.RoleUser, now)
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestCreateAndGetUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := seedUser(t, s, "ann@example.com")

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, domain.RoleUser, got.Role)
	require.Equal(t, 1, got.Level)
	require.Empty(t, got.Badges)
	require.True(t, got.IsActive)
	require.Equal(t, domain.DefaultPreferences(), got.Preferences)
	require.Nil(t, got.Location.Coordinates.Lat)
	require.Nil(t, got.LastLogin)
	require.Empty(t, got.PasswordHash, "hash is never projected by id")
	require.True(t, u.CreatedAt.Equal(got.CreatedAt))
}

func TestGetUserByEmail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "ann@example.com")

	t.Run("case insensitive", func(t *testing.T) {
		got, err := s.Users().GetUserByEmail(ctx, "  ANN@Example.COM ", false)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.Empty(t, got.PasswordHash)
	})

	t.Run("hash only on request", func(t *testing.T) {
		got, err := s.Users().GetUserByEmail(ctx, "ann@example.com", true)
		require.NoError(t, err)
		require.Equal(t, u.PasswordHash, got.PasswordHash)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := s.Users().GetUserByEmail(ctx, "nobody@example.com", true)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "ann@example.com")

	dup := domain.NewUser(idx.New().String(), "Bob", "Lee", "ANN@example.com", testHash(t, "Abcdef1"), "", time.Now().UTC())
	err := s.Users().CreateUser(context.Background(), dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestCreateUserRejectsPlaintextPassword(t *testing.T) {
	s := newTestStore(t)

	u := domain.NewUser(idx.New().String(), "Ann", "Lee", "ann@example.com", "Abcdef1", "", time.Now().UTC())
	err := s.Users().CreateUser(context.Background(), u)
	require.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = s.Users().GetUserByEmail(context.Background(), "ann@example.com", false)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "ann@example.com")

	lat, lng := -33.86, 151.2
	u.FirstName = "Anna"
	u.Avatar = "https://cdn.example.com/a.png"
	u.Location = domain.Location{City: "Sydney", Country: "Australia", Coordinates: domain.Coordinates{Lat: &lat, Lng: &lng}}
	u.Preferences.Theme = domain.ThemeDark
	u.Preferences.Notifications.Campaigns = false
	u.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.Users().UpdateProfile(ctx, u))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Anna", got.FirstName)
	require.Equal(t, u.Avatar, got.Avatar)
	require.Equal(t, "Sydney", got.Location.City)
	require.NotNil(t, got.Location.Coordinates.Lat)
	require.InDelta(t, lat, *got.Location.Coordinates.Lat, 1e-9)
	require.InDelta(t, lng, *got.Location.Coordinates.Lng, 1e-9)
	require.Equal(t, domain.ThemeDark, got.Preferences.Theme)
	require.False(t, got.Preferences.Notifications.Campaigns)
	require.True(t, got.Preferences.Notifications.Email)

	t.Run("missing user", func(t *testing.T) {
		ghost := u
		ghost.ID = idx.New().String()
		require.ErrorIs(t, s.Users().UpdateProfile(ctx, ghost), store.ErrNotFound)
	})

	t.Run("invalid theme", func(t *testing.T) {
		bad := u
		bad.Preferences.Theme = "sepia"
		require.ErrorIs(t, s.Users().UpdateProfile(ctx, bad), domain.ErrInvalidUser)
	})
}

func TestUpdatePasswordBumpsTokenVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "ann@example.com")

	newHash := testHash(t, "Zyxwvu9")
	version, err := s.Users().UpdatePassword(ctx, u.ID, newHash)
	require.NoError(t, err)
	require.Equal(t, u.TokenVersion+1, version)

	hash, err := s.Users().GetPasswordHash(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, newHash, hash)

	version, err = s.Users().UpdatePassword(ctx, u.ID, testHash(t, "Again12"))
	require.NoError(t, err)
	require.Equal(t, u.TokenVersion+2, version)

	_, err = s.Users().UpdatePassword(ctx, u.ID, "plaintext")
	require.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = s.Users().UpdatePassword(ctx, idx.New().String(), newHash)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRehashPasswordKeepsTokenVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "ann@example.com")

	require.NoError(t, s.Users().RehashPassword(ctx, u.ID, testHash(t, "Abcdef1")))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.TokenVersion, got.TokenVersion)
}

func TestAccountFlags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "ann@example.com")

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Users().TouchLastLogin(ctx, u.ID, at))
	require.NoError(t, s.Users().SetActive(ctx, u.ID, false))
	require.NoError(t, s.Users().SetRole(ctx, u.ID, domain.RoleAdmin))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	require.True(t, at.Equal(*got.LastLogin))
	require.False(t, got.IsActive)
	require.Equal(t, domain.RoleAdmin, got.Role)

	require.ErrorIs(t, s.Users().SetRole(ctx, u.ID, "root"), domain.ErrInvalidUser)
	require.ErrorIs(t, s.Users().SetActive(ctx, idx.New().String(), true), store.ErrNotFound)
}

func TestClearExpiredPasswordResets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	expired := now.Add(-time.Hour)
	pending := now.Add(time.Hour)

	for i, exp := range []time.Time{expired, pending} {
		u := domain.NewUser(idx.New().String(), "Ann", "Lee",
			[]string{"old@example.com", "new@example.com"}[i], testHash(t, "Abcdef1"), "", now)
		u.PasswordResetToken = "reset-token"
		u.PasswordResetExpires = &exp
		require.NoError(t, s.Users().CreateUser(ctx, u))
	}

	n, err := s.Users().ClearExpiredPasswordResets(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	old, err := s.Users().GetUserByEmail(ctx, "old@example.com", false)
	require.NoError(t, err)
	require.Empty(t, old.PasswordResetToken)
	require.Nil(t, old.PasswordResetExpires)

	fresh, err := s.Users().GetUserByEmail(ctx, "new@example.com", false)
	require.NoError(t, err)
	require.Equal(t, "reset-token", fresh.PasswordResetToken)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "ann@example.com")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetActive(ctx, u.ID, false); err != nil {
			return err
		}
		return store.ErrNotFound
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}
