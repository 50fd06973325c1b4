package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ecowise/ecowise/internal/auth/domain"
	"github.com/ecowise/ecowise/pkg/idx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHousekeepingClearsExpiredResets(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("Abcdef1"), bcrypt.MinCost)
	require.NoError(t, err)

	expired := time.Now().UTC().Add(-time.Hour)
	u := domain.NewUser(idx.New().String(), "Ann", "Lee", "ann@x.com", string(hash), "", time.Now().UTC())
	u.PasswordResetToken = "stale"
	u.PasswordResetExpires = &expired
	require.NoError(t, svc.Store.Users().CreateUser(ctx, u))

	cleared := make(chan int64, 1)
	hk := NewHousekeepingService(svc.Store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.OnCleanup = func(n int64) { cleared <- n }

	hk.Start()
	select {
	case n := <-cleared:
		require.EqualValues(t, 1, n)
	case <-time.After(5 * time.Second):
		t.Fatal("housekeeping did not run on start")
	}
	hk.Stop()

	got, err := svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, got.PasswordResetToken)
	require.Nil(t, got.PasswordResetExpires)
}
