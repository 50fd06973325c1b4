package authsdk

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// exerciseStorage runs the shared Storage contract against s.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, _, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.Save(ctx, "tok-1", testUser("u1")))
	token, user, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "ann@x.com", user.Email)

	require.NoError(t, s.Save(ctx, "tok-2", testUser("u1")))
	token, _, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-2", token)

	require.NoError(t, s.Clear(ctx))
	_, _, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	// Clearing twice is fine.
	require.NoError(t, s.Clear(ctx))

	require.Error(t, s.Save(ctx, "tok", nil))
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()
	exerciseStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exerciseStorage(t, NewFileStorage(path))

	t.Run("file is private", func(t *testing.T) {
		s := NewFileStorage(path)
		require.NoError(t, s.Save(context.Background(), "tok", testUser("u1")))

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("garbage is corrupt", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
		_, _, err := NewFileStorage(path).Load(context.Background())
		require.ErrorIs(t, err, ErrCorruptSession)
	})

	t.Run("token without user is corrupt", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(`{"token":"tok"}`), 0o600))
		_, _, err := NewFileStorage(path).Load(context.Background())
		require.ErrorIs(t, err, ErrCorruptSession)
	})
}

func newRedisStorage(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStorage(client, "ecowise:session:", ttl), mr
}

func TestRedisStorage(t *testing.T) {
	t.Parallel()

	s, mr := newRedisStorage(t, 0)
	exerciseStorage(t, s)

	t.Run("one key alone is corrupt", func(t *testing.T) {
		require.NoError(t, mr.Set("ecowise:session:token", "tok"))
		_, _, err := s.Load(context.Background())
		require.ErrorIs(t, err, ErrCorruptSession)
	})
}

func TestRedisStorageTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, mr := newRedisStorage(t, time.Hour)
	require.NoError(t, s.Save(ctx, "tok", testUser("u1")))
	require.Equal(t, time.Hour, mr.TTL("ecowise:session:token"))
	require.Equal(t, time.Hour, mr.TTL("ecowise:session:user"))

	mr.FastForward(2 * time.Hour)
	_, _, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestNewRedisStorageFromURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := NewRedisStorageFromURL(ctx, "redis://"+mr.Addr(), "p:", 0)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Save(ctx, "tok", testUser("u1")))

	_, err = NewRedisStorageFromURL(ctx, "://bad", "p:", 0)
	require.Error(t, err)
}
