package cryptox

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Hasher bounds the number of concurrent password hash computations. Each
// argon2id evaluation holds 19 MiB, so an unbounded burst of logins can
// exhaust memory long before CPU.
type Hasher struct {
	sem *semaphore.Weighted
}

// NewHasher returns a Hasher admitting at most n hashes at a time. n <= 0
// means GOMAXPROCS.
func NewHasher(n int) *Hasher {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &Hasher{sem: semaphore.NewWeighted(int64(n))}
}

// Hash waits for a slot and hashes password. It returns ctx.Err() if the
// context ends while waiting.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	return HashPassword(password)
}

// Verify waits for a slot and verifies password against encodedHash.
func (h *Hasher) Verify(ctx context.Context, password, encodedHash string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)
	return VerifyPassword(password, encodedHash)
}
