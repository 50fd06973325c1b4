package store

import (
	"context"
	"errors"
	"time"

	"github.com/ecowise/ecowise/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories hang off it so a transaction can only be
// opened from the root, never from inside another transaction.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store. Emails are compared case-insensitively and
// stored lowercased. Reads leave PasswordHash empty unless stated otherwise.
type Users interface {
	// CreateUser inserts a new user after checking its invariants. A taken
	// email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by email. The hash is only loaded when
	// includePassword is set, which login needs and nothing else does.
	GetUserByEmail(ctx context.Context, email string, includePassword bool) (domain.User, error)

	// GetPasswordHash returns the stored hash for change-password checks.
	GetPasswordHash(ctx context.Context, id string) (string, error)

	// UpdateProfile writes the mutable profile columns (names, avatar,
	// location, preferences) and bumps updated_at.
	UpdateProfile(ctx context.Context, u domain.User) error

	// UpdatePassword replaces the hash and increments token_version,
	// returning the new version.
	UpdatePassword(ctx context.Context, id, hash string) (int, error)

	// RehashPassword replaces the hash without touching token_version, for
	// transparent upgrades of legacy hashes at login.
	RehashPassword(ctx context.Context, id, hash string) error

	// TouchLastLogin records a successful login.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// SetActive deactivates or reactivates an account.
	SetActive(ctx context.Context, id string, active bool) error

	// SetRole changes an account's role.
	SetRole(ctx context.Context, id string, role domain.Role) error

	// ClearExpiredPasswordResets drops reset tokens whose expiry has passed
	// and returns how many were cleared.
	ClearExpiredPasswordResets(ctx context.Context, now time.Time) (int64, error)
}
