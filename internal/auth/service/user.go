package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/ecowise/ecowise/internal/auth/domain"
	"github.com/ecowise/ecowise/internal/auth/store"
	"github.com/ecowise/ecowise/pkg/authsdk"
	"github.com/ecowise/ecowise/pkg/cryptox"
	"github.com/ecowise/ecowise/pkg/idx"
	"github.com/ecowise/ecowise/pkg/jwtx"
	"github.com/ecowise/ecowise/pkg/slogx"
)

var (
	ErrDuplicateEmail       = errors.New("duplicate_email")
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrCurrentPasswordWrong = errors.New("current_password_incorrect")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnknownUser          = errors.New("unknown_user")
	ErrAccountDeactivated   = errors.New("account_deactivated")
)

// Session is a user together with a freshly issued token for them.
type Session struct {
	User  domain.User
	Token string
}

type UserService struct {
	Store  store.Store
	Tokens *TokenService
	Hasher *cryptox.Hasher

	// AllowAdminSignup lets register honour role "admin". Off by default:
	// self-registered admins are downgraded to "user".
	AllowAdminSignup bool

	dummyOnce sync.Once
	dummyHash string
}

// dummy returns a valid hash used to spend the same verification time on
// unknown emails as on known ones.
func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		token, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err == nil {
			s.dummyHash, _ = cryptox.HashPassword(token)
		}
	})
	return s.dummyHash
}

// Register validates req, stores the new user and issues their first token.
// Validation failures are returned as authsdk.ValidationErrors.
func (s *UserService) Register(ctx context.Context, req authsdk.RegisterRequest) (Session, error) {
	l := slogx.FromContext(ctx)

	req = req.Normalized()
	if errs := req.Validate(); errs != nil {
		return Session{}, errs
	}

	role := domain.Role(req.Role)
	if role == domain.RoleAdmin && !s.AllowAdminSignup {
		l.Warn("admin self-registration downgraded", slog.String("email", req.Email))
		role = domain.RoleUser
	}

	hash, err := s.Hasher.Hash(ctx, req.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u := domain.NewUser(idx.New().String(), req.FirstName, req.LastName, req.Email, hash, role, s.Tokens.now().UTC())
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return Session{}, ErrDuplicateEmail
		}
		return Session{}, err
	}

	token, err := s.Tokens.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	l.Info("user registered", slog.String("user_id", u.ID), slog.String("role", string(u.Role)))
	u.PasswordHash = ""
	return Session{User: u, Token: token}, nil
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials after the same amount of
// hashing work.
func (s *UserService) Login(ctx context.Context, req authsdk.LoginRequest) (Session, error) {
	l := slogx.FromContext(ctx)

	req = req.Normalized()
	if errs := req.Validate(); errs != nil {
		return Session{}, errs
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, req.Email, true)
	if errors.Is(err, store.ErrNotFound) {
		_ = s.Hasher.Verify(ctx, req.Password, s.dummy())
		l.Info("login for unknown email")
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if err := s.Hasher.Verify(ctx, req.Password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Info("login with wrong password", slog.String("user_id", u.ID))
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("verify password: %w", err)
	}

	if !u.IsActive {
		return Session{}, ErrAccountDeactivated
	}

	if cryptox.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u.ID, req.Password)
	}

	now := s.Tokens.now().UTC()
	if err := s.Store.Users().TouchLastLogin(ctx, u.ID, now); err != nil {
		l.Error("failed to record last login", slog.String("user_id", u.ID), slog.Any("err", err))
	} else {
		u.LastLogin = &now
	}

	token, err := s.Tokens.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	u.PasswordHash = ""
	return Session{User: u, Token: token}, nil
}

// rehash upgrades a legacy or outdated hash. Failure only costs the upgrade.
func (s *UserService) rehash(ctx context.Context, userID, password string) {
	l := slogx.FromContext(ctx)

	hash, err := s.Hasher.Hash(ctx, password)
	if err == nil {
		err = s.Store.Users().RehashPassword(ctx, userID, hash)
	}
	if err != nil {
		l.Warn("password rehash failed", slog.String("user_id", userID), slog.Any("err", err))
		return
	}
	l.Info("password hash upgraded", slog.String("user_id", userID))
}

// Authenticate resolves verified token claims to an active user.
func (s *UserService) Authenticate(ctx context.Context, claims jwtx.Claims) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUnknownUser
	}
	if err != nil {
		return domain.User{}, err
	}
	if claims.Version != u.TokenVersion {
		return domain.User{}, ErrUnauthorized
	}
	if !u.IsActive {
		return domain.User{}, ErrAccountDeactivated
	}
	return u, nil
}

// GetProfile returns the user without the password hash.
func (s *UserService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUnknownUser
	}
	return u, err
}

// UpdateProfile merges the fields present in req into the stored profile.
// Applying the same request twice leaves the record as after the first.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req authsdk.UpdateProfileRequest) (domain.User, error) {
	req = req.Normalized()
	if errs := req.Validate(); errs != nil {
		return domain.User{}, errs
	}

	current, err := s.GetProfile(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	merged := mergeProfile(current, req)
	if reflect.DeepEqual(merged, current) {
		return current, nil
	}

	merged.UpdatedAt = s.Tokens.now().UTC()
	if err := s.Store.Users().UpdateProfile(ctx, merged); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnknownUser
		}
		return domain.User{}, err
	}
	return merged, nil
}

func mergeProfile(u domain.User, req authsdk.UpdateProfileRequest) domain.User {
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Avatar != nil {
		u.Avatar = *req.Avatar
	}

	if loc := req.Location; loc != nil {
		if loc.City != nil {
			u.Location.City = *loc.City
		}
		if loc.Country != nil {
			u.Location.Country = *loc.Country
		}
		if c := loc.Coordinates; c != nil {
			if c.Lat != nil {
				lat := *c.Lat
				u.Location.Coordinates.Lat = &lat
			}
			if c.Lng != nil {
				lng := *c.Lng
				u.Location.Coordinates.Lng = &lng
			}
		}
	}

	if p := req.Preferences; p != nil {
		if p.Theme != nil {
			u.Preferences.Theme = domain.Theme(*p.Theme)
		}
		if n := p.Notifications; n != nil {
			if n.Email != nil {
				u.Preferences.Notifications.Email = *n.Email
			}
			if n.Campaigns != nil {
				u.Preferences.Notifications.Campaigns = *n.Campaigns
			}
			if n.Blogs != nil {
				u.Preferences.Notifications.Blogs = *n.Blogs
			}
		}
	}
	return u
}

// ChangePassword replaces the password after checking the current one. The
// token version is bumped so every earlier token stops verifying; the
// returned token is the only one valid afterwards.
func (s *UserService) ChangePassword(ctx context.Context, userID string, req authsdk.ChangePasswordRequest) (string, error) {
	l := slogx.FromContext(ctx)

	if errs := req.Validate(); errs != nil {
		return "", errs
	}

	hash, err := s.Store.Users().GetPasswordHash(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUnknownUser
	}
	if err != nil {
		return "", err
	}

	if err := s.Hasher.Verify(ctx, req.CurrentPassword, hash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return "", ErrCurrentPasswordWrong
		}
		return "", fmt.Errorf("verify password: %w", err)
	}

	newHash, err := s.Hasher.Hash(ctx, req.NewPassword)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	var token string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		version, err := tx.Users().UpdatePassword(ctx, userID, newHash)
		if err != nil {
			return err
		}
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		u.TokenVersion = version
		token, err = s.Tokens.Issue(u)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUnknownUser
	}
	if err != nil {
		return "", err
	}

	l.Info("password changed", slog.String("user_id", userID))
	return token, nil
}

// SetActive deactivates or reactivates the account registered under email.
func (s *UserService) SetActive(ctx context.Context, email string, active bool) (domain.User, error) {
	return s.updateByEmail(ctx, email, func(users store.Users, id string) error {
		return users.SetActive(ctx, id, active)
	})
}

// SetRole changes the role of the account registered under email.
func (s *UserService) SetRole(ctx context.Context, email string, role domain.Role) (domain.User, error) {
	return s.updateByEmail(ctx, email, func(users store.Users, id string) error {
		return users.SetRole(ctx, id, role)
	})
}

func (s *UserService) updateByEmail(ctx context.Context, email string, fn func(store.Users, string) error) (domain.User, error) {
	var updated domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByEmail(ctx, email, false)
		if err != nil {
			return err
		}
		if err := fn(tx.Users(), u.ID); err != nil {
			return err
		}
		updated, err = tx.Users().GetUserByID(ctx, u.ID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUnknownUser
	}
	return updated, err
}

