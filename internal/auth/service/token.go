package service

import (
	"errors"
	"time"

	"github.com/ecowise/ecowise/internal/auth/domain"
	"github.com/ecowise/ecowise/pkg/jwtx"
)

var _ jwtx.Verifier = (*TokenService)(nil)

// TokenService issues and verifies session tokens. Tokens are self-contained:
// the subject is the user ID and "ver" pins the user's token version, so no
// server-side session lookup is needed beyond loading the user.
type TokenService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string
	TTL      time.Duration

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue signs a session token for u at its current token version.
func (s *TokenService) Issue(u domain.User) (string, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultTokenTTL
	}
	claims := jwtx.NewClaims(u.ID, string(u.Role), u.TokenVersion, ttl, s.Issuer, s.now().UTC())
	return s.Signer.Sign(claims)
}

// Verify checks signature, issuer and lifetime. Every failure is reported as
// ErrUnauthorized wrapping the underlying reason.
func (s *TokenService) Verify(raw string) (jwtx.Claims, error) {
	if raw == "" {
		return jwtx.Claims{}, ErrUnauthorized
	}
	claims, err := s.Verifier.Verify(raw)
	if err != nil {
		return jwtx.Claims{}, errors.Join(ErrUnauthorized, err)
	}
	return claims, nil
}
