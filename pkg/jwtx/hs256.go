package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// minHS256SecretLen is the shortest secret accepted for HMAC signing.
const minHS256SecretLen = 32

// HS256Signer signs tokens with a shared HMAC secret.
type HS256Signer struct {
	secret []byte
}

func newHS256Signer(secret []byte) (*HS256Signer, error) {
	s := &HS256Signer{secret: secret}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate checks the secret is long enough to be worth anything.
func (s *HS256Signer) Validate() error {
	if len(s.secret) < minHS256SecretLen {
		return errors.New("jwtx: HS256 secret must be at least 32 bytes")
	}
	return nil
}

// HS256Verifier validates tokens signed with the same shared secret.
type HS256Verifier struct {
	secret []byte
	opts   VerifyOptions
}

// NewVerifierHS256 creates a verifier for HS256 tokens.
func NewVerifierHS256(secret []byte, opts VerifyOptions) *HS256Verifier {
	return &HS256Verifier{secret: secret, opts: opts}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *HS256Verifier) Verify(token string) (Claims, error) {
	return parse(token, jwt.SigningMethodHS256.Alg(), v.secret, v.opts)
}
