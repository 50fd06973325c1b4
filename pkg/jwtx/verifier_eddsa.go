package jwtx

import (
	"crypto/ed25519"

	"github.com/golang-jwt/jwt/v5"
)

// EdDSAVerifier validates JWTs signed using EdDSA (Ed25519).
type EdDSAVerifier struct {
	pub  ed25519.PublicKey
	opts VerifyOptions
}

// NewVerifierEdDSA creates a verifier for a single Ed25519 public key.
func NewVerifierEdDSA(pub ed25519.PublicKey, opts VerifyOptions) *EdDSAVerifier {
	return &EdDSAVerifier{pub: pub, opts: opts}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *EdDSAVerifier) Verify(token string) (Claims, error) {
	return parse(token, jwt.SigningMethodEdDSA.Alg(), v.pub, v.opts)
}
