package jwtx

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
	Validate() error
}

// NewSignerHS256 creates an HMAC-SHA256 signer from a shared secret. This is
// the default: the same secret verifies the tokens it signs.
func NewSignerHS256(secret []byte) (Signer, error) {
	return newHS256Signer(secret)
}

// NewSignerEdDSA creates an EdDSA signer from PEM bytes.
// Ed25519 keys must be in PKCS8 format.
func NewSignerEdDSA(kid string, pemKey []byte) (*EdDSASigner, error) {
	return newEdDSASigner(kid, pemKey)
}
