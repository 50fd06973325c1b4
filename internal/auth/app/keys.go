package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ecowise/ecowise/pkg/cryptox"
	"github.com/ecowise/ecowise/pkg/jwtx"
)

// clockSkew is the leeway allowed on exp/nbf when verifying.
const clockSkew = 30 * time.Second

// signingKeyID is the kid header of EdDSA tokens. There is one key at a time.
const signingKeyID = "ecowise-1"

// InitAuthKeys builds the token signer and its matching verifier.
//
// Algorithms:
//   - "HS256": shared secret from JWT_SECRET. Without one a random secret is
//     generated, so tokens do not survive a restart.
//   - "EdDSA": Ed25519 key read from AUTH_SIGNING_KEY_FILE, generated and
//     written there on first start.
func InitAuthKeys(cfg Config, logger *slog.Logger) (jwtx.Signer, jwtx.Verifier, error) {
	opts := jwtx.VerifyOptions{Issuer: cfg.Issuer, Leeway: clockSkew}

	switch cfg.Algorithm {
	case AlgHS256:
		secret := []byte(cfg.JWTSecret)
		if len(secret) == 0 {
			token, err := cryptox.GenerateToken(cryptox.TokenSize256)
			if err != nil {
				return nil, nil, fmt.Errorf("generate jwt secret: %w", err)
			}
			secret = []byte(token)
			logger.Warn("JWT_SECRET not set, using an ephemeral secret; tokens will not survive a restart")
		}

		signer, err := jwtx.NewSignerHS256(secret)
		if err != nil {
			return nil, nil, err
		}
		return signer, jwtx.NewVerifierHS256(secret, opts), nil

	case AlgEdDSA:
		pemKey, err := cryptox.LoadOrGenerateEd25519Key(cfg.KeyFile)
		if err != nil {
			return nil, nil, err
		}

		signer, err := jwtx.NewSignerEdDSA(signingKeyID, pemKey)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("EdDSA signing key loaded", "path", cfg.KeyFile, "kid", signer.KID())
		return signer, jwtx.NewVerifierEdDSA(signer.PublicKey(), opts), nil

	default:
		return nil, nil, fmt.Errorf("unsupported AUTH_ALGORITHM %q (want %s or %s)", cfg.Algorithm, AlgHS256, AlgEdDSA)
	}
}
