package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPasswordMismatch is returned when a plaintext does not match a hash.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrUnknownHashFormat is returned for hashes that are neither argon2id
	// PHC strings nor bcrypt modular-crypt strings.
	ErrUnknownHashFormat = errors.New("invalid hash format: unknown algorithm")
)

const argon2idPrefix = "$argon2id$"

// bcryptPrefixes are the modular-crypt identifiers produced by bcrypt
// implementations. Accounts imported from the previous Node service carry
// "$2a$" or "$2b$" hashes with cost 10.
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// HashPassword generates a PHC-format Argon2id hash string including salt and parameters.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password+GetPepper()), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword compares a plaintext password against a stored hash. Both
// argon2id PHC strings and legacy bcrypt strings are accepted; comparison is
// constant time in both cases.
func VerifyPassword(password, encodedHash string) error {
	switch {
	case strings.HasPrefix(encodedHash, argon2idPrefix):
		return verifyArgon2id(password, encodedHash)
	case isBcrypt(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	default:
		return ErrUnknownHashFormat
	}
}

// IsPasswordHash reports whether s looks like a hash this package can verify.
// It is used to reject records that would store a plaintext password.
func IsPasswordHash(s string) bool {
	if isBcrypt(s) {
		_, err := bcrypt.Cost([]byte(s))
		return err == nil
	}
	_, _, _, err := parseArgon2id(s)
	return err == nil
}

// NeedsRehash reports whether a stored hash should be upgraded to the current
// argon2id parameters after a successful verification.
func NeedsRehash(encodedHash string) bool {
	if !strings.HasPrefix(encodedHash, argon2idPrefix) {
		return true
	}
	p, _, _, err := parseArgon2id(encodedHash)
	if err != nil {
		return true
	}
	return p.memory != memory || p.iterations != iterations || p.parallelism != parallelism
}

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// parseArgon2id splits "$argon2id$v=19$m=X,t=Y,p=Z$salt$hash".
func parseArgon2id(encodedHash string) (argon2Params, []byte, []byte, error) {
	var p argon2Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return p, nil, nil, errors.New("invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, errors.New("invalid hash format: not argon2id")
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return p, nil, nil, errors.New("invalid hash format: wrong version")
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("invalid hash format: failed to parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("invalid hash format: failed to decode salt: %w", err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("invalid hash format: failed to decode hash: %w", err)
	}
	if len(salt) == 0 || len(hash) == 0 {
		return p, nil, nil, errors.New("invalid hash format: empty salt or hash")
	}
	return p, salt, hash, nil
}

func verifyArgon2id(password, encodedHash string) error {
	p, salt, expected, err := parseArgon2id(encodedHash)
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		p.iterations,
		p.memory,
		p.parallelism,
		uint32(len(expected)), // #nosec G115 - decoded from our own 32 byte output
	)
	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

func isBcrypt(s string) bool {
	for _, prefix := range bcryptPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
