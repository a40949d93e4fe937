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
	// ErrMismatch is returned when a password does not match the stored hash.
	ErrMismatch = errors.New("cryptox: password does not match")

	// ErrUnsupportedHash is returned for hashes that are neither Argon2id PHC
	// strings nor bcrypt.
	ErrUnsupportedHash = errors.New("cryptox: unsupported hash format")
)

// Params configures Argon2id.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  uint32
}

// DefaultParams follows the OWASP minimum for Argon2id (19 MiB, t=2, p=1).
func DefaultParams() Params {
	return Params{
		Memory:      19 * 1024,
		Iterations:  2,
		Parallelism: 1,
		KeyLength:   32,
		SaltLength:  16,
	}
}

// Argon2Hasher hashes passwords as PHC encoded Argon2id strings. The pepper is
// appended to every password before hashing and never stored in the hash.
//
// Compare also accepts bcrypt hashes ($2a$, $2b$, $2y$) carried over from
// older deployments; those are checked without the pepper.
type Argon2Hasher struct {
	Params Params
	Pepper string
}

// NewArgon2Hasher returns a hasher using DefaultParams.
func NewArgon2Hasher(pepper string) *Argon2Hasher {
	return &Argon2Hasher{Params: DefaultParams(), Pepper: pepper}
}

// Hash generates a PHC-format Argon2id hash string including salt and parameters.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	p := h.Params
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password+h.Pepper), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Compare checks password against encoded. It returns nil on a match,
// ErrMismatch on a wrong password and ErrUnsupportedHash (possibly wrapped)
// when encoded cannot be parsed.
func (h *Argon2Hasher) Compare(encoded, password string) error {
	if isBcrypt(encoded) {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return ErrMismatch
		default:
			return fmt.Errorf("%w: %w", ErrUnsupportedHash, err)
		}
	}

	phc, err := parsePHC(encoded)
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(password+h.Pepper),
		phc.salt,
		phc.iterations,
		phc.memory,
		phc.parallelism,
		uint32(len(phc.sum)), // #nosec G115 - decoded from our own hashes
	)

	if subtle.ConstantTimeCompare(computed, phc.sum) == 1 {
		return nil
	}
	return ErrMismatch
}

// NeedsRehash reports whether encoded was produced by something other than
// this hasher's current parameters, e.g. a legacy bcrypt hash.
func (h *Argon2Hasher) NeedsRehash(encoded string) bool {
	phc, err := parsePHC(encoded)
	if err != nil {
		return true
	}
	p := h.Params
	return phc.memory != p.Memory ||
		phc.iterations != p.Iterations ||
		phc.parallelism != p.Parallelism ||
		uint32(len(phc.sum)) != p.KeyLength // #nosec G115
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

type phcHash struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	sum         []byte
}

// parsePHC reads $argon2id$v=19$m=X,t=Y,p=Z$salt$hash.
func parsePHC(encoded string) (phcHash, error) {
	var out phcHash

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return out, fmt.Errorf("%w: expected 6 parts", ErrUnsupportedHash)
	}
	if parts[1] != "argon2id" {
		return out, fmt.Errorf("%w: not argon2id", ErrUnsupportedHash)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return out, fmt.Errorf("%w: wrong version", ErrUnsupportedHash)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &out.memory, &out.iterations, &out.parallelism); err != nil {
		return out, fmt.Errorf("%w: parameters: %w", ErrUnsupportedHash, err)
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return out, fmt.Errorf("%w: salt: %w", ErrUnsupportedHash, err)
	}
	if out.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return out, fmt.Errorf("%w: hash: %w", ErrUnsupportedHash, err)
	}
	if len(out.sum) == 0 {
		return out, fmt.Errorf("%w: empty hash", ErrUnsupportedHash)
	}

	return out, nil
}
