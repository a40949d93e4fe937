package service

// PasswordHasher hashes and checks passwords. Implemented by
// cryptox.Argon2Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Compare returns nil when password matches hash.
	Compare(hash, password string) error

	// NeedsRehash reports whether hash should be replaced by a fresh Hash
	// the next time the plaintext is at hand.
	NeedsRehash(hash string) bool
}
