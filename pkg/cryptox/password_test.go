package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testHasher() *Argon2Hasher {
	return NewArgon2Hasher("test-pepper")
}

func TestHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	h := testHasher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"), "hash should be in PHC format")

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 6)
			require.Equal(t, "m=19456,t=2,p=1", parts[3])
			require.NotEmpty(t, parts[4], "salt should not be empty")
			require.NotEmpty(t, parts[5], "hash should not be empty")

			require.NoError(t, h.Compare(hash, tt.password))
		})
	}
}

func TestHash_UniqueSalts(t *testing.T) {
	h := testHasher()

	hash1, err := h.Hash("samepassword")
	require.NoError(t, err)
	hash2, err := h.Hash("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
	require.NoError(t, h.Compare(hash1, "samepassword"))
	require.NoError(t, h.Compare(hash2, "samepassword"))
}

func TestCompare_WrongPassword(t *testing.T) {
	h := testHasher()
	hash, err := h.Hash("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{
		"wrong-password",
		"Correct-Password",
		"correct-password ",
		"",
		"correct-passwor",
		strings.Repeat("x", 10000),
	} {
		require.ErrorIs(t, h.Compare(hash, wrong), ErrMismatch, wrong)
	}
}

func TestCompare_PepperMatters(t *testing.T) {
	hash, err := NewArgon2Hasher("pepper-a").Hash("secret")
	require.NoError(t, err)

	require.NoError(t, NewArgon2Hasher("pepper-a").Compare(hash, "secret"))
	require.ErrorIs(t, NewArgon2Hasher("pepper-b").Compare(hash, "secret"), ErrMismatch)
}

func TestCompare_InvalidHashFormat(t *testing.T) {
	tests := []struct {
		name        string
		invalidHash string
	}{
		{"empty hash", ""},
		{"wrong algorithm", "$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"missing parts", "$argon2id$v=19$m=19456"},
		{"malformed parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"invalid base64 salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA"},
		{"invalid base64 hash", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!invalid!!!"},
		{"wrong version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"missing version", "$argon2id$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"plaintext", "hunter2"},
	}

	h := testHasher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Compare(tt.invalidHash, "test-password")
			require.ErrorIs(t, err, ErrUnsupportedHash)
		})
	}
}

func TestCompare_LegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("from-the-old-system"), bcrypt.MinCost)
	require.NoError(t, err)

	h := testHasher()
	require.NoError(t, h.Compare(string(legacy), "from-the-old-system"))
	require.ErrorIs(t, h.Compare(string(legacy), "nope"), ErrMismatch)

	// $2y$ is what PHP and some JS libraries emit; same algorithm.
	y := "$2y$" + strings.TrimPrefix(string(legacy), "$2a$")
	require.NoError(t, h.Compare(y, "from-the-old-system"))
}

func TestNeedsRehash(t *testing.T) {
	h := testHasher()
	current, err := h.Hash("pw")
	require.NoError(t, err)
	require.False(t, h.NeedsRehash(current))

	legacy, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.True(t, h.NeedsRehash(string(legacy)))

	weaker := &Argon2Hasher{Params: DefaultParams(), Pepper: h.Pepper}
	weaker.Params.Iterations = 1
	old, err := weaker.Hash("pw")
	require.NoError(t, err)
	require.True(t, h.NeedsRehash(old))
	require.NoError(t, h.Compare(old, "pw"), "older parameters still verify")
}
