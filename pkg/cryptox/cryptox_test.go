package cryptox_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

// Cheap parameters keep the suite fast.
var testParams = cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 16, SaltLength: 8}

func TestHasher(t *testing.T) {
	h := cryptox.NewHasher("pepper", cryptox.WithParams(testParams))

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"))

			require.NoError(t, h.Verify(tt.password, hash))
			require.ErrorIs(t, h.Verify(tt.password+"x", hash), cryptox.ErrMismatch)
		})
	}
}

func TestHasher_SaltsDiffer(t *testing.T) {
	h := cryptox.NewHasher("pepper", cryptox.WithParams(testParams))
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestHasher_PepperMatters(t *testing.T) {
	hash, err := cryptox.NewHasher("one", cryptox.WithParams(testParams)).Hash("secret")
	require.NoError(t, err)

	err = cryptox.NewHasher("two", cryptox.WithParams(testParams)).Verify("secret", hash)
	require.ErrorIs(t, err, cryptox.ErrMismatch)
}

func TestHasher_VerifyUsesStoredParams(t *testing.T) {
	hash, err := cryptox.NewHasher("p", cryptox.WithParams(testParams)).Hash("secret")
	require.NoError(t, err)

	// A hasher with different defaults still verifies older hashes.
	require.NoError(t, cryptox.NewHasher("p").Verify("secret", hash))
}

func TestHasher_InvalidHash(t *testing.T) {
	h := cryptox.NewHasher("p", cryptox.WithParams(testParams))

	for _, bad := range []string{
		"",
		"plaintext",
		"$2a$10$abcdefghijklmnopqrstuv",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=64,t=1,p=1$c2FsdA$",
	} {
		require.ErrorIs(t, h.Verify("secret", bad), cryptox.ErrInvalidHash, bad)
	}
}

func TestLoadOrCreatePepper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pepper")

	first, err := cryptox.LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := cryptox.LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLoadOrCreatePepper_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pepper")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, err := cryptox.LoadOrCreatePepper(path)
	require.Error(t, err)
}

func TestRandomString(t *testing.T) {
	a, err := cryptox.RandomString(32)
	require.NoError(t, err)
	b, err := cryptox.RandomString(32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Len(t, a, 43)

	_, err = cryptox.RandomString(0)
	require.Error(t, err)
}
