package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const pepperBytes = 32

// LoadOrCreatePepper reads the pepper stored at path, creating the file with
// a fresh random pepper when it does not exist yet. Losing the file makes
// every stored password hash unverifiable.
func LoadOrCreatePepper(path string) (string, error) {
	path = filepath.Clean(path)

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		pepper := strings.TrimSpace(string(raw))
		if pepper == "" {
			return "", fmt.Errorf("cryptox: pepper file %s is empty", path)
		}
		return pepper, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("cryptox: read pepper: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("cryptox: create pepper dir: %w", err)
	}
	pepper, err := RandomString(pepperBytes)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(pepper), 0o600); err != nil {
		return "", fmt.Errorf("cryptox: write pepper: %w", err)
	}
	return pepper, nil
}

// RandomString returns size random bytes, base64url encoded.
func RandomString(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
