package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const keyBytes = 32

// TokenSecret returns the token signing key: token.secret when set,
// otherwise the key stored in token.key_file, created on first use.
func (c *Config) TokenSecret() ([]byte, error) {
	if s := c.v.GetString("token.secret"); s != "" {
		return []byte(s), nil
	}
	path := c.v.GetString("token.key_file")
	if path == "" {
		return nil, errors.New("token.secret and token.key_file are both empty")
	}
	return loadOrCreateKey(path)
}

func loadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- key file path from config
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key == "" {
			return nil, fmt.Errorf("token key file %s is empty", path)
		}
		return []byte(key), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read token key: %w", err)
	}

	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token key: %w", err)
	}
	key := hex.EncodeToString(buf)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 -- key file path from config
	if errors.Is(err, os.ErrExist) {
		// Another invocation created it first; use theirs.
		return loadOrCreateKey(path)
	}
	if err != nil {
		return nil, fmt.Errorf("create token key: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(key + "\n"); err != nil {
		return nil, fmt.Errorf("write token key: %w", err)
	}
	return []byte(key), nil
}
