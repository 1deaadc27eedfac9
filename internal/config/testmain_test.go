package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// TestMain keeps key files and config discovery away from the user's machine.
func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "relkit-config-tests-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("HOME", tmp)
	_ = os.Setenv("USERPROFILE", tmp) // Windows compatibility
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg-config"))
	for _, k := range []string{"RELKIT_TOKEN_SECRET", "RELKIT_DIST_DIR", "RELKIT_CHECKS_LINT", "RELKIT_CHANGELOG_PATH"} {
		_ = os.Unsetenv(k)
	}

	code := m.Run()

	_ = os.RemoveAll(tmp)
	os.Exit(code)
}
