package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	root := t.TempDir()
	c, err := Load(root)
	require.NoError(t, err)

	assert.Empty(t, c.File())
	assert.Equal(t, filepath.Join(root, "CHANGELOG.md"), c.ChangelogPath())
	assert.Equal(t, filepath.Join(root, "dist"), c.DistDir())
	assert.Equal(t, "dist", c.DistDirName())
	assert.Equal(t, "git", c.GitBinary())
	assert.Equal(t, "uv", c.UVBinary())
	assert.Equal(t, []string{"uv", "run", "ruff", "check", "."}, c.QualityCommand("lint"))
	assert.Equal(t, "UV_PUBLISH_TOKEN", c.GetString("publish.token_env"))
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	body := `changelog:
  path: docs/CHANGES.md
dist:
  dir: /tmp/out
checks:
  lint: [ruff, check, src]
`
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(body), 0o600))

	c, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), c.File())
	assert.Equal(t, filepath.Join(root, "docs", "CHANGES.md"), c.ChangelogPath())
	assert.Equal(t, "/tmp/out", c.DistDir())
	assert.Equal(t, []string{"ruff", "check", "src"}, c.QualityCommand("lint"))
	assert.Equal(t, []string{"uv", "run", "basedpyright"}, c.QualityCommand("types"))
}

func TestLoadMalformedFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("dist: [unclosed\n"), 0o600))
	_, err := Load(root)
	assert.Error(t, err)
}

func TestEnvironmentBinding(t *testing.T) {
	root := t.TempDir()
	t.Setenv("RELKIT_DIST_DIR", "build/dist")
	t.Setenv("RELKIT_CHECKS_LINT", "flake8 src")

	c, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "build", "dist"), c.DistDir())
	assert.Equal(t, []string{"flake8", "src"}, c.QualityCommand("lint"))
}

func TestTokenSecretFromConfig(t *testing.T) {
	t.Setenv("RELKIT_TOKEN_SECRET", "fixed-secret")
	c, err := Load(t.TempDir())
	require.NoError(t, err)

	secret, err := c.TokenSecret()
	require.NoError(t, err)
	assert.Equal(t, []byte("fixed-secret"), secret)
}

func TestTokenSecretKeyFile(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)
	keyFile := filepath.Join(t.TempDir(), "nested", "token.key")
	c.Set("token.key_file", keyFile)

	first, err := c.TokenSecret()
	require.NoError(t, err)
	assert.Len(t, first, 2*keyBytes)

	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	if info.Mode().Perm()&0o077 != 0 {
		t.Errorf("key file mode = %v, want owner-only", info.Mode().Perm())
	}

	second, err := c.TokenSecret()
	require.NoError(t, err)
	assert.Equal(t, first, second, "key must be stable across invocations")
}

func TestTokenSecretEmptyKeyFile(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)
	keyFile := filepath.Join(t.TempDir(), "token.key")
	require.NoError(t, os.WriteFile(keyFile, []byte("\n"), 0o600))
	c.Set("token.key_file", keyFile)

	_, err = c.TokenSecret()
	assert.Error(t, err)
}

func TestWriteDefaults(t *testing.T) {
	root := t.TempDir()
	path, err := WriteDefaults(root)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var f File
	require.NoError(t, yaml.Unmarshal(data, &f))
	assert.Equal(t, DefaultFile(), f)
	assert.NotContains(t, string(data), "secret")

	c, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, path, c.File())
	assert.Equal(t, []string{"uv", "run", "ruff", "format", "--check", "."}, c.QualityCommand("format"))

	_, err = WriteDefaults(root)
	assert.True(t, errors.Is(err, ErrExists))
}

func TestKeysSortedAndComplete(t *testing.T) {
	keys := Keys()
	assert.Len(t, keys, len(Defaults()))
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "publish.token_command")
}
