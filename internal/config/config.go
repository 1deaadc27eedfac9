// Package config loads relkit settings from .relkit.yaml in the project root
// and RELKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the per-project config file.
const FileName = ".relkit.yaml"

// Config is one invocation's resolved configuration.
type Config struct {
	v    *viper.Viper
	root string
	file string // empty when no config file was found
}

// Defaults returns every key with its default value.
func Defaults() map[string]any {
	return map[string]any{
		"changelog.path":        "CHANGELOG.md",
		"dist.dir":              "dist",
		"tools.git":             "git",
		"tools.uv":              "uv",
		"checks.format":         []string{"uv", "run", "ruff", "format", "--check", "."},
		"checks.lint":           []string{"uv", "run", "ruff", "check", "."},
		"checks.types":          []string{"uv", "run", "basedpyright"},
		"publish.token_command": []string{"pass", "pypi/uv-publish"},
		"publish.token_env":     "UV_PUBLISH_TOKEN",
		"token.secret":          "",
		"token.key_file":        defaultKeyFile(),
	}
}

// Keys returns every known key, sorted.
func Keys() []string {
	d := Defaults()
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func defaultKeyFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "relkit", "token.key")
}

// Load reads root/.relkit.yaml if present and layers RELKIT_* env vars on
// top of the defaults.
func Load(root string) (*Config, error) {
	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("RELKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	c := &Config{v: v, root: root}
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		c.file = path
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return c, nil
}

// File returns the config file in use, or "" when running on defaults.
func (c *Config) File() string {
	return c.file
}

// GetString returns a string value.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetStringSlice returns a list value. A single string from the environment
// is split on whitespace.
func (c *Config) GetStringSlice(key string) []string {
	vals := c.v.GetStringSlice(key)
	if len(vals) == 1 && strings.ContainsAny(vals[0], " \t") {
		return strings.Fields(vals[0])
	}
	return vals
}

// Set overrides a value for this invocation.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// path resolves a configured path relative to the project root.
func (c *Config) path(key string) string {
	p := c.v.GetString(key)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.root, p)
}

// ChangelogPath is the absolute changelog location.
func (c *Config) ChangelogPath() string {
	return c.path("changelog.path")
}

// DistDir is the absolute build output directory.
func (c *Config) DistDir() string {
	return c.path("dist.dir")
}

// DistDirName is the dist directory as configured, for messages and argv.
func (c *Config) DistDirName() string {
	return c.v.GetString("dist.dir")
}

// GitBinary is the git executable.
func (c *Config) GitBinary() string {
	return c.v.GetString("tools.git")
}

// UVBinary is the uv executable.
func (c *Config) UVBinary() string {
	return c.v.GetString("tools.uv")
}

// QualityCommand returns the argv for the named quality check
// (format, lint, types).
func (c *Config) QualityCommand(name string) []string {
	return c.GetStringSlice("checks." + name)
}
