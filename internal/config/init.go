package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrExists is returned by WriteDefaults when the config file is present.
var ErrExists = errors.New("config file already exists")

// File mirrors the on-disk layout of .relkit.yaml.
type File struct {
	Changelog struct {
		Path string `yaml:"path"`
	} `yaml:"changelog"`
	Dist struct {
		Dir string `yaml:"dir"`
	} `yaml:"dist"`
	Tools struct {
		Git string `yaml:"git"`
		UV  string `yaml:"uv"`
	} `yaml:"tools"`
	Checks struct {
		Format []string `yaml:"format,flow"`
		Lint   []string `yaml:"lint,flow"`
		Types  []string `yaml:"types,flow"`
	} `yaml:"checks"`
	Publish struct {
		TokenCommand []string `yaml:"token_command,flow"`
		TokenEnv     string   `yaml:"token_env"`
	} `yaml:"publish"`
}

// DefaultFile returns the config file contents for the defaults. Token
// settings are left out so secrets never land in a committed file.
func DefaultFile() File {
	d := Defaults()
	var f File
	f.Changelog.Path = d["changelog.path"].(string)
	f.Dist.Dir = d["dist.dir"].(string)
	f.Tools.Git = d["tools.git"].(string)
	f.Tools.UV = d["tools.uv"].(string)
	f.Checks.Format = d["checks.format"].([]string)
	f.Checks.Lint = d["checks.lint"].([]string)
	f.Checks.Types = d["checks.types"].([]string)
	f.Publish.TokenCommand = d["publish.token_command"].([]string)
	f.Publish.TokenEnv = d["publish.token_env"].(string)
	return f
}

// WriteDefaults writes root/.relkit.yaml with the default settings and
// returns its path. It never overwrites an existing file.
func WriteDefaults(root string) (string, error) {
	path := filepath.Join(root, FileName)
	data, err := yaml.Marshal(DefaultFile())
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) // #nosec G302 G304 -- project config is meant to be committed
	if errors.Is(err, os.ErrExist) {
		return path, fmt.Errorf("%s: %w", path, ErrExists)
	}
	if err != nil {
		return "", err
	}
	defer f.Close()
	header := "# relkit configuration. Environment variables RELKIT_<SECTION>_<KEY> override these values.\n"
	if _, err := f.WriteString(header); err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return path, nil
}
