package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestFile is the project manifest name.
const ManifestFile = "pyproject.toml"

// PrivateClassifier marks a package that must never reach a public registry.
const PrivateClassifier = "Private :: Do Not Upload"

// ErrNoManifest is returned when no pyproject.toml can be found.
var ErrNoManifest = errors.New("no " + ManifestFile + " found")

// manifest is the subset of pyproject.toml relkit reads.
type manifest struct {
	Project *struct {
		Name        string   `toml:"name"`
		Version     string   `toml:"version"`
		Classifiers []string `toml:"classifiers"`
	} `toml:"project"`
	Tool struct {
		UV struct {
			Workspace *struct {
				Members []string `toml:"members"`
				Exclude []string `toml:"exclude"`
			} `toml:"workspace"`
		} `toml:"uv"`
	} `toml:"tool"`
}

func readManifest(dir string) (*manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path) // #nosec G304 -- path is the project manifest
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

func (m *manifest) private() bool {
	return m.Project != nil && slices.Contains(m.Project.Classifiers, PrivateClassifier)
}

// members expands the workspace member globs relative to root, skipping
// excluded paths and directories without a manifest.
func (m *manifest) members(root string) ([]Member, error) {
	ws := m.Tool.UV.Workspace
	if ws == nil {
		return nil, nil
	}
	excluded := make(map[string]bool)
	for _, pattern := range ws.Exclude {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, fmt.Errorf("workspace exclude %q: %w", pattern, err)
		}
		for _, p := range matches {
			excluded[filepath.Clean(p)] = true
		}
	}

	seen := make(map[string]bool)
	var out []Member
	for _, pattern := range ws.Members {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, fmt.Errorf("workspace member %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, dir := range matches {
			dir = filepath.Clean(dir)
			if excluded[dir] || seen[dir] {
				continue
			}
			seen[dir] = true
			mm, err := readManifest(dir)
			if errors.Is(err, ErrNoManifest) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if mm.Project == nil || mm.Project.Name == "" {
				continue
			}
			out = append(out, Member{
				Name:    mm.Project.Name,
				Version: mm.Project.Version,
				Root:    dir,
				Private: mm.private(),
			})
		}
	}
	return out, nil
}

// FindRoot walks up from start to the first directory holding a manifest.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w in %s or any parent directory", ErrNoManifest, start)
		}
		dir = parent
	}
}

var (
	tableRe   = regexp.MustCompile(`^\s*\[([^\[\]]+)\]\s*(#.*)?$`)
	versionKV = regexp.MustCompile(`^(\s*version\s*=\s*)"[^"]*"`)
)

// WriteVersion rewrites the version key of the [project] table in the
// manifest at path, leaving every other byte untouched.
func WriteVersion(path, version string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is the project manifest
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	lines := bytes.SplitAfter(data, []byte("\n"))
	table := ""
	replaced := false
	for i, line := range lines {
		if m := tableRe.FindSubmatch(line); m != nil {
			table = strings.TrimSpace(string(m[1]))
			continue
		}
		if table == "project" && versionKV.Match(line) {
			lines[i] = versionKV.ReplaceAll(line, []byte(`${1}"`+version+`"`))
			replaced = true
			break
		}
	}
	if !replaced {
		return fmt.Errorf("%s: no version key in [project]", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bytes.Join(lines, nil), info.Mode().Perm())
}
