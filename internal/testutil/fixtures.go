package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to dir/rel, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteProject writes a single-package pyproject.toml into dir.
func WriteProject(t *testing.T, dir, name, version string, classifiers ...string) string {
	t.Helper()
	body := fmt.Sprintf("[project]\nname = %q\nversion = %q\n", name, version)
	if len(classifiers) > 0 {
		body += "classifiers = ["
		for i, c := range classifiers {
			if i > 0 {
				body += ", "
			}
			body += fmt.Sprintf("%q", c)
		}
		body += "]\n"
	}
	body += "\n[build-system]\nrequires = [\"hatchling\"]\nbuild-backend = \"hatchling.build\"\n"
	return WriteFile(t, dir, "pyproject.toml", body)
}

// Changelog renders a Keep a Changelog document with the given Unreleased
// body followed by optional released sections.
func Changelog(unreleased string, released ...string) string {
	s := "# Changelog\n\nAll notable changes to this project will be documented in this file.\n\n## [Unreleased]\n"
	if unreleased != "" {
		s += "\n" + unreleased + "\n"
	}
	for _, r := range released {
		s += "\n" + r + "\n"
	}
	return s
}

// Touch creates empty files under dir.
func Touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		WriteFile(t, dir, n, "")
	}
}
