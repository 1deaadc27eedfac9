// Package changelog reads and updates Keep a Changelog documents.
package changelog

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Unreleased is the name of the section collecting changes since the last
// release.
const Unreleased = "Unreleased"

// Template is written by init-changelog.
const Template = `# Changelog

All notable changes to this project will be documented in this file.

The format is based on [Keep a Changelog](https://keepachangelog.com/en/1.1.0/),
and this project adheres to [Semantic Versioning](https://semver.org/spec/v2.0.0.html).

## [Unreleased]

### Added

### Changed

### Fixed

### Removed
`

// Section is one "## [name]" block.
type Section struct {
	Name   string // text between the brackets
	Header string // the full header line
	Lines  []string
}

// Entries returns the lines carrying content: everything except blank
// lines, "###" subsection headers and HTML comments.
func (s *Section) Entries() []string {
	var out []string
	for _, line := range s.Lines {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "###") || strings.HasPrefix(t, "<!--") || strings.HasSuffix(t, "-->") {
			continue
		}
		out = append(out, t)
	}
	return out
}

// HasContent reports whether the section documents at least one change.
func (s *Section) HasContent() bool {
	return len(s.Entries()) > 0
}

// Body returns the section text without its header.
func (s *Section) Body() string {
	return strings.TrimSpace(strings.Join(s.Lines, "\n"))
}

// Document is a parsed changelog.
type Document struct {
	Preamble []string
	Sections []*Section
}

// Parse splits text into sections at every line starting with "## [".
func Parse(text string) *Document {
	doc := &Document{}
	var cur *Section
	for _, line := range strings.Split(text, "\n") {
		if name, ok := sectionName(line); ok {
			cur = &Section{Name: name, Header: strings.TrimRight(line, " \t\r")}
			doc.Sections = append(doc.Sections, cur)
			continue
		}
		if cur == nil {
			doc.Preamble = append(doc.Preamble, line)
			continue
		}
		cur.Lines = append(cur.Lines, line)
	}
	return doc
}

func sectionName(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "## [") {
		return "", false
	}
	end := strings.Index(t, "]")
	if end < 0 {
		return "", false
	}
	return t[len("## ["):end], true
}

// Section returns the first section with the given name.
func (d *Document) Section(name string) (*Section, bool) {
	for _, s := range d.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Read loads and parses the changelog at path.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from config
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

// Release turns the current Unreleased content into a section for version
// dated date, leaving a fresh empty Unreleased header above it. It reports
// false when the text has no Unreleased section.
func Release(text, version string, date time.Time) (string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		name, ok := sectionName(line)
		if !ok || name != Unreleased {
			continue
		}
		header := fmt.Sprintf("## [%s] - %s", version, date.Format("2006-01-02"))
		out := make([]string, 0, len(lines)+2)
		out = append(out, lines[:i+1]...)
		out = append(out, "", header)
		out = append(out, lines[i+1:]...)
		return strings.Join(out, "\n"), true
	}
	return text, false
}

// ReleaseFile applies Release to the file at path in place.
func ReleaseFile(path, version string, date time.Time) (bool, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from config
	if err != nil {
		return false, err
	}
	updated, ok := Release(string(data), version, date)
	if !ok {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}
