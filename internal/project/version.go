package project

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidVersion is wrapped by ParseVersion and ParseBumpType failures.
var ErrInvalidVersion = errors.New("invalid version")

// BumpType selects which semantic version component to increment.
type BumpType string

const (
	BumpMajor BumpType = "major"
	BumpMinor BumpType = "minor"
	BumpPatch BumpType = "patch"
)

// ParseBumpType validates a user-supplied bump type.
func ParseBumpType(s string) (BumpType, error) {
	switch BumpType(s) {
	case BumpMajor, BumpMinor, BumpPatch:
		return BumpType(s), nil
	}
	return "", fmt.Errorf("%w: bump type %q (valid: major, minor, patch)", ErrInvalidVersion, s)
}

// Version is a parsed MAJOR.MINOR.PATCH version. Anything after the patch
// number (pre-release, local segments) is ignored for bumping.
type Version struct {
	Major, Minor, Patch int
}

var versionRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

// ParseVersion parses the leading MAJOR.MINOR.PATCH of s.
func ParseVersion(s string) (Version, error) {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	var v Version
	var err error
	if v.Major, err = strconv.Atoi(m[1]); err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	if v.Minor, err = strconv.Atoi(m[2]); err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	if v.Patch, err = strconv.Atoi(m[3]); err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Bump returns the next version for the given bump type.
func (v Version) Bump(kind BumpType) Version {
	switch kind {
	case BumpMajor:
		return Version{Major: v.Major + 1}
	case BumpMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	default:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	}
}

// BumpVersion parses current and bumps it.
func BumpVersion(current string, kind BumpType) (string, error) {
	v, err := ParseVersion(current)
	if err != nil {
		return "", err
	}
	return v.Bump(kind).String(), nil
}
