// Package project builds the read-only Context snapshot a command works
// against: the manifest's name, version and workspace members plus the
// VCS-derived properties (last tag, commits since it).
package project

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/relkit/relkit/internal/git"
	"github.com/relkit/relkit/internal/runner"
)

// Type classifies the project layout.
type Type string

const (
	// Single is a plain project with a [project] table and no workspace.
	Single Type = "single"
	// Workspace is a virtual root listing members but publishing nothing itself.
	Workspace Type = "workspace"
	// Hybrid is a root package that is also a workspace.
	Hybrid Type = "hybrid"
)

// Member is one workspace package.
type Member struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Root    string `json:"root"`
	Private bool   `json:"private,omitempty"`
}

// Context is the per-invocation snapshot of project state.
//
// The manifest-backed fields are fixed at Load time. LastTag and
// CommitsSinceTag ask git on every call, so two reads may disagree if the
// repository changes in between.
type Context struct {
	ID      string   `json:"id"`
	Type    Type     `json:"type"`
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Members []Member `json:"members,omitempty"`
	// Root is the directory of the selected package; RepoRoot stays at the
	// workspace root where the changelog, dist dir and .git live.
	Root     string `json:"root"`
	RepoRoot string `json:"repo_root"`
	Package  string `json:"package,omitempty"`

	private bool
	git     *git.Repo
}

// Load reads the manifest in root and returns its Context.
func Load(root string, r runner.Runner, gitOpts ...git.Option) (*Context, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	m, err := readManifest(root)
	if err != nil {
		return nil, err
	}
	members, err := m.members(root)
	if err != nil {
		return nil, err
	}

	c := &Context{
		ID:       uuid.NewString(),
		Members:  members,
		Root:     root,
		RepoRoot: root,
		git:      git.New(r, root, gitOpts...),
	}

	hasProject := m.Project != nil && m.Project.Name != ""
	isWorkspace := m.Tool.UV.Workspace != nil
	switch {
	case hasProject && isWorkspace:
		c.Type = Hybrid
	case isWorkspace:
		c.Type = Workspace
	case hasProject:
		c.Type = Single
	default:
		return nil, fmt.Errorf("%s: no [project] table or [tool.uv.workspace]", filepath.Join(root, ManifestFile))
	}

	if hasProject {
		c.Name = m.Project.Name
		c.Version = m.Project.Version
		c.private = m.private()
		if c.Version == "" {
			return nil, fmt.Errorf("%w: %s has no [project] version", ErrInvalidVersion, filepath.Join(root, ManifestFile))
		}
		if _, err := ParseVersion(c.Version); err != nil {
			return nil, err
		}
	} else {
		c.Name = filepath.Base(root)
	}
	return c, nil
}

// Select returns a Context narrowed to the named workspace member. An empty
// name returns c unchanged. The root package of a hybrid project may be
// selected by its own name.
func (c *Context) Select(name string) (*Context, error) {
	if name == "" || (c.Type != Workspace && name == c.Name) {
		return c, nil
	}
	for _, m := range c.Members {
		if m.Name != name {
			continue
		}
		if _, err := ParseVersion(m.Version); err != nil {
			return nil, fmt.Errorf("package %s: %w", name, err)
		}
		sel := *c
		sel.Name = m.Name
		sel.Version = m.Version
		sel.Root = m.Root
		sel.Package = m.Name
		sel.private = m.Private
		return &sel, nil
	}
	names := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		names = append(names, m.Name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("package %q not found: %s is not a workspace", name, c.Name)
	}
	return nil, fmt.Errorf("package %q not found (members: %s)", name, strings.Join(names, ", "))
}

// Git returns the repository the context queries.
func (c *Context) Git() *git.Repo {
	return c.git
}

// NeedsPackage reports whether the context is a virtual workspace root,
// which has no version of its own to release.
func (c *Context) NeedsPackage() bool {
	return c.Type == Workspace && c.Package == ""
}

// ManifestPath is the pyproject.toml of the selected package.
func (c *Context) ManifestPath() string {
	return filepath.Join(c.Root, ManifestFile)
}

// TagPrefix is "v" for the root package and "<name>-v" for a member.
func (c *Context) TagPrefix() string {
	if c.Package != "" {
		return c.Package + "-v"
	}
	return "v"
}

// TagName is the release tag for version.
func (c *Context) TagName(version string) string {
	return c.TagPrefix() + version
}

// IsPublic reports whether the selected package may be uploaded to a
// public registry.
func (c *Context) IsPublic() bool {
	return !c.private
}

// LastTag returns the most recent release tag for the selected package.
func (c *Context) LastTag(ctx context.Context) (string, bool) {
	match := ""
	if c.Package != "" {
		match = c.TagPrefix() + "*"
	}
	return c.git.LastTag(ctx, match)
}

// CommitsSinceTag counts commits after LastTag, or all commits when the
// package has never been tagged.
func (c *Context) CommitsSinceTag(ctx context.Context) int {
	tag, _ := c.LastTag(ctx)
	return c.git.CommitCount(ctx, tag)
}
