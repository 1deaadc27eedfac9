package check

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/relkit/relkit/internal/output"
)

// Artifact is one built distribution file.
type Artifact struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Wheel   bool   `json:"wheel"`
	Package string `json:"package"`
	Version string `json:"version"` // empty when the name has no version field
}

// ParseArtifact splits a wheel or sdist file name. Names look like
// name-version-py3-none-any.whl and name-version.tar.gz.
func ParseArtifact(name string) (Artifact, bool) {
	a := Artifact{Name: name}
	var stem string
	switch {
	case strings.HasSuffix(name, ".whl"):
		stem = strings.TrimSuffix(name, ".whl")
		a.Wheel = true
	case strings.HasSuffix(name, ".tar.gz"):
		stem = strings.TrimSuffix(name, ".tar.gz")
	default:
		return Artifact{}, false
	}
	parts := strings.Split(stem, "-")
	a.Package = parts[0]
	if len(parts) >= 2 {
		a.Version = parts[1]
	}
	return a, true
}

var distNameReplacer = strings.NewReplacer("-", "_", ".", "_")

// normalizeDist maps a project name to its wheel-filename form.
func normalizeDist(s string) string {
	return strings.ToLower(distNameReplacer.Replace(s))
}

// Artifacts lists the wheels and sdists in dir, sorted by name. When pkg is
// non-empty only that package's files are returned.
func Artifacts(dir, pkg string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		a, ok := ParseArtifact(e.Name())
		if !ok {
			continue
		}
		if pkg != "" && normalizeDist(a.Package) != normalizeDist(pkg) {
			continue
		}
		a.Path = filepath.Join(dir, e.Name())
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func splitArtifacts(arts []Artifact) (wheels, sdists []string) {
	for _, a := range arts {
		if a.Wheel {
			wheels = append(wheels, a.Name)
		} else {
			sdists = append(sdists, a.Name)
		}
	}
	return wheels, sdists
}

func (e *Env) distName() string {
	if e.Config != nil {
		return e.Config.DistDirName()
	}
	return "dist"
}

// DistExists passes when the build output directory exists.
var DistExists = Check{Name: "dist-exists", Run: distExists}

func distExists(_ context.Context, env *Env, _ Params) *output.Output {
	info, err := os.Stat(env.DistDir())
	if err != nil {
		return output.Fail("No %s directory found", env.distName()).
			Text("Build artifacts are stored in %s/", env.distName()).
			Text("This directory is created by the build process").
			Next("Run: relkit build")
	}
	if !info.IsDir() {
		return output.Fail("%s exists but is not a directory", env.distName()).
			Text("%s should be a directory containing build artifacts", env.distName()).
			Next(
				"Remove the file: rm "+env.distName(),
				"Then build: relkit build",
			)
	}
	return output.OK("%s directory exists", env.distName())
}

// DistHasFiles passes when at least one wheel or sdist is present.
var DistHasFiles = Check{Name: "dist-has-files", Run: distHasFiles}

func distHasFiles(ctx context.Context, env *Env, p Params) *output.Output {
	if out := distExists(ctx, env, p); !out.Success {
		return out
	}
	arts, err := Artifacts(env.DistDir(), env.Project.Package)
	if err != nil {
		return output.Fail("Cannot read %s", env.distName()).Text("%v", err).Next("Run: relkit build")
	}
	if len(arts) == 0 {
		return output.Fail("No distribution files found").
			Text("%s/ directory is empty", env.distName()).
			Text("Expected .whl (wheel) or .tar.gz (sdist) files").
			Next("Run: relkit build")
	}

	wheels, sdists := splitArtifacts(arts)
	out := output.OK("Found %d distribution file(s)", len(arts))
	if len(wheels) > 0 {
		out.Text("Found %d wheel file(s)", len(wheels)).Lines("  • ", firstN(wheels, 3))
	}
	if len(sdists) > 0 {
		out.Text("Found %d sdist file(s)", len(sdists)).Lines("  • ", firstN(sdists, 3))
	}
	return out.
		With("wheels", wheels).
		With("sdists", sdists).
		With("total", len(arts))
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// DistVersionMatch passes when every artifact carries the expected version.
// "-" and "_" are interchangeable in the version field.
var DistVersionMatch = Check{Name: "dist-version-match", Run: distVersionMatch}

func distVersionMatch(ctx context.Context, env *Env, p Params) *output.Output {
	version := env.version(p)
	if out := distHasFiles(ctx, env, p); !out.Success {
		return out
	}
	arts, err := Artifacts(env.DistDir(), env.Project.Package)
	if err != nil {
		return output.Fail("Cannot read %s", env.distName()).Text("%v", err)
	}

	want := strings.ReplaceAll(version, "-", "_")
	var matched, mismatched []string
	for _, a := range arts {
		switch {
		case a.Version == "":
			mismatched = append(mismatched, a.Name+" (cannot determine version)")
		case a.Version == version || strings.ReplaceAll(a.Version, "-", "_") == want:
			matched = append(matched, a.Name)
		default:
			mismatched = append(mismatched, a.Name+" (has version "+a.Version+")")
		}
	}

	if len(mismatched) > 0 {
		return output.Fail("Distribution files don't match version %s", version).
			Text("Mismatched files:").
			Lines("  • ", mismatched).
			With("mismatched", mismatched).
			Next(
				"Clean dist: rm -rf "+env.distName()+"/",
				"Rebuild: relkit build",
			)
	}
	return output.OK("All distribution files match version %s", version).
		Text("Verified %d file(s)", len(matched)).
		With("files", matched)
}

// DistClean passes unless artifacts of more than one version are present.
// A missing or empty dist directory is clean.
var DistClean = Check{Name: "dist-clean", Run: distClean}

func distClean(ctx context.Context, env *Env, p Params) *output.Output {
	if out := distExists(ctx, env, p); !out.Success {
		return output.OK("No %s directory (clean)", env.distName())
	}
	arts, err := Artifacts(env.DistDir(), env.Project.Package)
	if err != nil {
		return output.Fail("Cannot read %s", env.distName()).Text("%v", err)
	}
	if len(arts) == 0 {
		return output.OK("%s directory is empty (clean)", env.distName())
	}

	seen := make(map[string]bool)
	var versions []string
	for _, a := range arts {
		if a.Version != "" && !seen[a.Version] {
			seen[a.Version] = true
			versions = append(versions, a.Version)
		}
	}
	sort.Strings(versions)

	if len(versions) > 1 {
		return output.Fail("%s contains %d different versions", env.distName(), len(versions)).
			Text("Found versions:").
			Lines("  • ", versions).
			Spacer().
			Text("Clean %s before building new version", env.distName()).
			With("versions", versions).
			Next(
				"Clean dist: rm -rf "+env.distName()+"/",
				"Then build: relkit build",
			)
	}
	out := output.OK("%s directory is clean (single version)", env.distName())
	if len(versions) == 1 {
		out.With("version", versions[0])
	}
	return out
}
