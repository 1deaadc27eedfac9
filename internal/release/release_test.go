package release

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/config"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/project"
	"github.com/relkit/relkit/internal/runner"
	"github.com/relkit/relkit/internal/testutil"
	"github.com/relkit/relkit/internal/token"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const released = "## [1.2.3] - 2026-01-10\n\n### Added\n- First release"

type fixture struct {
	dir  string
	fake *testutil.FakeRunner
	ch   token.MapChannel
	now  time.Time
	env  *check.Env
}

func newFixture(t *testing.T, classifiers ...string) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), fake: testutil.NewFakeRunner(), ch: token.MapChannel{}, now: t0}
	testutil.WriteProject(t, f.dir, "pkg", "1.2.3", classifiers...)
	f.load(t)

	prev := now
	now = func() time.Time { return t0 }
	t.Cleanup(func() { now = prev })
	return f
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	proj, err := project.Load(f.dir, f.fake)
	require.NoError(t, err)
	cfg, err := config.Load(f.dir)
	require.NoError(t, err)
	tokens, err := token.NewService([]byte("release-secret"), token.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.env = &check.Env{Project: proj, Runner: f.fake, Config: cfg, Tokens: tokens, Channel: f.ch}
}

func (f *fixture) changelog(t *testing.T, unreleased string, sections ...string) {
	t.Helper()
	testutil.WriteFile(t, f.dir, "CHANGELOG.md", testutil.Changelog(unreleased, sections...))
}

// present puts a valid token for sc on the channel.
func (f *fixture) present(t *testing.T, sc token.Scope) {
	t.Helper()
	tok, err := f.env.Tokens.Mint(f.env.Project.Name, sc)
	require.NoError(t, err)
	f.ch[sc.Key()] = tok
}

func (f *fixture) run(cmd Command) *output.Output {
	f.env.Command = ""
	return cmd.Execute(context.Background(), f.env)
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, rel))
	require.NoError(t, err)
	return string(data)
}

func tokens(out *output.Output) []output.Detail {
	var toks []output.Detail
	for _, d := range out.Details {
		if d.Kind == output.KindToken {
			toks = append(toks, d)
		}
	}
	return toks
}

func onlyToken(t *testing.T, out *output.Output) output.Detail {
	t.Helper()
	toks := tokens(out)
	require.Len(t, toks, 1, "details: %+v", out.Details)
	return toks[0]
}

func (f *fixture) tagged(commits string) {
	f.fake.Stdout("v1.2.3\n", "git", "describe")
	f.fake.Stdout(commits+"\n", "git", "rev-list", "--count")
}

func TestBumpRequiresReview(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "### Added\n- New thing")
	f.tagged("3")

	out := f.run(Bump("minor"))
	assert.False(t, out.Success)
	assert.Equal(t, "Review commits before continuing", out.Message)
	assert.Contains(t, out.NextSteps, "git log --oneline v1.2.3..HEAD")
	assert.Contains(t, out.NextSteps, "git diff v1.2.3")
	tok := onlyToken(t, out)
	assert.Equal(t, "REVIEW_COMMITS", tok.Key)
	assert.Contains(t, out.NextSteps, "REVIEW_COMMITS="+tok.Value+" relkit bump minor")
	assert.Contains(t, f.read(t, "pyproject.toml"), `version = "1.2.3"`)
}

func TestBumpUpdatesManifestAndChangelog(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "### Added\n- New thing", released)
	f.tagged("3")
	f.fake.Stdout("abc123 feat: new thing\ndef456 fix: old thing\n", "git", "log")
	f.present(t, token.Review("commits", reviewTTL))

	out := f.run(Bump("minor"))
	require.True(t, out.Success, "%+v", out)
	assert.Equal(t, "Bumped version to 1.3.0", out.Message)
	assert.Equal(t, output.Detail{Kind: output.KindVersionChange, Old: "1.2.3", New: "1.3.0"}, out.Details[0])
	assert.Equal(t, "1.3.0", out.Get("new"))
	assert.Equal(t, 3, out.Get("commits"))
	assert.Equal(t, true, out.Get("changelog_updated"))
	assert.Contains(t, out.NextSteps, "Tag with: relkit tag")

	assert.Contains(t, f.read(t, "pyproject.toml"), `version = "1.3.0"`)
	log := f.read(t, "CHANGELOG.md")
	assert.Contains(t, log, "## [Unreleased]\n\n## [1.3.0] - 2026-03-01\n\n### Added\n- New thing")
	assert.Contains(t, log, released)
}

func TestBumpEmptyChangelogOverride(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "### Added")
	f.tagged("0")
	f.present(t, token.Review("commits", reviewTTL))

	out := f.run(Bump("patch"))
	require.False(t, out.Success)
	assert.Equal(t, "commits-documented", out.Get("check"))
	tok := onlyToken(t, out)
	assert.Equal(t, "FORCE_EMPTY_CHANGELOG", tok.Key)
	assert.Equal(t, 300, tok.ExpiresIn)

	f.ch[tok.Key] = tok.Value
	out = f.run(Bump("patch"))
	require.True(t, out.Success, "%+v", out)
	assert.Contains(t, f.read(t, "pyproject.toml"), `version = "1.2.4"`)
}

func TestBumpOverrideExpires(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "")
	f.tagged("0")

	out := f.run(Bump("patch"))
	f.ch["REVIEW_COMMITS"] = onlyToken(t, out).Value
	out = f.run(Bump("patch"))
	force := onlyToken(t, out)
	f.ch[force.Key] = force.Value

	f.now = f.now.Add(6 * time.Minute)
	f.present(t, token.Review("commits", reviewTTL))
	out = f.run(Bump("patch"))
	assert.False(t, out.Success)
	assert.Equal(t, "FORCE_EMPTY_CHANGELOG", onlyToken(t, out).Key)
	assert.NotEqual(t, force.Value, onlyToken(t, out).Value)
	assert.Contains(t, f.read(t, "pyproject.toml"), `version = "1.2.3"`)
}

func TestBumpMajorNeedsAcknowledgment(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "### Removed\n- Old API")
	f.tagged("2")
	f.present(t, token.Review("commits", reviewTTL))

	out := f.run(Bump("major"))
	require.False(t, out.Success)
	assert.Equal(t, "major-bump", out.Get("check"))
	assert.Equal(t, "ACK_MAJOR_BUMP", onlyToken(t, out).Key)

	f.ch["ACK_MAJOR_BUMP"] = onlyToken(t, out).Value
	out = f.run(Bump("major"))
	require.True(t, out.Success, "%+v", out)
	assert.Equal(t, "2.0.0", out.Get("new"))
}

func TestBumpBlockedByDirtyTree(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "### Added\n- x")
	f.tagged("1")
	f.fake.Stdout(" M src/pkg/__init__.py\n", "git", "status")
	f.present(t, token.Review("commits", reviewTTL))

	out := f.run(Bump("patch"))
	assert.False(t, out.Success)
	assert.Equal(t, "git-clean", out.Get("check"))
	assert.Empty(t, tokens(out))
}

func TestBumpInvalidType(t *testing.T) {
	f := newFixture(t)
	out := f.run(Bump("huge"))
	assert.False(t, out.Success)
	assert.Equal(t, "Invalid bump type: huge", out.Message)
	assert.Empty(t, f.fake.Calls())
}

func TestWorkspaceRootNeedsPackage(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "pyproject.toml", "[tool.uv.workspace]\nmembers = [\"packages/*\"]\n")
	testutil.WriteProject(t, filepath.Join(dir, "packages", "alpha"), "alpha", "0.1.0")
	f := &fixture{dir: dir, fake: testutil.NewFakeRunner(), ch: token.MapChannel{}, now: t0}
	f.load(t)

	out := f.run(Publish())
	assert.False(t, out.Success)
	assert.Contains(t, out.Message, "is a workspace; choose a package")
	assert.Contains(t, out.NextSteps, "Rerun with: relkit publish --package alpha")

	sel, err := f.env.Project.Select("alpha")
	require.NoError(t, err)
	f.env.Project = sel
	assert.Equal(t, "tag --no-push --package alpha", Tag(false).Invocation(f.env))
}

func (f *fixture) readyToTag(t *testing.T) {
	t.Helper()
	f.changelog(t, "", released)
	f.fake.Stdout("origin\tgit@example.com:pkg.git (fetch)\n", "git", "remote")
	f.fake.Stdout("origin/main\n", "git", "rev-parse", "--abbrev-ref")
	f.present(t, token.Review("commits", reviewTTL))
	f.present(t, token.Confirm("tag", tagTTL))
}

func TestTagGuardOrder(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "", released)

	out := f.run(Tag(true))
	assert.Equal(t, "REVIEW_COMMITS", onlyToken(t, out).Key)

	f.present(t, token.Review("commits", reviewTTL))
	out = f.run(Tag(true))
	tok := onlyToken(t, out)
	assert.Equal(t, "CONFIRM_TAG", tok.Key)
	assert.Equal(t, 180, tok.ExpiresIn)
	assert.Contains(t, out.NextSteps, "REVIEW_COMMITS="+f.ch["REVIEW_COMMITS"]+" CONFIRM_TAG="+tok.Value+" relkit tag")

	f.ch[tok.Key] = tok.Value
	f.fake.Stdout("?? notes.txt\n", "git", "status")
	out = f.run(Tag(true))
	assert.False(t, out.Success)
	assert.Equal(t, "requires_clean_git", out.Get("guard"))
	assert.False(t, f.fake.Called("git", "tag", "-a"))
}

func TestTagCreatesAndPushes(t *testing.T) {
	f := newFixture(t)
	f.readyToTag(t)

	out := f.run(Tag(true))
	require.True(t, out.Success, "%+v", out)
	assert.Equal(t, "Tagged release 1.2.3", out.Message)
	assert.Equal(t, "v1.2.3", out.Get("tag"))
	assert.Equal(t, true, out.Get("pushed"))
	assert.True(t, f.fake.Called("git", "tag", "-a", "v1.2.3", "-m", "Release 1.2.3"))
	assert.True(t, f.fake.Called("git", "push", "origin", "v1.2.3"))
}

func TestTagNoPush(t *testing.T) {
	f := newFixture(t)
	f.readyToTag(t)

	out := f.run(Tag(false))
	require.True(t, out.Success, "%+v", out)
	assert.Equal(t, false, out.Get("pushed"))
	assert.False(t, f.fake.Called("git", "push"))
}

func TestTagPushFailureKeepsTag(t *testing.T) {
	f := newFixture(t)
	f.readyToTag(t)
	f.fake.Exit(1, "permission denied", "git", "push")

	out := f.run(Tag(true))
	require.True(t, out.Success)
	assert.Equal(t, false, out.Get("pushed"))
	assert.Contains(t, out.NextSteps, "Push the tag: git push origin v1.2.3")
}

func TestTagPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		script  func(f *fixture)
		message string
	}{
		{
			name:    "no remote",
			script:  func(f *fixture) { f.fake.Stdout("", "git", "remote") },
			message: "No git remote configured",
		},
		{
			name:    "no upstream",
			script:  func(f *fixture) { f.fake.Exit(128, "no upstream", "git", "rev-parse", "--abbrev-ref") },
			message: "Branch not pushed to remote",
		},
		{
			name:    "unpushed commits",
			script:  func(f *fixture) { f.fake.Stdout("+ abc one\n+ def two\n", "git", "cherry") },
			message: "Branch has 2 unpushed commit(s)",
		},
		{
			name:    "tag exists",
			script:  func(f *fixture) { f.fake.Stdout("v1.2.3\n", "git", "tag", "-l") },
			message: "Tag v1.2.3 already exists",
		},
		{
			name: "undocumented version",
			script: func(f *fixture) {
				_ = os.WriteFile(filepath.Join(f.dir, "CHANGELOG.md"), []byte(testutil.Changelog("- pending")), 0o600)
			},
			message: "No changelog entry for version 1.2.3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.readyToTag(t)
			tt.script(f)

			out := f.run(Tag(true))
			assert.False(t, out.Success)
			assert.Equal(t, tt.message, out.Message)
			assert.NotEmpty(t, out.NextSteps)
			assert.False(t, f.fake.Called("git", "tag", "-a"))
		})
	}
}

func (f *fixture) readyToPublish(t *testing.T) {
	t.Helper()
	f.fake.Stdout("v1.2.3\n", "git", "tag", "-l", "v1.2.3")
	f.fake.Stdout("pypi-from-pass\n", "pass")
	testutil.Touch(t, f.dir, "dist/pkg-1.2.3-py3-none-any.whl", "dist/pkg-1.2.3.tar.gz")
}

func publishCall(t *testing.T, fake *testutil.FakeRunner) runner.Cmd {
	t.Helper()
	for _, c := range fake.Calls() {
		if len(c.Args) > 1 && c.Args[0] == "uv" && c.Args[1] == "publish" {
			return c
		}
	}
	t.Fatalf("uv publish not called: %v", fake.CommandLines())
	return runner.Cmd{}
}

func TestPublishRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	f.readyToPublish(t)

	out := f.run(Publish())
	assert.False(t, out.Success)
	assert.Equal(t, "CONFIRM_PUBLISH", onlyToken(t, out).Key)
	assert.Equal(t, 300, onlyToken(t, out).ExpiresIn)
	assert.False(t, f.fake.Called("uv", "publish"))
}

func TestPublishUploadsWithToken(t *testing.T) {
	f := newFixture(t)
	f.readyToPublish(t)
	f.present(t, token.Confirm("publish", publishTTL))

	out := f.run(Publish())
	require.True(t, out.Success, "%+v", out)
	assert.Equal(t, "Published pkg 1.2.3 to PyPI", out.Message)
	assert.Equal(t, []string{"pkg-1.2.3-py3-none-any.whl", "pkg-1.2.3.tar.gz"}, out.Get("files"))

	call := publishCall(t, f.fake)
	assert.Equal(t, "pypi-from-pass", call.Env["UV_PUBLISH_TOKEN"])
	assert.Len(t, call.Args, 4)
}

func TestPublishPrivateSkipsConfirmation(t *testing.T) {
	f := newFixture(t, project.PrivateClassifier)
	f.readyToPublish(t)

	out := f.run(Publish())
	require.True(t, out.Success, "%+v", out)
	assert.Equal(t, false, out.Get("public"))
}

func TestPublishBlockedByWorkflow(t *testing.T) {
	f := newFixture(t)
	f.readyToPublish(t)
	testutil.Touch(t, f.dir, "dist/pkg-1.2.2.tar.gz")
	f.present(t, token.Confirm("publish", publishTTL))

	out := f.run(Publish())
	assert.False(t, out.Success)
	assert.Equal(t, []string{"dist-version-match", "dist-clean"}, out.Get("failed"))
	assert.False(t, f.fake.Called("uv", "publish"))
}

func TestPublishUntagged(t *testing.T) {
	f := newFixture(t)
	f.readyToPublish(t)
	f.fake.Stdout("", "git", "tag", "-l", "v1.2.3")
	f.present(t, token.Confirm("publish", publishTTL))

	out := f.run(Publish())
	assert.False(t, out.Success)
	assert.Equal(t, "Version 1.2.3 not tagged", out.Message)
	assert.Equal(t, []string{"version-tagged"}, out.Get("failed"))
}

func TestPublishTokenFromEnv(t *testing.T) {
	f := newFixture(t)
	f.readyToPublish(t)
	f.fake.Exit(1, "not in store", "pass")
	t.Setenv("UV_PUBLISH_TOKEN", "pypi-from-env")
	f.present(t, token.Confirm("publish", publishTTL))

	out := f.run(Publish())
	require.True(t, out.Success, "%+v", out)
	assert.Equal(t, "pypi-from-env", publishCall(t, f.fake).Env["UV_PUBLISH_TOKEN"])
}

func TestPublishNoToken(t *testing.T) {
	f := newFixture(t)
	f.readyToPublish(t)
	f.fake.Exit(1, "not in store", "pass")
	t.Setenv("UV_PUBLISH_TOKEN", "")
	f.present(t, token.Confirm("publish", publishTTL))

	out := f.run(Publish())
	assert.False(t, out.Success)
	assert.Equal(t, "No PyPI token found", out.Message)
	assert.Contains(t, out.NextSteps, "Set token in pass: pass insert pypi/uv-publish")
	assert.False(t, f.fake.Called("uv", "publish"))
}

func TestPublishAlreadyExists(t *testing.T) {
	f := newFixture(t)
	f.readyToPublish(t)
	f.fake.Exit(1, "File already exists on the index", "uv", "publish")
	f.present(t, token.Confirm("publish", publishTTL))

	out := f.run(Publish())
	assert.False(t, out.Success)
	assert.Equal(t, "Version 1.2.3 already exists on PyPI", out.Message)
	assert.Contains(t, out.NextSteps, "Bump version: relkit bump <major|minor|patch>")
}

func TestBuild(t *testing.T) {
	f := newFixture(t)
	testutil.Touch(t, f.dir, "dist/pkg-1.2.2.tar.gz", "dist/pkg-1.2.3-py3-none-any.whl", "dist/pkg-1.2.3.tar.gz")

	out := f.run(Build())
	require.True(t, out.Success, "%+v", out)
	assert.Equal(t, "Built pkg 1.2.3", out.Message)
	dist := filepath.Join(f.env.Project.RepoRoot, "dist")
	assert.True(t, f.fake.Called("uv", "build", "--out-dir", dist))
	assert.Equal(t, filepath.Join(dist, "pkg-1.2.3.tar.gz"), out.Get("sdist"))
	assert.Equal(t, filepath.Join(dist, "pkg-1.2.3-py3-none-any.whl"), out.Get("wheel"))
}

func TestBuildFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.Exit(2, "invalid pyproject.toml", "uv", "build")

	out := f.run(Build())
	assert.False(t, out.Success)
	assert.Equal(t, "Build failed", out.Message)
	assert.Equal(t, "invalid pyproject.toml", out.Details[0].Content)
	assert.Equal(t, []string{"Check pyproject.toml for errors"}, out.NextSteps)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "", released)
	f.tagged("4")

	out := f.run(Status())
	require.True(t, out.Success, "%+v", out)
	assert.Equal(t, "Ready for release (5/5 checks passed)", out.Message)
	assert.Contains(t, out.Details, output.Detail{Kind: output.KindText, Content: "Last tag: v1.2.3"})
	assert.Contains(t, out.Details, output.Detail{Kind: output.KindText, Content: "Commits since tag: 4"})
	assert.Contains(t, out.Details, output.Detail{Kind: output.KindCheck, Name: "Git", Success: true, Message: "Clean"})
	assert.Contains(t, out.Details, output.Detail{Kind: output.KindCheck, Name: "Types", Success: true, Message: "Passed"})
	assert.Empty(t, tokens(out))
}

func TestStatusNotReady(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "", released)
	f.fake.Stdout(" M a.py\n", "git", "status")
	f.fake.On([]string{"uv", "run", "ruff", "check"}, runner.Result{ExitCode: 1, Stdout: "a.py:1:1: F401 unused import\n"})

	out := f.run(Status())
	assert.False(t, out.Success)
	assert.Equal(t, "Not ready for release (3/5 checks passed)", out.Message)
	assert.Contains(t, out.Details, output.Detail{Kind: output.KindCheck, Name: "Git", Message: "1 uncommitted change(s)"})
	assert.Equal(t, []string{
		"Commit changes: git commit -am 'your message'",
		"Fix issues: uv run ruff check --fix .",
		"Then: relkit status",
	}, out.NextSteps)
}

func TestPreflight(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "", released)

	out := f.run(Preflight())
	require.True(t, out.Success, "%+v", out)
	assert.Equal(t, "All preflight checks passed (5/5)", out.Message)

	quality := f.fake.Count("uv", "run")
	assert.Equal(t, 3, quality)

	f.fake.Stdout(" M a.py\n", "git", "status")
	out = f.run(Preflight())
	assert.False(t, out.Success)
	assert.Equal(t, []string{"git-clean"}, out.Get("failed"))
	assert.Equal(t, quality, f.fake.Count("uv", "run"), "quality checks run only after the sequential stages")
}

func TestRunCheck(t *testing.T) {
	f := newFixture(t)
	out := f.run(RunCheck("dist-clean"))
	assert.True(t, out.Success)

	out = f.run(RunCheck("nope"))
	assert.False(t, out.Success)
	assert.Equal(t, "Unknown check: nope", out.Message)
}

func TestInitChangelog(t *testing.T) {
	f := newFixture(t)
	out := f.run(InitChangelog())
	require.True(t, out.Success)
	assert.Equal(t, "Created CHANGELOG.md", out.Message)
	assert.Contains(t, f.read(t, "CHANGELOG.md"), "## [Unreleased]")

	out = f.run(InitChangelog())
	assert.False(t, out.Success)
	assert.Equal(t, "CHANGELOG.md already exists", out.Message)
}

func TestShowChangelog(t *testing.T) {
	f := newFixture(t)
	f.changelog(t, "### Added\n- One\n- Two", released)

	out := f.run(ShowChangelog(""))
	require.True(t, out.Success)
	assert.Equal(t, "[Unreleased]: 2 entries", out.Message)
	assert.Equal(t, []string{"- One", "- Two"}, out.Get("entries"))
	assert.Contains(t, out.Get(MarkdownKey), "- Two")

	out = f.run(ShowChangelog("1.2.3"))
	require.True(t, out.Success)
	assert.Equal(t, "[1.2.3] - 2026-01-10: 1 entry", out.Message)

	out = f.run(ShowChangelog("9.9.9"))
	assert.False(t, out.Success)
}
