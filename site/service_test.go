package site

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/justic-ssg/justic/loader"
	"github.com/justic-ssg/justic/templatex"
)

const indexTemplate = `<h1>{{ .TITLE }}</h1>`

func newTestSite(t *testing.T, files map[string]string, keepGoing bool) (*Service, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	svc, err := NewService(Options{
		Root:      "/site",
		Fs:        fs,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		KeepGoing: keepGoing,
	})
	require.NoError(t, err)
	return svc, fs
}

func readFile(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	return string(data)
}

func requireMissing(t *testing.T, fs afero.Fs, name string) {
	t.Helper()
	ok, err := afero.Exists(fs, name)
	require.NoError(t, err)
	require.False(t, ok, name)
}

func TestBuildStaticRendersContentTree(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/content/__init__":     "__JUSTIC__:\n  defaultTemplate: index.html\n",
		"/site/content/page":         "TITLE: Hello\n",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, "<h1>Hello</h1>", readFile(t, fs, "/site/build/page.html"))
	requireMissing(t, fs, "/site/build/__init__.html")
	requireMissing(t, fs, "/site/build.html")
	require.Equal(t, "/site/build", svc.OutputDir())
}

func TestBuildStaticInheritsAlongBranch(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/page.html":   `{{ .SITE }}|{{ .SECTION }}|{{ .TITLE }}|{{ .BODY }}`,
		"/site/content/__init__":      "__JUSTIC__:\n  defaultTemplate: page.html\nSITE: Docs\nSECTION: none\n",
		"/site/content/blog/__init__": "SECTION: Blog\n",
		"/site/content/blog/post.md":  "---\nTITLE: First\n---\nHello *there*\n",
		"/site/content/about":         "TITLE: About\n",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	post := readFile(t, fs, "/site/build/blog/post.html")
	require.Contains(t, post, "Docs|Blog|First|")
	require.Contains(t, post, "<em>there</em>")
	require.Contains(t, readFile(t, fs, "/site/build/about.html"), "Docs|none|About|")
}

func TestBuildStaticIsDeterministic(t *testing.T) {
	files := map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/content/__init__":     "__JUSTIC__:\n  defaultTemplate: index.html\n",
		"/site/content/a":            "TITLE: A\n",
		"/site/content/b/c":          "TITLE: C\n",
	}
	svc, fs := newTestSite(t, files, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	first := readFile(t, fs, "/site/build/b/c.html")
	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, first, readFile(t, fs, "/site/build/b/c.html"))
	require.Equal(t, "<h1>A</h1>", readFile(t, fs, "/site/build/a.html"))
}

func TestBuildStaticExplicitBuildAndRenderFlag(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/content/__init__":     "__JUSTIC__:\n  defaultTemplate: index.html\n",
		"/site/content/home":         "TITLE: Home\n__META__:\n  build: index.html\n",
		"/site/content/draft":        "TITLE: Draft\n__META__:\n  render: false\n",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, "<h1>Home</h1>", readFile(t, fs, "/site/build/index.html"))
	requireMissing(t, fs, "/site/build/home.html")
	requireMissing(t, fs, "/site/build/draft.html")
}

func TestBuildStaticWithoutTemplateWritesNothing(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/content/page": "TITLE: Hello\n",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	requireMissing(t, fs, "/site/build/page.html")
}

func TestBuildStaticDeclaredTargetsReplaceListing(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/content/__init__":     "__JUSTIC__:\n  defaultTemplate: index.html\n__META__:\n  targets: [a]\n",
		"/site/content/a":            "TITLE: A\n",
		"/site/content/b":            "TITLE: B\n",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, "<h1>A</h1>", readFile(t, fs, "/site/build/a.html"))
	requireMissing(t, fs, "/site/build/b.html")
}

func TestBuildStaticCopiesStatic(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/content/__init__":        "__META__:\n  static: assets\n",
		"/site/content/assets/site.css": "body{}",
		"/site/build/static/stale.css":  "old",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, "body{}", readFile(t, fs, "/site/build/static/site.css"))
	requireMissing(t, fs, "/site/build/static/stale.css")
}

func TestBuildStaticLastStaticCopyWins(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/content/__init__":     "__META__:\n  static: one\n",
		"/site/content/sub/__init__": "__META__:\n  static: ../two\n",
		"/site/content/one/a.css":    "a",
		"/site/content/two/b.css":    "b",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, "a", readFile(t, fs, "/site/build/static/a.css"))
	requireMissing(t, fs, "/site/build/static/b.css")
}

func TestBuildStaticSiblingStaticFollowsTargetOrder(t *testing.T) {
	files := map[string]string{
		"/site/content/a":         "__META__:\n  static: one\n",
		"/site/content/b":         "__META__:\n  static: two\n",
		"/site/content/one/a.css": "a",
		"/site/content/two/b.css": "b",
	}

	files["/site/content/__init__"] = "__META__:\n  targets: [a, b]\n"
	svc, fs := newTestSite(t, files, false)
	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, "b", readFile(t, fs, "/site/build/static/b.css"))
	requireMissing(t, fs, "/site/build/static/a.css")

	files["/site/content/__init__"] = "__META__:\n  targets: [b, a]\n"
	svc, fs = newTestSite(t, files, false)
	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, "a", readFile(t, fs, "/site/build/static/a.css"))
	requireMissing(t, fs, "/site/build/static/b.css")
}

func TestBuildStaticMissingStatic(t *testing.T) {
	svc, _ := newTestSite(t, map[string]string{
		"/site/content/__init__": "__META__:\n  static: nowhere\n",
	}, false)

	err := svc.BuildStatic(context.Background())
	require.ErrorIs(t, err, ErrStaticSourceMissing)
	require.Equal(t, "static-source-missing", ErrorKind(err))
	require.Equal(t, "/site/content", ErrorPath(err))
}

func TestBuildStaticRejectsPathOutsideRoot(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/content/__init__":     "__JUSTIC__:\n  defaultTemplate: index.html\n__META__:\n  targets: [../outside]\n",
		"/site/outside":              "TITLE: Out\n",
	}, false)

	err := svc.BuildStatic(context.Background())
	require.ErrorIs(t, err, ErrPathOutsideRoot)
	require.Equal(t, "path-outside-root", ErrorKind(err))
	requireMissing(t, fs, "/outside.html")
}

func TestBuildStaticRejectsFileAtBuildPrefix(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/content/__init__":     "__JUSTIC__:\n  defaultTemplate: index.html\n",
		"/site/content/page":         "TITLE: Hello\n__JUSTIC__:\n  removeBuildPrefix: content/page\n",
	}, false)

	err := svc.BuildStatic(context.Background())
	require.ErrorIs(t, err, ErrPathOutsideRoot)
	require.Equal(t, "/site/content/page", ErrorPath(err))
	requireMissing(t, fs, "/site/build.html")
	requireMissing(t, fs, "/site/build/page.html")
}

func TestBuildStaticDetectsCycles(t *testing.T) {
	svc, _ := newTestSite(t, map[string]string{
		"/site/content/__init__": "__META__:\n  targets: [a]\n",
		"/site/content/a":        "__META__:\n  target: b\n",
		"/site/content/b":        "__META__:\n  target: a\n",
	}, false)

	err := svc.BuildStatic(context.Background())
	require.ErrorIs(t, err, ErrCyclicTarget)
	require.Equal(t, "cyclic-target", ErrorKind(err))
}

func TestBuildStaticAllowsSharedTargets(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/content/__init__":     "__JUSTIC__:\n  defaultTemplate: index.html\n__META__:\n  targets: [a, b]\n",
		"/site/content/a":            "__META__:\n  render: false\n  target: shared\n",
		"/site/content/b":            "__META__:\n  render: false\n  target: shared\n",
		"/site/content/shared":       "TITLE: Shared\n",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, "<h1>Shared</h1>", readFile(t, fs, "/site/build/shared.html"))
}

func TestBuildStaticMissingTarget(t *testing.T) {
	svc, _ := newTestSite(t, map[string]string{
		"/site/content/__init__": "__META__:\n  target: ghost\n",
	}, false)

	err := svc.BuildStatic(context.Background())
	require.ErrorIs(t, err, ErrTargetNotFound)
	require.Equal(t, "/site/content/ghost", ErrorPath(err))
}

func TestBuildStaticTemplateNotFound(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/content/page":         "__META__:\n  template: missing.html\n",
	}, false)

	err := svc.BuildStatic(context.Background())
	require.ErrorIs(t, err, templatex.ErrTemplateNotFound)
	require.Equal(t, "template-not-found", ErrorKind(err))
	requireMissing(t, fs, "/site/build/page.html")
}

func TestBuildStaticLoadError(t *testing.T) {
	svc, _ := newTestSite(t, map[string]string{
		"/site/content/page": "TITLE: [broken\n",
	}, false)

	err := svc.BuildStatic(context.Background())
	var loadErr *loader.LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, "load", ErrorKind(err))
	require.Equal(t, "/site/content/page", ErrorPath(err))
}

func TestBuildStaticUnknownConfigKey(t *testing.T) {
	svc, _ := newTestSite(t, map[string]string{
		"/site/content/__init__": "__JUSTIC__:\n  biuldDir: out\n",
	}, false)

	err := svc.BuildStatic(context.Background())
	require.Equal(t, "load", ErrorKind(err))
}

func TestBuildStaticFailFastAndKeepGoing(t *testing.T) {
	files := map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/content/__init__":     "__JUSTIC__:\n  defaultTemplate: index.html\n",
		"/site/content/a":            "__META__:\n  template: missing.html\n",
		"/site/content/b":            "TITLE: B\n",
		"/site/content/c":            "__META__:\n  static: nowhere\n",
	}

	svc, fs := newTestSite(t, files, false)
	err := svc.BuildStatic(context.Background())
	require.ErrorIs(t, err, templatex.ErrTemplateNotFound)
	requireMissing(t, fs, "/site/build/b.html")

	svc, fs = newTestSite(t, files, true)
	err = svc.BuildStatic(context.Background())
	require.ErrorIs(t, err, templatex.ErrTemplateNotFound)
	require.ErrorIs(t, err, ErrStaticSourceMissing)
	require.Equal(t, "<h1>B</h1>", readFile(t, fs, "/site/build/b.html"))
}

func TestBuildStaticJusticonfEntry(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/justiconf.yaml":       "__JUSTIC__:\n  defaultTemplate: index.html\n  buildDir: public\n__META__:\n  render: false\n  targets: [pages]\n",
		"/site/pages/hello":          "TITLE: Hi\n",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, "<h1>Hi</h1>", readFile(t, fs, "/site/public/pages/hello.html"))
	require.Equal(t, "/site/public", svc.OutputDir())
}

func TestBuildStaticIgnoresRootOverride(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/index.html": indexTemplate,
		"/site/content/__init__":     "__JUSTIC__:\n  root: /elsewhere\n  defaultTemplate: index.html\n",
		"/site/content/page":         "TITLE: Hello\n",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	require.Equal(t, "<h1>Hello</h1>", readFile(t, fs, "/site/build/page.html"))
}

func TestBuildStaticMinify(t *testing.T) {
	svc, fs := newTestSite(t, map[string]string{
		"/site/templates/index.html": "<div>\n\n    <p>   {{ .TITLE }}   </p>\n\n</div>\n",
		"/site/content/__init__":     "__JUSTIC__:\n  defaultTemplate: index.html\n  minify: true\n",
		"/site/content/page":         "TITLE: Hello\n",
	}, false)

	require.NoError(t, svc.BuildStatic(context.Background()))
	out := readFile(t, fs, "/site/build/page.html")
	require.Contains(t, out, "Hello")
	require.NotContains(t, out, "\n\n")
}

func TestBuildStaticNoEntry(t *testing.T) {
	svc, _ := newTestSite(t, map[string]string{"/site/readme": "x"}, false)
	err := svc.BuildStatic(context.Background())
	require.ErrorIs(t, err, ErrNoEntry)
}

func TestBuildStaticHonorsCancellation(t *testing.T) {
	svc, _ := newTestSite(t, map[string]string{"/site/content/page": "TITLE: x\n"}, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.BuildStatic(ctx)
	require.True(t, errors.Is(err, context.Canceled))
}
