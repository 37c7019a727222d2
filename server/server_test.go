package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type fakeSite struct {
	dir      string
	builds   int
	err      error
	buildErr error
}

func (f *fakeSite) OutputDir() string { return f.dir }

func (f *fakeSite) BuildStatic(ctx context.Context) error {
	f.builds++
	f.buildErr = ctx.Err()
	return f.err
}

func newTestServer(t *testing.T, site *fakeSite, opts Options) *Server {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/out/index.html":      "home",
		"/out/blog/post.html":  "post",
		"/out/docs/index.html": "docs",
		"/out/static/site.css": "body{}",
		"/secret.html":         "nope",
	}
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	return New(site, fs, slog.New(slog.NewTextHandler(io.Discard, nil)), opts)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServesBuiltPages(t *testing.T) {
	h := newTestServer(t, &fakeSite{dir: "/out"}, Options{ServerHeader: "justic"}).Handler()

	cases := map[string]string{
		"/":                "home",
		"/blog/post":       "post",
		"/blog/post.html":  "post",
		"/docs":            "docs",
		"/docs/":           "docs",
		"/static/site.css": "body{}",
	}
	for target, want := range cases {
		rec := get(t, h, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		require.Equal(t, want, rec.Body.String(), target)
		require.Equal(t, "justic", rec.Header().Get("Server"))
	}
}

func TestRejectsPathsOutsideOutput(t *testing.T) {
	h := newTestServer(t, &fakeSite{dir: "/out"}, Options{}).Handler()

	rec := get(t, h, "/../secret.html")
	require.NotEqual(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "nope")
	require.Equal(t, http.StatusNotFound, get(t, h, "/missing").Code)
}

func TestRebuild(t *testing.T) {
	site := &fakeSite{dir: "/out"}
	h := newTestServer(t, site, Options{RebuildSecret: "token"}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rebuild", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/rebuild", nil)
	req.Header.Set("Authorization", "token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, site.builds)

	require.Equal(t, http.StatusMethodNotAllowed, get(t, h, "/api/rebuild").Code)
}

func TestRebuildFailure(t *testing.T) {
	site := &fakeSite{dir: "/out", err: errors.New("boom")}
	h := newTestServer(t, site, Options{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rebuild", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "boom")
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSite{dir: "/out"}, Options{}).Handler(), "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRebuildOutlivesClientRequest(t *testing.T) {
	site := &fakeSite{dir: "/out"}
	h := newTestServer(t, site, Options{}).Handler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/rebuild", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, site.builds)
	require.NoError(t, site.buildErr)
}
