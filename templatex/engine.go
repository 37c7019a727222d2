package templatex

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/justic-ssg/justic/renderer"
	"github.com/spf13/afero"
)

var (
	// ErrTemplateNotFound is returned when the requested template name is not
	// defined in the templates directory.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateRender wraps parse and execution failures.
	ErrTemplateRender = errors.New("template render failed")
)

// Engine renders named templates found below a templates directory. Every
// file in the directory tree becomes a template named by its slash separated
// path relative to the directory, so "index.html" or "partials/nav.html".
type Engine struct {
	fs       afero.Fs
	markdown *renderer.Renderer

	mu   sync.Mutex
	sets map[string]*template.Template
}

// New constructs an engine reading templates from fs.
func New(fs afero.Fs, markdown *renderer.Renderer) *Engine {
	if markdown == nil {
		markdown = renderer.New()
	}
	return &Engine{fs: fs, markdown: markdown, sets: make(map[string]*template.Template)}
}

// Reset drops every parsed template set so the next render re-reads the disk.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.sets = make(map[string]*template.Template)
	e.mu.Unlock()
}

// Render executes template name from dir with data and writes the result to
// w. Nothing is written when rendering fails.
func (e *Engine) Render(w io.Writer, dir, name string, data any) error {
	set, err := e.load(dir)
	if err != nil {
		return err
	}
	key := filepath.ToSlash(strings.TrimSpace(name))
	tpl := set.Lookup(key)
	if tpl == nil {
		return fmt.Errorf("%w: %q in %s", ErrTemplateNotFound, name, dir)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTemplateRender, key, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

func (e *Engine) load(dir string) (*template.Template, error) {
	dir = filepath.Clean(dir)

	e.mu.Lock()
	defer e.mu.Unlock()
	if set, ok := e.sets[dir]; ok {
		return set, nil
	}

	ok, err := afero.DirExists(e.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("stat templates dir: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: templates directory %s does not exist", ErrTemplateNotFound, dir)
	}

	set := template.New("").Funcs(e.funcs())
	err = afero.Walk(e.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		src, err := afero.ReadFile(e.fs, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", rel, err)
		}
		if _, err := set.New(filepath.ToSlash(rel)).Parse(string(src)); err != nil {
			return fmt.Errorf("%w: parse %s: %w", ErrTemplateRender, rel, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.sets[dir] = set
	return set, nil
}
