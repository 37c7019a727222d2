package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/justic-ssg/justic/config"
	"github.com/justic-ssg/justic/loader"
	"github.com/justic-ssg/justic/renderer"
	"github.com/justic-ssg/justic/templatex"
)

const (
	// EntryName is the optional root declaration that becomes the entry node.
	EntryName = "justiconf"
	// ContentDirName is the entry node used when no justiconf exists.
	ContentDirName = "content"
)

// Options configures a Service. Nil collaborators get defaults backed by Fs.
type Options struct {
	Root      string
	Fs        afero.Fs
	Loader    loader.Loader
	Templates *templatex.Engine
	Renderer  *renderer.Renderer
	Logger    *slog.Logger
	KeepGoing bool
}

// Service resolves the node tree under a root and writes the static site.
type Service struct {
	root      string
	fs        afero.Fs
	loader    loader.Loader
	templates *templatex.Engine
	renderer  *renderer.Renderer
	logger    *slog.Logger
	keepGoing bool

	buildMu   sync.Mutex
	mu        sync.Mutex
	outputDir string
}

// NewService constructs a Service instance.
func NewService(opts Options) (*Service, error) {
	defaults, err := config.Defaults(opts.Root)
	if err != nil {
		return nil, err
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	rend := opts.Renderer
	if rend == nil {
		rend = renderer.New()
	}
	ld := opts.Loader
	if ld == nil {
		ld = loader.NewDefault(fs, rend)
	}
	templates := opts.Templates
	if templates == nil {
		templates = templatex.New(fs, rend)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		root:      defaults.Root,
		fs:        fs,
		loader:    ld,
		templates: templates,
		renderer:  rend,
		logger:    logger,
		keepGoing: opts.KeepGoing,
		outputDir: defaults.BuildDir,
	}, nil
}

// Root returns the absolute project root.
func (s *Service) Root() string {
	return s.root
}

// OutputDir returns the build directory of the entry node from the latest
// build, or the default build directory before the first one.
func (s *Service) OutputDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputDir
}

// BuildStatic walks the node tree from the entry node and writes every
// rendered page and static copy. In keep-going mode failing subtrees are
// logged and skipped, and their errors are joined into the result. Concurrent
// calls run one at a time.
func (s *Service) BuildStatic(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	start := time.Now()
	entry, inherited, err := s.entry()
	if err != nil {
		return err
	}
	// Templates may have changed since the previous build.
	s.templates.Reset()

	b := &build{
		fs:           s.fs,
		loader:       s.loader,
		templates:    s.templates,
		renderer:     s.renderer,
		logger:       s.logger,
		keepGoing:    s.keepGoing,
		staticOwners: make(map[string]string),
	}
	if err := b.visit(ctx, entry, inherited, nil); err != nil {
		if len(b.failures) == 0 {
			return err
		}
		return errors.Join(append(b.failures, err)...)
	}

	s.mu.Lock()
	s.outputDir = b.outputDir
	s.mu.Unlock()

	if len(b.failures) > 0 {
		s.logger.Warn("build finished with errors", "failed", len(b.failures), "pages", b.pages)
		return errors.Join(b.failures...)
	}
	s.logger.Info("build finished", "entry", entry, "pages", b.pages, "static", b.statics, "duration", time.Since(start))
	return nil
}

// entry picks the first node of the walk. A root level justiconf declaration
// wins; otherwise the content directory is walked with its own name removed
// from output paths.
func (s *Service) entry() (string, Inherited, error) {
	cfg, err := config.Defaults(s.root)
	if err != nil {
		return "", Inherited{}, err
	}
	for _, suffix := range s.loader.Suffixes() {
		candidate := filepath.Join(s.root, EntryName+suffix)
		info, err := s.fs.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", Inherited{}, err
		}
		if info.Mode().IsRegular() {
			return candidate, Inherited{Config: cfg}, nil
		}
	}

	content := filepath.Join(s.root, ContentDirName)
	ok, err := afero.DirExists(s.fs, content)
	if err != nil {
		return "", Inherited{}, err
	}
	if !ok {
		return "", Inherited{}, fmt.Errorf("%w: %s has no %s declaration or %s directory", ErrNoEntry, s.root, EntryName, ContentDirName)
	}
	prefix := ContentDirName
	cfg, err = cfg.Apply(config.Overrides{RemoveBuildPrefix: &prefix})
	if err != nil {
		return "", Inherited{}, err
	}
	return content, Inherited{Config: cfg}, nil
}
