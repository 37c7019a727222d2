package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/afero"

	"github.com/justic-ssg/justic/loader"
	"github.com/justic-ssg/justic/renderer"
	"github.com/justic-ssg/justic/templatex"
)

// build carries the state of one BuildStatic run.
type build struct {
	fs        afero.Fs
	loader    loader.Loader
	templates *templatex.Engine
	renderer  *renderer.Renderer
	logger    *slog.Logger
	keepGoing bool

	outputDir    string
	pages        int
	statics      int
	staticOwners map[string]string
	failures     []error
}

// visit processes one node: load, merge, render, then every target, then the
// static copy. ancestors holds the nodes on the current branch.
func (b *build) visit(ctx context.Context, node string, inherited Inherited, ancestors []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := b.fs.Stat(node)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &NodeError{Path: node, Op: "visit", Err: fmt.Errorf("%w: %s", ErrTargetNotFound, node)}
		}
		return &NodeError{Path: node, Op: "visit", Err: err}
	}
	isFile := info.Mode().IsRegular()

	decl, err := b.loader.Load(node)
	if err != nil {
		return err
	}
	if _, ok := decl.Config["root"]; ok {
		b.logger.Warn("root override ignored", "path", node)
	}

	st, err := Merge(inherited, decl, node, isFile)
	if err != nil {
		if errors.Is(err, ErrPathOutsideRoot) {
			return &NodeError{Path: node, Op: "merge", Err: err}
		}
		return &loader.LoadError{Path: node, Err: err}
	}
	if len(ancestors) == 0 {
		b.outputDir = st.Config.BuildDir
		if err := b.fs.MkdirAll(b.outputDir, 0o755); err != nil {
			return &NodeError{Path: node, Op: "visit", Err: fmt.Errorf("ensure build dir: %w", err)}
		}
	}
	b.logger.Debug("visit", "path", node, "render", st.Meta.Render, "template", st.Meta.Template, "build", st.Meta.Build)

	if err := b.renderNode(st); err != nil {
		return &NodeError{Path: node, Op: "render", Err: err}
	}

	targets, err := EnumerateTargets(b.fs, node, isFile, st.Meta, b.loader.Suffixes(), st.Config.BuildDir)
	if err != nil {
		return &NodeError{Path: node, Op: "targets", Err: err}
	}
	branch := append(slices.Clip(ancestors), node)
	for _, target := range targets {
		if slices.Contains(branch, target) {
			err = &NodeError{Path: node, Op: "targets", Err: fmt.Errorf("%w: %s", ErrCyclicTarget, target)}
		} else {
			err = b.visit(ctx, target, st.Inherited(), branch)
		}
		if err == nil {
			continue
		}
		if !b.keepGoing || ctx.Err() != nil {
			return err
		}
		b.logger.Error("build", "path", ErrorPath(err), "kind", ErrorKind(err), "error", err)
		b.failures = append(b.failures, err)
	}

	if err := b.copyStatic(st); err != nil {
		return &NodeError{Path: node, Op: "static", Err: err}
	}
	return nil
}
