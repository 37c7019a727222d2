package site

import (
	"errors"
	"fmt"

	"github.com/justic-ssg/justic/loader"
	"github.com/justic-ssg/justic/templatex"
)

var (
	// ErrPathOutsideRoot signals a node that does not live under
	// root/removeBuildPrefix, so no output path can be derived for it.
	ErrPathOutsideRoot = errors.New("path outside build root")
	// ErrStaticSourceMissing is returned when a declared static directory
	// does not exist.
	ErrStaticSourceMissing = errors.New("static source missing")
	// ErrCyclicTarget reports a target that points back at the node itself
	// or one of its ancestors.
	ErrCyclicTarget = errors.New("cyclic target")
	// ErrTargetNotFound reports a target path that does not exist.
	ErrTargetNotFound = errors.New("target not found")
	// ErrNoEntry is returned when the root has neither a justiconf
	// declaration nor a content directory.
	ErrNoEntry = errors.New("no entry node")
)

// NodeError attaches the failing node and build step to an error.
type NodeError struct {
	Path string
	Op   string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// ErrorPath returns the node path carried by err, if any.
func ErrorPath(err error) string {
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return nodeErr.Path
	}
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Path
	}
	return ""
}

// ErrorKind names the class of a build failure for reporting.
func ErrorKind(err error) string {
	var loadErr *loader.LoadError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCyclicTarget):
		return "cyclic-target"
	case errors.Is(err, ErrPathOutsideRoot):
		return "path-outside-root"
	case errors.Is(err, ErrStaticSourceMissing):
		return "static-source-missing"
	case errors.Is(err, ErrTargetNotFound):
		return "target-not-found"
	case errors.Is(err, templatex.ErrTemplateNotFound):
		return "template-not-found"
	case errors.Is(err, templatex.ErrTemplateRender):
		return "template-render"
	case errors.As(err, &loadErr):
		return "load"
	case errors.Is(err, ErrNoEntry):
		return "no-entry"
	default:
		return "io"
	}
}
