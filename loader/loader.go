// Package loader reads node declarations. A declaration carries three
// mappings: build configuration, page content and rendering meta.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/afero"
)

const (
	// ConfigName is the top-level binding holding configuration overrides.
	ConfigName = "__JUSTIC__"
	// MetaName is the top-level binding holding rendering meta.
	MetaName = "__META__"
	// InitName is the declaration file looked up inside a directory node.
	InitName = "__init__"
	// ReservedPrefix marks names that are never content nor targets.
	ReservedPrefix = "__"
)

// Declaration is the node-local state loaded from one declaration source.
// A zero Declaration means the node declares nothing.
type Declaration struct {
	Config  map[string]any
	Content map[string]any
	Meta    map[string]any
}

// Loader resolves the declaration of a node path.
type Loader interface {
	// Load returns the declaration for a file or directory node. A directory
	// without a declaration file yields an empty Declaration and no error.
	Load(path string) (Declaration, error)
	// Suffixes lists the file suffixes Load understands, "" included.
	Suffixes() []string
}

// Format parses the raw bytes of one declaration file into top-level
// bindings.
type Format interface {
	Parse(path string, src []byte) (map[string]any, error)
}

// LoadError reports a declaration that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrUnsupportedSuffix is returned for files no registered format handles.
var ErrUnsupportedSuffix = errors.New("unsupported declaration suffix")

// Registry dispatches declaration files to formats by suffix.
type Registry struct {
	fs      afero.Fs
	order   []string
	formats map[string]Format
}

// NewRegistry returns an empty registry reading from fs.
func NewRegistry(fs afero.Fs) *Registry {
	return &Registry{fs: fs, formats: make(map[string]Format)}
}

// Register binds suffix (including the dot, or "" for bare names) to f.
// Directory lookups try suffixes in registration order.
func (r *Registry) Register(suffix string, f Format) {
	if _, ok := r.formats[suffix]; !ok {
		r.order = append(r.order, suffix)
	}
	r.formats[suffix] = f
}

// Suffixes implements Loader.
func (r *Registry) Suffixes() []string {
	return append([]string(nil), r.order...)
}

// Load implements Loader.
func (r *Registry) Load(path string) (Declaration, error) {
	info, err := r.fs.Stat(path)
	if err != nil {
		return Declaration{}, &LoadError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return r.loadFile(path)
	}
	file, ok, err := r.Find(path, InitName)
	if err != nil {
		return Declaration{}, &LoadError{Path: path, Err: err}
	}
	if !ok {
		return Declaration{}, nil
	}
	return r.loadFile(file)
}

// Find looks for a regular file dir/name<suffix> for each registered suffix.
func (r *Registry) Find(dir, name string) (string, bool, error) {
	for _, suffix := range r.order {
		candidate := filepath.Join(dir, name+suffix)
		info, err := r.fs.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", false, err
		}
		if info.Mode().IsRegular() {
			return candidate, true, nil
		}
	}
	return "", false, nil
}

func (r *Registry) loadFile(path string) (Declaration, error) {
	suffix := Suffix(filepath.Base(path))
	format, ok := r.formats[suffix]
	if !ok {
		return Declaration{}, &LoadError{Path: path, Err: fmt.Errorf("%w %q", ErrUnsupportedSuffix, suffix)}
	}
	src, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return Declaration{}, &LoadError{Path: path, Err: err}
	}
	bindings, err := format.Parse(path, src)
	if err != nil {
		return Declaration{}, &LoadError{Path: path, Err: err}
	}
	decl, err := Split(bindings)
	if err != nil {
		return Declaration{}, &LoadError{Path: path, Err: err}
	}
	return decl, nil
}

// Split sorts top-level bindings into a Declaration. The reserved names
// supply config and meta; every other upper case name not starting with the
// reserved prefix becomes content.
func Split(bindings map[string]any) (Declaration, error) {
	var decl Declaration
	for name, value := range bindings {
		switch {
		case name == ConfigName:
			m, err := mapping(name, value)
			if err != nil {
				return Declaration{}, err
			}
			decl.Config = m
		case name == MetaName:
			m, err := mapping(name, value)
			if err != nil {
				return Declaration{}, err
			}
			decl.Meta = m
		case strings.HasPrefix(name, ReservedPrefix):
		case IsUpper(name):
			if decl.Content == nil {
				decl.Content = make(map[string]any)
			}
			decl.Content[name] = value
		}
	}
	return decl, nil
}

func mapping(name string, value any) (map[string]any, error) {
	if value == nil {
		return nil, nil
	}
	m, ok := toStringMap(value)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping, got %T", name, value)
	}
	return m, nil
}

// IsUpper reports whether name has at least one cased letter and no lower
// case ones, so "TITLE" and "NAV_2" qualify while "Title" and "_2" do not.
func IsUpper(name string) bool {
	cased := false
	for _, r := range name {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// Suffix returns the final ".ext" of a base name. Names whose only dot is the
// leading one, and names ending in a dot, have no suffix.
func Suffix(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return name[i:]
}
