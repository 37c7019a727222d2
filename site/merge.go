package site

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/justic-ssg/justic/config"
	"github.com/justic-ssg/justic/loader"
)

// Meta holds the rendering directives of one node. It is never inherited.
type Meta struct {
	Current  string
	Render   bool
	Template string
	Build    string
	Targets  []string
	Target   string
	Static   string
}

// Inherited is the state a parent hands down to its targets.
type Inherited struct {
	Config  config.Config
	Content map[string]any
}

// State is the fully resolved state of one node.
type State struct {
	Config  config.Config
	Content map[string]any
	Meta    Meta
	IsFile  bool
}

// Inherited returns the part of s passed on to child nodes.
func (s State) Inherited() Inherited {
	return Inherited{Config: s.Config, Content: s.Content}
}

type metaDecl struct {
	Current  any      `yaml:"current"`
	Render   *bool    `yaml:"render"`
	Template *string  `yaml:"template"`
	Build    any      `yaml:"build"`
	Targets  []string `yaml:"targets"`
	Target   *string  `yaml:"target"`
	Static   *string  `yaml:"static"`
}

// Merge combines the inherited state with a node declaration. The parent's
// config and content are copied, never modified, and the node's meta is
// computed from the merged config.
func Merge(parent Inherited, decl loader.Declaration, current string, isFile bool) (State, error) {
	cfg, err := parent.Config.Merge(decl.Config)
	if err != nil {
		return State{}, err
	}

	content := make(map[string]any, len(parent.Content)+len(decl.Content))
	maps.Copy(content, parent.Content)
	maps.Copy(content, decl.Content)

	meta, err := computeMeta(cfg, decl.Meta, current, isFile)
	if err != nil {
		return State{}, err
	}
	return State{Config: cfg, Content: content, Meta: meta, IsFile: isFile}, nil
}

func computeMeta(cfg config.Config, raw map[string]any, current string, isFile bool) (Meta, error) {
	var decl metaDecl
	if err := config.Decode(raw, &decl); err != nil {
		return Meta{}, fmt.Errorf("meta: %w", err)
	}

	meta := Meta{
		Current:  current,
		Render:   isFile,
		Template: cfg.DefaultTemplate,
		Targets:  decl.Targets,
	}
	if decl.Render != nil {
		meta.Render = *decl.Render && isFile
	}
	if decl.Template != nil && strings.TrimSpace(*decl.Template) != "" {
		meta.Template = strings.TrimSpace(*decl.Template)
	}
	if decl.Target != nil {
		meta.Target = *decl.Target
	}
	if decl.Static != nil {
		meta.Static = *decl.Static
	}

	if declared, ok := decl.Build.(string); ok {
		meta.Build = ResolveDeclaredBuild(cfg.BuildDir, declared)
		return meta, nil
	}
	// A directory at the build prefix, such as the content entry, maps onto
	// buildDir itself. Directories never render.
	if !isFile && filepath.Clean(current) == BuildBase(cfg.Root, cfg.RemoveBuildPrefix) {
		meta.Build = cfg.BuildDir
		return meta, nil
	}
	build, err := DeriveBuildPath(cfg.Root, cfg.BuildDir, cfg.RemoveBuildPrefix, current)
	if err != nil {
		return Meta{}, err
	}
	meta.Build = build
	return meta, nil
}
