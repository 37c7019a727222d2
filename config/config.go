package config

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBuildDir          = "build"
	DefaultTemplatesDir      = "templates"
	DefaultRemoveBuildPrefix = "."
)

// Config holds the build-wide settings resolved for one node. It is a plain
// value: copying it never shares state with the parent node.
type Config struct {
	Root              string
	BuildDir          string
	TemplatesDir      string
	RemoveBuildPrefix string
	DefaultTemplate   string
	Minify            bool
}

// Overrides lists the configuration keys a node declaration may set.
// Nil fields leave the inherited value untouched.
type Overrides struct {
	Root              *string `yaml:"root"`
	BuildDir          *string `yaml:"buildDir"`
	TemplatesDir      *string `yaml:"templatesDir"`
	RemoveBuildPrefix *string `yaml:"removeBuildPrefix"`
	DefaultTemplate   *string `yaml:"defaultTemplate"`
	Minify            *bool   `yaml:"minify"`
}

// Defaults returns the configuration of the entry node for the given root.
func Defaults(root string) (Config, error) {
	if strings.TrimSpace(root) == "" {
		return Config{}, fmt.Errorf("root not configured")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("resolve root: %w", err)
	}
	cfg := Config{
		Root:              abs,
		BuildDir:          DefaultBuildDir,
		TemplatesDir:      DefaultTemplatesDir,
		RemoveBuildPrefix: DefaultRemoveBuildPrefix,
	}
	cfg.normalize()
	return cfg, nil
}

// Apply returns a copy of c with the overrides laid on top. Root is never
// replaced below the entry node; callers decide how to report a declared root.
func (c Config) Apply(o Overrides) (Config, error) {
	next := c
	if o.BuildDir != nil {
		next.BuildDir = strings.TrimSpace(*o.BuildDir)
	}
	if o.TemplatesDir != nil {
		next.TemplatesDir = strings.TrimSpace(*o.TemplatesDir)
	}
	if o.RemoveBuildPrefix != nil {
		next.RemoveBuildPrefix = strings.TrimSpace(*o.RemoveBuildPrefix)
	}
	if o.DefaultTemplate != nil {
		next.DefaultTemplate = strings.TrimSpace(*o.DefaultTemplate)
	}
	if o.Minify != nil {
		next.Minify = *o.Minify
	}
	if err := next.validate(); err != nil {
		return Config{}, err
	}
	next.normalize()
	return next, nil
}

// Merge decodes raw declaration values and applies them to c.
func (c Config) Merge(raw map[string]any) (Config, error) {
	var o Overrides
	if err := Decode(raw, &o); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c.Apply(o)
}

func (c Config) validate() error {
	if !filepath.IsAbs(c.Root) {
		return fmt.Errorf("root %q is not absolute", c.Root)
	}
	if c.BuildDir == "" {
		return errors.New("buildDir must not be empty")
	}
	if c.TemplatesDir == "" {
		return errors.New("templatesDir must not be empty")
	}
	return nil
}

// normalize makes every directory absolute under Root. Running it on an
// already normalized config changes nothing.
func (c *Config) normalize() {
	c.Root = filepath.Clean(c.Root)
	c.BuildDir = c.abs(c.BuildDir)
	c.TemplatesDir = c.abs(c.TemplatesDir)
	if c.RemoveBuildPrefix == "" {
		c.RemoveBuildPrefix = DefaultRemoveBuildPrefix
	}
	c.RemoveBuildPrefix = filepath.Clean(c.RemoveBuildPrefix)
}

func (c *Config) abs(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(c.Root, dir)
}

// Decode converts a loosely typed declaration mapping into out. Keys that out
// does not declare are rejected.
func Decode(raw map[string]any, out any) error {
	if len(raw) == 0 {
		return nil
	}
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(payload))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}
