package loader

import (
	"github.com/justic-ssg/justic/renderer"
	"github.com/spf13/afero"
)

// NewDefault returns a registry understanding bare YAML declarations, .yaml,
// .yml, Go scripts and markdown pages, tried in that order inside
// directories.
func NewDefault(fs afero.Fs, md *renderer.Renderer) *Registry {
	if md == nil {
		md = renderer.New()
	}
	r := NewRegistry(fs)
	r.Register("", YAML{})
	r.Register(".yaml", YAML{})
	r.Register(".yml", YAML{})
	r.Register(".go", Script{})
	r.Register(".md", Markdown{Renderer: md})
	return r
}
