package loader

import (
	"html/template"

	"github.com/justic-ssg/justic/renderer"
)

const (
	// BodyName receives the rendered markdown body of a page.
	BodyName = "BODY"
	// TOCName receives the page headings.
	TOCName = "TOC"
	// TextName receives the plain text of the page body.
	TextName = "TEXT"
)

// Markdown parses a markdown page. Its YAML front matter holds the bindings
// and the rendered body is exposed as BODY, with headings as TOC and plain
// text as TEXT, unless the front matter declares those names itself.
type Markdown struct {
	Renderer *renderer.Renderer
}

func (m Markdown) Parse(path string, src []byte) (map[string]any, error) {
	res, err := m.Renderer.Render(src)
	if err != nil {
		return nil, err
	}
	bindings := make(map[string]any, len(res.FrontMatter)+3)
	for name, value := range res.FrontMatter {
		bindings[name] = value
	}
	if _, ok := bindings[BodyName]; !ok {
		bindings[BodyName] = template.HTML(res.HTML)
	}
	if _, ok := bindings[TOCName]; !ok {
		bindings[TOCName] = res.Headings
	}
	if _, ok := bindings[TextName]; !ok {
		bindings[TextName] = res.PlainText
	}
	return bindings, nil
}
