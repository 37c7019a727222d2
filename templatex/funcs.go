package templatex

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/Masterminds/sprig"

	"github.com/justic-ssg/justic/renderer"
)

func (e *Engine) funcs() template.FuncMap {
	funcs := sprig.FuncMap()
	funcs["safeHTML"] = func(v any) template.HTML {
		switch value := v.(type) {
		case template.HTML:
			return value
		case string:
			return template.HTML(value)
		default:
			return ""
		}
	}
	funcs["baseHref"] = func(base string) string {
		base = strings.TrimSpace(base)
		if base == "" || base == "/" {
			return "/"
		}
		trimmed := strings.Trim(base, "/")
		return "/" + trimmed + "/"
	}
	funcs["markdown"] = func(v any) (template.HTML, error) {
		var src string
		switch value := v.(type) {
		case nil:
			return "", nil
		case string:
			src = value
		case template.HTML:
			return value, nil
		default:
			src = fmt.Sprint(value)
		}
		res, err := e.markdown.Render([]byte(src))
		if err != nil {
			return "", err
		}
		return template.HTML(res.HTML), nil
	}
	funcs["slugify"] = renderer.Slugify
	return funcs
}
