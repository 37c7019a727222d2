package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAML parses a declaration written as a single YAML mapping:
//
//	__JUSTIC__:
//	  defaultTemplate: index.html
//	TITLE: Hello
type YAML struct{}

func (YAML) Parse(path string, src []byte) (map[string]any, error) {
	var bindings map[string]any
	if err := yaml.Unmarshal(src, &bindings); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return bindings, nil
}
