package renderer

import "fmt"

// normalizeFrontMatter rewrites the yaml.v2 shaped values produced by
// goldmark-meta so nested mappings use string keys.
func normalizeFrontMatter(front map[string]interface{}) map[string]any {
	if len(front) == 0 {
		return nil
	}
	out := make(map[string]any, len(front))
	for key, value := range front {
		out[key] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeValue(item)
		}
		return out
	case []interface{}:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
