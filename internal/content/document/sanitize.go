package document

import "sitecontent/internal/content/domain/model"

// Sanitize returns a copy of doc with nil values removed at every depth,
// including nil elements of arrays. The backing stores reject empty values.
func Sanitize(doc model.Document) model.Document {
	if doc == nil {
		return model.Document{}
	}
	return sanitizeMap(doc)
}

func sanitizeValue(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		if t == nil {
			return nil, false
		}
		return sanitizeMap(t), true
	case []interface{}:
		if t == nil {
			return nil, false
		}
		out := make([]interface{}, 0, len(t))
		for _, item := range t {
			if clean, ok := sanitizeValue(item); ok {
				out = append(out, clean)
			}
		}
		return out, true
	case []string:
		if t == nil {
			return nil, false
		}
		return CloneValue(t), true
	case []map[string]interface{}:
		if t == nil {
			return nil, false
		}
		out := make([]interface{}, 0, len(t))
		for _, item := range t {
			if item != nil {
				out = append(out, sanitizeMap(item))
			}
		}
		return out, true
	default:
		return v, true
	}
}

func sanitizeMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if clean, ok := sanitizeValue(v); ok {
			out[k] = clean
		}
	}
	return out
}
