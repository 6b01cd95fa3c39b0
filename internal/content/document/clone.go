// Package document holds helpers over raw JSON-shaped content documents.
package document

import "sitecontent/internal/content/domain/model"

// Clone returns a deep copy of doc. Nested maps become map[string]interface{}
// and every slice becomes []interface{}, so the copy shares nothing with the
// input and can be edited with Set.
func Clone(doc model.Document) model.Document {
	if doc == nil {
		return nil
	}
	return cloneMap(doc)
}

// CloneValue deep copies a JSON-shaped value.
func CloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneMap(item)
		}
		return out
	default:
		return v
	}
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = CloneValue(v)
	}
	return out
}
