// Package normalize rewrites image references inside a content document
// through an asset resolver.
package normalize

import (
	"sitecontent/internal/content/asset"
	"sitecontent/internal/content/domain/model"
)

// Resolver maps an asset reference to a servable location.
type Resolver interface {
	Resolve(ref string) string
}

// Normalizer walks JSON-compatible values and resolves image references.
type Normalizer struct {
	resolver Resolver
}

func New(resolver Resolver) *Normalizer {
	return &Normalizer{resolver: resolver}
}

// Document returns a normalized copy of doc. The input is never modified.
func (n *Normalizer) Document(doc model.Document) model.Document {
	if doc == nil {
		return nil
	}
	return n.object(doc)
}

// Value returns a normalized copy of v. Maps with string keys and slices are
// traversed; image-like strings are resolved; every other value is returned
// as is.
func (n *Normalizer) Value(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		if asset.IsImageRef(t) {
			return n.resolver.Resolve(t)
		}
		return t
	case map[string]interface{}:
		return n.object(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = n.Value(item)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = n.Value(item).(string)
		}
		return out
	case []map[string]interface{}:
		out := make([]map[string]interface{}, len(t))
		for i, item := range t {
			out[i] = n.object(item)
		}
		return out
	default:
		return v
	}
}

func (n *Normalizer) object(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = n.Value(v)
	}
	return out
}
