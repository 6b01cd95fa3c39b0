package document

import (
	"fmt"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/docpath"
	"sitecontent/internal/shared/errors"
)

// Get returns the value at a field path, or false when any step is missing.
func Get(doc model.Document, path docpath.FieldPath) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(doc)
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]interface{}:
			if seg.IsIndex() {
				return nil, false
			}
			next, ok := node[seg.Key]
			if !ok {
				return nil, false
			}
			cur = next
		case []interface{}:
			if !seg.IsIndex() || seg.Index >= len(node) {
				return nil, false
			}
			cur = node[seg.Index]
		default:
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the string at a dotted field path.
func GetString(doc model.Document, path string) string {
	p, err := docpath.ParseFieldPath(path)
	if err != nil {
		return ""
	}
	v, _ := Get(doc, p)
	s, _ := v.(string)
	return s
}

// Set writes value at path in doc, creating intermediate maps and arrays.
// Arrays grow to fit the index; new gaps are filled with nil and dropped by
// Sanitize. doc must be an owned copy.
func Set(doc model.Document, path docpath.FieldPath, value interface{}) error {
	if doc == nil {
		return errors.NewValidationError("cannot edit a nil document").WithCause(errors.ErrInvalidPath)
	}
	if len(path) == 0 {
		return errors.NewValidationError("field path cannot be empty").WithCause(errors.ErrInvalidPath)
	}
	_, err := setIn(map[string]interface{}(doc), path, CloneValue(value), path)
	return err
}

// SetPath parses a dotted path and calls Set.
func SetPath(doc model.Document, path string, value interface{}) error {
	p, err := docpath.ParseFieldPath(path)
	if err != nil {
		return err
	}
	return Set(doc, p, value)
}

func setIn(node interface{}, rest docpath.FieldPath, value interface{}, full docpath.FieldPath) (interface{}, error) {
	seg := rest[0]
	switch n := node.(type) {
	case map[string]interface{}:
		if seg.IsIndex() {
			return nil, mismatch(full, seg, "object")
		}
		if len(rest) == 1 {
			n[seg.Key] = value
			return n, nil
		}
		child, err := setIn(containerFor(n[seg.Key], rest[1]), rest[1:], value, full)
		if err != nil {
			return nil, err
		}
		n[seg.Key] = child
		return n, nil
	case []interface{}:
		if !seg.IsIndex() {
			return nil, mismatch(full, seg, "array")
		}
		for len(n) <= seg.Index {
			n = append(n, nil)
		}
		if len(rest) == 1 {
			n[seg.Index] = value
			return n, nil
		}
		child, err := setIn(containerFor(n[seg.Index], rest[1]), rest[1:], value, full)
		if err != nil {
			return nil, err
		}
		n[seg.Index] = child
		return n, nil
	default:
		return nil, mismatch(full, seg, fmt.Sprintf("%T", node))
	}
}

// containerFor returns existing unless it is nil, in which case it makes a
// container suited to the next segment.
func containerFor(existing interface{}, next docpath.FieldSegment) interface{} {
	if existing != nil {
		return existing
	}
	if next.IsIndex() {
		return []interface{}{}
	}
	return map[string]interface{}{}
}

func mismatch(full docpath.FieldPath, seg docpath.FieldSegment, found string) error {
	return errors.NewValidationError(fmt.Sprintf("cannot address %q inside %s", seg.String(), found)).
		WithCause(errors.ErrInvalidPath).
		WithDetail("field_path", full.String())
}
