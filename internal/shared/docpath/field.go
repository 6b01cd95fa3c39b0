package docpath

import (
	"strconv"
	"strings"

	"sitecontent/internal/shared/errors"
)

// MaxIndex bounds array indices accepted in field paths.
const MaxIndex = 1000

// FieldSegment is one step of a field path: a map key or an array index.
type FieldSegment struct {
	Key   string
	Index int
}

// IsIndex reports whether the segment addresses an array element.
func (s FieldSegment) IsIndex() bool {
	return s.Key == ""
}

func (s FieldSegment) String() string {
	if s.IsIndex() {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// FieldPath is a parsed dot path.
type FieldPath []FieldSegment

func (p FieldPath) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Parent returns the path without its last segment.
func (p FieldPath) Parent() FieldPath {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final segment.
func (p FieldPath) Last() FieldSegment {
	return p[len(p)-1]
}

// ParseFieldPath parses "a.b.0.c". Segments made only of digits are array
// indices; the first segment must be a key.
func ParseFieldPath(path string) (FieldPath, error) {
	if strings.TrimSpace(path) == "" {
		return nil, invalidField(path, "field path cannot be empty")
	}
	parts := strings.Split(path, ".")
	out := make(FieldPath, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return nil, invalidField(path, "field path has an empty segment")
		}
		if isDigits(part) {
			if i == 0 {
				return nil, invalidField(path, "field path must start with a key")
			}
			n, err := strconv.Atoi(part)
			if err != nil || n >= MaxIndex {
				return nil, invalidField(path, "array index out of range")
			}
			out = append(out, FieldSegment{Index: n})
			continue
		}
		out = append(out, FieldSegment{Key: part})
	}
	return out, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func invalidField(path, msg string) error {
	return errors.NewValidationError(msg).
		WithCause(errors.ErrInvalidPath).
		WithDetail("field_path", path)
}
