// Package docpath parses document paths ("content/site") and field paths
// ("productCategories.0.products.1.image").
package docpath

import (
	"regexp"
	"strings"

	"sitecontent/internal/shared/errors"
)

// Location is a parsed document path: a collection and a document ID,
// optionally nested under parent documents.
type Location struct {
	Path       string
	Collection string
	DocumentID string
	ParentPath string
	Segments   []string
}

var validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ParseDocumentPath validates path and splits it into its location parts.
func ParseDocumentPath(path string) (*Location, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	segments := Segments(path)
	n := len(segments)
	return &Location{
		Path:       BuildPath(segments...),
		Collection: segments[n-2],
		DocumentID: segments[n-1],
		ParentPath: BuildPath(segments[:n-2]...),
		Segments:   segments,
	}, nil
}

// Segments splits a slash separated path, dropping empty segments.
func Segments(path string) []string {
	if path == "" {
		return []string{}
	}
	var result []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			result = append(result, segment)
		}
	}
	return result
}

// BuildPath joins segments with slashes.
func BuildPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// IsValidID reports whether id can be used as a path segment.
func IsValidID(id string) bool {
	if id == "" || len(id) > 1500 {
		return false
	}
	return validIDPattern.MatchString(id)
}

// IsDocumentPath reports whether path names a document (even segment count).
func IsDocumentPath(path string) bool {
	segments := Segments(path)
	return len(segments) > 0 && len(segments)%2 == 0
}

// ValidateDocumentPath validates a document path
func ValidateDocumentPath(path string) error {
	segments := Segments(path)
	if len(segments) == 0 {
		return errors.NewValidationError("document path cannot be empty").WithCause(errors.ErrInvalidPath)
	}

	if len(segments)%2 != 0 {
		return errors.NewValidationError("invalid document path: must have even number of segments").
			WithCause(errors.ErrInvalidPath).
			WithDetail("provided_path", path)
	}

	for i, segment := range segments {
		if !IsValidID(segment) {
			return errors.NewValidationError("invalid segment in document path").
				WithCause(errors.ErrInvalidPath).
				WithDetail("segment", segment).
				WithDetail("position", i)
		}
	}

	return nil
}

// Key flattens a document path into a single storage key using sep.
func Key(path, sep string) string {
	return strings.Join(Segments(path), sep)
}
