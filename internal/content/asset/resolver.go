package asset

import (
	"net/url"
	"regexp"
	"strings"
)

// ImagePattern matches values that name an image file.
var ImagePattern = regexp.MustCompile(`(?i)\.(?:png|jpe?g|webp|svg)$`)

var localPrefixes = []string{"/assets/", "assets/", "/src/assets/", "src/assets/"}

// Resolver maps stored asset references to servable locations.
type Resolver struct {
	registry   *Registry
	siteOrigin string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSiteOrigin treats absolute URLs on origin (scheme://host) as local.
func WithSiteOrigin(origin string) Option {
	return func(r *Resolver) {
		r.siteOrigin = originOf(origin)
	}
}

// NewResolver creates a resolver over registry.
func NewResolver(registry *Registry, opts ...Option) *Resolver {
	r := &Resolver{registry: registry}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the bundled location for ref when ref looks like a local
// asset known to the registry. Any other ref is returned unchanged.
func (r *Resolver) Resolve(ref string) string {
	if !r.isLocal(ref) {
		return ref
	}
	name := fileName(ref)
	if name == "" {
		return ref
	}
	if v, ok := r.registry.Lookup(name); ok {
		return v
	}
	return ref
}

// IsImageRef reports whether value ends in a recognised image extension.
func IsImageRef(value string) bool {
	return ImagePattern.MatchString(value)
}

func (r *Resolver) isLocal(ref string) bool {
	if !ImagePattern.MatchString(ref) {
		return false
	}
	for _, p := range localPrefixes {
		if strings.Contains(ref, p) {
			return true
		}
	}
	if strings.HasPrefix(ref, ".") {
		return true
	}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return true
	}
	return r.siteOrigin != "" && originOf(ref) == r.siteOrigin
}

func fileName(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	return strings.ToLower(ref)
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
