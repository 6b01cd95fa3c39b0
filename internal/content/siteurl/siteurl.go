// Package siteurl builds absolute site links for canonical tags and the
// sitemap.
package siteurl

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultSiteURL is used when neither SITE_URL nor a request origin is known.
const DefaultSiteURL = "https://globalxtltd.com"

var httpURL = regexp.MustCompile(`(?i)^https?://`)

// Resolver picks the site base URL.
type Resolver struct {
	configured string
}

// New returns a resolver for the configured SITE_URL. Values that are not
// http(s) URLs are ignored.
func New(configured string) *Resolver {
	configured = strings.TrimSpace(configured)
	if !httpURL.MatchString(configured) {
		configured = ""
	}
	return &Resolver{configured: strings.TrimSuffix(configured, "/")}
}

// Configured returns the validated SITE_URL, or "".
func (r *Resolver) Configured() string { return r.configured }

// Base returns SITE_URL when set, then origin when it is an http(s) origin,
// then DefaultSiteURL.
func (r *Resolver) Base(origin string) string {
	if r.configured != "" {
		return r.configured
	}
	if httpURL.MatchString(origin) {
		return strings.TrimSuffix(origin, "/")
	}
	return DefaultSiteURL
}

// CanonicalForPath resolves path against the base URL.
func (r *Resolver) CanonicalForPath(origin, path string) string {
	base := r.Base(origin)
	if path == "" {
		path = "/"
	}
	b, err := url.Parse(base + "/")
	if err == nil {
		if ref, err := url.Parse(path); err == nil {
			return b.ResolveReference(ref).String()
		}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

var (
	tags   = regexp.MustCompile(`<[^>]*>`)
	spaces = regexp.MustCompile(`\s+`)
)

// StripHTML reduces html to plain text for meta descriptions, cut at maxLen
// runes with an ellipsis.
func StripHTML(html string, maxLen int) string {
	text := strings.TrimSpace(spaces.ReplaceAllString(tags.ReplaceAllString(html, " "), " "))
	if maxLen <= 0 {
		maxLen = 300
	}
	r := []rune(text)
	if len(r) > maxLen {
		return string(r[:maxLen-1]) + "…"
	}
	return text
}
