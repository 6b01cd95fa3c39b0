package siteurl

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitecontent/internal/content/domain/model"
)

func TestResolver_Base(t *testing.T) {
	tests := []struct {
		name, configured, origin, want string
	}{
		{"configured wins", "https://example.com/", "http://localhost:3000", "https://example.com"},
		{"case insensitive scheme", "HTTP://Example.com", "", "HTTP://Example.com"},
		{"invalid configured falls back to origin", "example.com", "http://localhost:3000", "http://localhost:3000"},
		{"default", "", "", DefaultSiteURL},
		{"non http origin ignored", "", "file://x", DefaultSiteURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.configured).Base(tt.origin))
		})
	}
}

func TestResolver_CanonicalForPath(t *testing.T) {
	r := New("https://globalxtltd.com/")
	assert.Equal(t, "https://globalxtltd.com/", r.CanonicalForPath("", ""))
	assert.Equal(t, "https://globalxtltd.com/products/grains", r.CanonicalForPath("", "/products/grains"))
	assert.Equal(t, "https://globalxtltd.com/about", r.CanonicalForPath("", "about"))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello world", StripHTML("<p>Hello   <b>world</b></p>", 0))
	assert.Equal(t, "abcd…", StripHTML("abcdefgh", 5))
	assert.Equal(t, "", StripHTML("", 10))
}

func TestSitemap(t *testing.T) {
	content := &model.SiteContent{
		ProductCategories: []model.ProductCategory{{
			Slug:     "grains",
			Products: []model.Product{{Slug: "sesame"}},
		}},
		ResourceArticles: []model.ResourceArticle{{Slug: "export-guide"}},
	}
	out, err := New("").Sitemap("", content, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	xml := string(out)

	assert.True(t, strings.HasPrefix(xml, "<?xml"))
	assert.Contains(t, xml, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, xml, "<loc>https://globalxtltd.com/products/grains/sesame</loc>")
	assert.Contains(t, xml, "<loc>https://globalxtltd.com/resources/export-guide</loc>")
	assert.Contains(t, xml, "<lastmod>2024-06-01</lastmod>")
	assert.Equal(t, 13, strings.Count(xml, "<url>"))
}
