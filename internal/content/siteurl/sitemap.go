package siteurl

import (
	"encoding/xml"
	"time"

	"sitecontent/internal/content/domain/model"
)

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

var staticPages = []string{"/", "/about", "/products", "/consulting", "/industries", "/resources", "/contact", "/privacy", "/terms", "/sitemap"}

// Sitemap renders sitemap.xml for the static pages and every category,
// product, service, industry and article in content.
func (r *Resolver) Sitemap(origin string, content *model.SiteContent, now time.Time) ([]byte, error) {
	day := now.UTC().Format("2006-01-02")
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	add := func(path, freq, priority string) {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        r.CanonicalForPath(origin, path),
			LastMod:    day,
			ChangeFreq: freq,
			Priority:   priority,
		})
	}

	for _, p := range staticPages {
		if p == "/privacy" || p == "/terms" {
			add(p, "yearly", "0.2")
			continue
		}
		add(p, "weekly", "0.7")
	}
	if content != nil {
		for _, c := range content.ProductCategories {
			add("/products/"+c.Slug, "weekly", "0.8")
			for _, p := range c.Products {
				add("/products/"+c.Slug+"/"+p.Slug, "weekly", "0.8")
			}
		}
		for _, s := range content.ServiceOfferings {
			add("/consulting/"+s.Slug, "monthly", "0.6")
		}
		for _, i := range content.IndustrySegments {
			add("/industries/"+i.Slug, "monthly", "0.6")
		}
		for _, a := range content.ResourceArticles {
			add("/resources/"+a.Slug, "monthly", "0.5")
		}
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
