// Package defaults holds the static content bundled with the site. Readers
// fall back to it field by field, and the seed command writes it to an empty
// store.
package defaults

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"sitecontent/internal/content/document"
	"sitecontent/internal/content/domain/model"
)

//go:embed site.yaml
var bundled []byte

var (
	loadOnce   sync.Once
	rawDoc     model.Document
	typed      *model.SiteContent
	loadFailed error
)

func load() {
	loadOnce.Do(func() {
		doc, err := Parse(bundled)
		if err != nil {
			loadFailed = err
			return
		}
		content, err := document.Decode(doc)
		if err != nil {
			loadFailed = err
			return
		}
		rawDoc, typed = doc, content
	})
	if loadFailed != nil {
		panic(fmt.Sprintf("bundled site content is invalid: %v", loadFailed))
	}
}

// Parse decodes a YAML (or JSON) content document.
func Parse(data []byte) (model.Document, error) {
	var doc model.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse content document: %w", err)
	}
	if doc == nil {
		doc = model.Document{}
	}
	return doc, nil
}

// Document returns a fresh copy of the bundled content document.
func Document() model.Document {
	load()
	return document.Clone(rawDoc)
}

// Content returns the bundled content. The value is shared and must not be
// modified.
func Content() *model.SiteContent {
	load()
	return typed
}

// CloudinaryMap maps bundled file names to hosted URLs. Keys are matched
// case-insensitively against the last path segment of an image reference.
type CloudinaryMap map[string]string

// LoadCloudinaryMap reads a file-name to URL map from a YAML or JSON file.
func LoadCloudinaryMap(path string) (CloudinaryMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse cloudinary map %s: %w", path, err)
	}
	out := make(CloudinaryMap, len(raw))
	for k, v := range raw {
		out[strings.ToLower(k)] = v
	}
	return out, nil
}

func (m CloudinaryMap) lookup(src string) string {
	if len(m) == 0 || src == "" {
		return src
	}
	name := src
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		name = u.Path
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if v, ok := m[strings.ToLower(name)]; ok && v != "" {
		return v
	}
	return src
}

// SeedPayload builds the document written when the store is empty: the
// bundled content with image fields rewritten through cloudMap, sanitized.
func SeedPayload(cloudMap CloudinaryMap) model.Document {
	doc := Document()

	eachMap(doc["heroSlides"], func(slide map[string]interface{}) {
		remap(slide, "image", cloudMap)
	})
	eachMap(doc["productCategories"], func(cat map[string]interface{}) {
		remap(cat, "heroImage", cloudMap)
		eachMap(cat["products"], func(p map[string]interface{}) {
			remap(p, "image", cloudMap)
			if imgs, ok := p["images"].([]interface{}); ok {
				for i, img := range imgs {
					if s, ok := img.(string); ok {
						imgs[i] = cloudMap.lookup(s)
					}
				}
			}
		})
	})
	eachMap(doc["resourceArticles"], func(a map[string]interface{}) {
		remap(a, "image", cloudMap)
	})
	if pi, ok := doc["pageImages"].(map[string]interface{}); ok {
		remap(pi, "defaultHero", cloudMap)
	}

	return document.Sanitize(doc)
}

func eachMap(v interface{}, fn func(map[string]interface{})) {
	items, ok := v.([]interface{})
	if !ok {
		return
	}
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			fn(m)
		}
	}
}

func remap(m map[string]interface{}, key string, cloudMap CloudinaryMap) {
	if s, ok := m[key].(string); ok {
		m[key] = cloudMap.lookup(s)
	}
}
