package asset

import (
	_ "embed"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var bundledManifest []byte

// Manifest lists bundled image files. Location overrides base+"/"+name for
// single files.
type Manifest struct {
	Base      string            `yaml:"base"`
	Files     []string          `yaml:"files"`
	Locations map[string]string `yaml:"locations,omitempty"`
}

type entry struct {
	key   string
	base  string
	ext   string
	value string
}

// Registry maps bundled file names to their served locations.
// It is immutable after construction.
type Registry struct {
	entries []entry
	byKey   map[string]string
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse asset manifest: %w", err)
	}
	return &m, nil
}

// NewRegistry builds a registry from a manifest. File names are matched
// case-insensitively.
func NewRegistry(m *Manifest) *Registry {
	r := &Registry{byKey: make(map[string]string, len(m.Files))}
	base := strings.TrimSuffix(m.Base, "/")
	for _, name := range m.Files {
		value, ok := m.Locations[name]
		if !ok {
			value = base + "/" + name
		}
		key := strings.ToLower(name)
		ext := path.Ext(key)
		e := entry{key: key, base: strings.TrimSuffix(key, ext), ext: ext, value: value}
		if _, dup := r.byKey[key]; dup {
			continue
		}
		r.entries = append(r.entries, e)
		r.byKey[key] = value
	}
	return r
}

// DefaultRegistry returns the registry of images shipped with the site.
func DefaultRegistry() *Registry {
	m, err := ParseManifest(bundledManifest)
	if err != nil {
		panic(err)
	}
	return NewRegistry(m)
}

// Lookup finds the location for a lowercase file name. Besides exact matches
// it accepts hashed variants of the form "<base>-<anything><ext>".
func (r *Registry) Lookup(fileName string) (string, bool) {
	if v, ok := r.byKey[fileName]; ok {
		return v, true
	}
	for _, e := range r.entries {
		if strings.HasPrefix(fileName, e.base+"-") && strings.HasSuffix(fileName, e.ext) {
			return e.value, true
		}
	}
	return "", false
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Names returns the registered file names in manifest order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.key
	}
	return names
}
