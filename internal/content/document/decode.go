package document

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"sitecontent/internal/content/domain/model"
)

// Decode converts a raw document into typed content. Unknown fields are
// ignored and missing fields keep their zero values.
func Decode(doc model.Document) (*model.SiteContent, error) {
	var out model.SiteContent
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(map[string]interface{}(doc)); err != nil {
		return nil, fmt.Errorf("decode content document: %w", err)
	}
	return &out, nil
}

// Encode converts typed content into a raw document.
func Encode(content *model.SiteContent) (model.Document, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
