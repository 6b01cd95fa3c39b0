package usecase

import (
	"fmt"
	"strings"

	"sitecontent/internal/content/document"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/docpath"
	"sitecontent/internal/shared/errors"
)

// DefaultGallerySlots is the number of gallery images a product can hold.
const DefaultGallerySlots = 10

// productListFields are product string lists whose blank entries are dropped
// on commit. Optional lists left empty are removed.
var productListFields = []struct {
	name     string
	optional bool
}{
	{"images", true},
	{"origins", false},
	{"specifications", false},
	{"packaging", false},
	{"logistics", true},
	{"applications", true},
}

// CleanCatalog drops blank entries from product lists and caps galleries at
// gallerySlots. doc is modified in place.
func CleanCatalog(doc model.Document, gallerySlots int) {
	cats, _ := doc["productCategories"].([]interface{})
	for _, c := range cats {
		cat, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		products, _ := cat["products"].([]interface{})
		for _, p := range products {
			product, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			for _, f := range productListFields {
				list, ok := product[f.name].([]interface{})
				if !ok {
					continue
				}
				clean := make([]interface{}, 0, len(list))
				for _, item := range list {
					if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
						clean = append(clean, s)
					}
				}
				if f.name == "images" && gallerySlots > 0 && len(clean) > gallerySlots {
					clean = clean[:gallerySlots]
				}
				if len(clean) == 0 && f.optional {
					delete(product, f.name)
					continue
				}
				product[f.name] = clean
			}
		}
	}
}

// gallerySlotIndex returns the index when path addresses a product gallery
// slot ("...products.N.images.K").
func gallerySlotIndex(path docpath.FieldPath) (int, bool) {
	if len(path) < 2 {
		return 0, false
	}
	last, parent := path.Last(), path[len(path)-2]
	if !last.IsIndex() || parent.Key != "images" {
		return 0, false
	}
	return last.Index, true
}

// NextFreeGallerySlot returns the first gallery index of the product at
// productPath that is empty in doc and not in taken. It fails when every
// slot is in use.
func NextFreeGallerySlot(doc model.Document, productPath string, slots int, taken map[string]bool) (int, error) {
	p, err := docpath.ParseFieldPath(productPath)
	if err != nil {
		return 0, err
	}
	v, _ := document.Get(doc, p)
	if _, isProduct := v.(map[string]interface{}); !isProduct {
		return 0, errors.NewNotFoundError("product " + productPath)
	}
	images, _ := document.Get(doc, append(p[:len(p):len(p)], docpath.FieldSegment{Key: "images"}))
	list, _ := images.([]interface{})
	for i := 0; i < slots; i++ {
		slot := fmt.Sprintf("%s.images.%d", p.String(), i)
		if taken[slot] {
			continue
		}
		if i >= len(list) {
			return i, nil
		}
		if s, ok := list[i].(string); !ok || strings.TrimSpace(s) == "" {
			return i, nil
		}
	}
	return 0, errors.NewConflictError("gallery is full").WithDetail("product", productPath).WithDetail("slots", slots)
}
