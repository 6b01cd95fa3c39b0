package usecase

import (
	"sitecontent/internal/content/document"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/normalize"
)

// SiteReader answers per-field content reads. Each accessor returns the live
// value when the current snapshot carries the field and the bundled default
// otherwise. Fallback is decided per field, never by merging documents.
type SiteReader struct {
	source   SnapshotSource
	defaults *model.SiteContent
}

// NewSiteReader creates a reader over source with the given defaults.
func NewSiteReader(source SnapshotSource, defaults *model.SiteContent) *SiteReader {
	if defaults == nil {
		defaults = &model.SiteContent{}
	}
	return &SiteReader{source: source, defaults: defaults}
}

// NormalizedDefaults resolves image references in the bundled defaults the
// same way live content is resolved.
func NormalizedDefaults(raw model.Document, n *normalize.Normalizer) (*model.SiteContent, error) {
	return document.Decode(n.Document(raw))
}

// Status is the loading and error state shown alongside content.
type Status struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

func (r *SiteReader) Status() Status {
	s := r.source.Snapshot()
	return Status{Loading: s.Loading, Error: s.Error}
}

// live returns the current content and whether it carries key.
func (r *SiteReader) live(key string) (*model.SiteContent, bool) {
	s := r.source.Snapshot()
	if s.Content == nil {
		return nil, false
	}
	v, ok := s.Document[key]
	return s.Content, ok && v != nil
}

func (r *SiteReader) CompanyInfo() model.CompanyInfo {
	if c, ok := r.live("companyInfo"); ok {
		return c.CompanyInfo
	}
	return r.defaults.CompanyInfo
}

func (r *SiteReader) NavItems() []model.NavItem {
	if c, ok := r.live("navItems"); ok {
		return c.NavItems
	}
	return r.defaults.NavItems
}

func (r *SiteReader) QuickLinks() []model.NavItem {
	if c, ok := r.live("quickLinks"); ok {
		return c.QuickLinks
	}
	return r.defaults.QuickLinks
}

func (r *SiteReader) HeroSlides() []model.HeroSlide {
	if c, ok := r.live("heroSlides"); ok {
		return c.HeroSlides
	}
	return r.defaults.HeroSlides
}

func (r *SiteReader) ProductCategories() []model.ProductCategory {
	if c, ok := r.live("productCategories"); ok {
		return c.ProductCategories
	}
	return r.defaults.ProductCategories
}

// Category finds a product category by slug.
func (r *SiteReader) Category(slug string) (model.ProductCategory, bool) {
	for _, cat := range r.ProductCategories() {
		if cat.Slug == slug {
			return cat, true
		}
	}
	return model.ProductCategory{}, false
}

// Product finds a product by category and product slug.
func (r *SiteReader) Product(categorySlug, productSlug string) (model.Product, bool) {
	cat, ok := r.Category(categorySlug)
	if !ok {
		return model.Product{}, false
	}
	for _, p := range cat.Products {
		if p.Slug == productSlug {
			return p, true
		}
	}
	return model.Product{}, false
}

func (r *SiteReader) ServiceOfferings() []model.ServiceOffering {
	if c, ok := r.live("serviceOfferings"); ok {
		return c.ServiceOfferings
	}
	return r.defaults.ServiceOfferings
}

func (r *SiteReader) IndustrySegments() []model.IndustrySegment {
	if c, ok := r.live("industrySegments"); ok {
		return c.IndustrySegments
	}
	return r.defaults.IndustrySegments
}

func (r *SiteReader) ResourceArticles() []model.ResourceArticle {
	if c, ok := r.live("resourceArticles"); ok {
		return c.ResourceArticles
	}
	return r.defaults.ResourceArticles
}

func (r *SiteReader) ContactChannels() []model.ContactChannel {
	if c, ok := r.live("contactChannels"); ok {
		return c.ContactChannels
	}
	return r.defaults.ContactChannels
}

func (r *SiteReader) WhyChooseUs() []model.WhyChooseItem {
	if c, ok := r.live("whyChooseUs"); ok {
		return c.WhyChooseUs
	}
	return r.defaults.WhyChooseUs
}

// PageImage returns a named page image, falling back per key.
func (r *SiteReader) PageImage(key string) string {
	if c, ok := r.live("pageImages"); ok {
		if v, found := c.PageImages[key]; found && v != "" {
			return v
		}
	}
	return r.defaults.PageImages[key]
}

// PageCopy returns the copy block for page. A page missing from the live
// document falls back to the bundled block for that page.
func (r *SiteReader) PageCopy(page string) map[string]interface{} {
	if c, ok := r.live("pageCopy"); ok {
		if v, found := c.PageCopy[page]; found && v != nil {
			return v
		}
	}
	return r.defaults.PageCopy[page]
}

type fixedSource model.Snapshot

func (f fixedSource) Snapshot() model.Snapshot { return model.Snapshot(f) }

// Pinned returns a reader bound to the current snapshot, so a series of reads
// sees one consistent document.
func (r *SiteReader) Pinned() *SiteReader {
	return &SiteReader{source: fixedSource(r.source.Snapshot()), defaults: r.defaults}
}

// Resolved assembles a full content record by applying the per-field
// fallback to every top-level field of one snapshot.
func (r *SiteReader) Resolved() *model.SiteContent {
	if _, pinned := r.source.(fixedSource); !pinned {
		return r.Pinned().Resolved()
	}
	pageImages := map[string]string{}
	for k, v := range r.defaults.PageImages {
		pageImages[k] = v
	}
	if c, ok := r.live("pageImages"); ok {
		for k, v := range c.PageImages {
			if v != "" {
				pageImages[k] = v
			}
		}
	}

	pageCopy := map[string]map[string]interface{}{}
	for page := range r.defaults.PageCopy {
		pageCopy[page] = r.PageCopy(page)
	}
	if c, ok := r.live("pageCopy"); ok {
		for page, v := range c.PageCopy {
			if v != nil {
				pageCopy[page] = v
			}
		}
	}

	return &model.SiteContent{
		CompanyInfo:       r.CompanyInfo(),
		NavItems:          r.NavItems(),
		QuickLinks:        r.QuickLinks(),
		HeroSlides:        r.HeroSlides(),
		ProductCategories: r.ProductCategories(),
		ServiceOfferings:  r.ServiceOfferings(),
		IndustrySegments:  r.IndustrySegments(),
		ResourceArticles:  r.ResourceArticles(),
		ContactChannels:   r.ContactChannels(),
		WhyChooseUs:       r.WhyChooseUs(),
		PageImages:        pageImages,
		PageCopy:          pageCopy,
	}
}
