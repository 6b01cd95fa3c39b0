package model

// SiteContent is the single remote content document. It is always written as a
// whole; there is no per-field versioning.
type SiteContent struct {
	CompanyInfo       CompanyInfo                       `json:"companyInfo"`
	NavItems          []NavItem                         `json:"navItems"`
	QuickLinks        []NavItem                         `json:"quickLinks"`
	HeroSlides        []HeroSlide                       `json:"heroSlides"`
	ProductCategories []ProductCategory                 `json:"productCategories"`
	ServiceOfferings  []ServiceOffering                 `json:"serviceOfferings"`
	IndustrySegments  []IndustrySegment                 `json:"industrySegments"`
	ResourceArticles  []ResourceArticle                 `json:"resourceArticles"`
	ContactChannels   []ContactChannel                  `json:"contactChannels"`
	WhyChooseUs       []WhyChooseItem                   `json:"whyChooseUs"`
	PageImages        map[string]string                 `json:"pageImages,omitempty"`
	PageCopy          map[string]map[string]interface{} `json:"pageCopy"`
}

// CompanyInfo holds the company profile shown in headers, footers and the contact page.
type CompanyInfo struct {
	Name          string       `json:"name"`
	Tagline       string       `json:"tagline"`
	Phone         string       `json:"phone"`
	WhatsApp      string       `json:"whatsapp"`
	Email         string       `json:"email"`
	Address       string       `json:"address"`
	Hours         string       `json:"hours"`
	RCNumber      string       `json:"rcNumber"`
	ExportLicense string       `json:"exportLicense"`
	MapURL        string       `json:"mapUrl"`
	SocialLinks   []SocialLink `json:"socialLinks"`
}

type SocialLink struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// NavItem is a navigation entry, optionally with children or a mega menu.
type NavItem struct {
	Label       string           `json:"label"`
	Path        string           `json:"path"`
	Description string           `json:"description,omitempty"`
	Children    []NavItem        `json:"children,omitempty"`
	IsExternal  bool             `json:"isExternal,omitempty"`
	MegaMenu    []MegaMenuColumn `json:"megaMenu,omitempty"`
}

type MegaMenuColumn struct {
	Title string         `json:"title"`
	Items []MegaMenuLink `json:"items"`
}

type MegaMenuLink struct {
	Label       string `json:"label"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

type HeroSlide struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	CTALabel string `json:"ctaLabel"`
	CTAHref  string `json:"ctaHref"`
	Image    string `json:"image"`
}

// ProductCategory groups products. Slug is unique within the document.
type ProductCategory struct {
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	Tagline    string    `json:"tagline"`
	Summary    string    `json:"summary"`
	HeroImage  string    `json:"heroImage"`
	Highlights []string  `json:"highlights"`
	Products   []Product `json:"products"`
}

// Product is a catalog entry. Slug is unique within its category.
type Product struct {
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	Summary        string   `json:"summary"`
	Description    string   `json:"description"`
	Image          string   `json:"image"`
	Images         []string `json:"images,omitempty"`
	Origins        []string `json:"origins"`
	Specifications []string `json:"specifications"`
	Packaging      []string `json:"packaging"`
	Logistics      []string `json:"logistics,omitempty"`
	Applications   []string `json:"applications,omitempty"`
}

// Gallery returns the gallery images, or the main image when no gallery is set.
func (p Product) Gallery() []string {
	if len(p.Images) > 0 {
		return p.Images
	}
	if p.Image == "" {
		return nil
	}
	return []string{p.Image}
}

type ServiceOffering struct {
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Summary string   `json:"summary"`
	Details []string `json:"details"`
}

type IndustrySegment struct {
	Slug          string   `json:"slug"`
	Name          string   `json:"name"`
	Summary       string   `json:"summary"`
	Opportunities []string `json:"opportunities"`
}

type ResourceArticle struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Category    string   `json:"category"`
	PublishedOn string   `json:"publishedOn"`
	Image       string   `json:"image"`
	Author      string   `json:"author"`
	ReadTime    string   `json:"readTime"`
	Tags        []string `json:"tags"`
	Content     string   `json:"content"`
}

type ContactChannel struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Href  string `json:"href"`
}

type WhyChooseItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}
