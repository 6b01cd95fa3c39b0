package model

import "time"

type EnquiryProduct struct {
	CategorySlug string `json:"categorySlug"`
	ProductSlug  string `json:"productSlug"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	Notes        string `json:"notes"`
}

type ContactDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Enquiry is a product enquiry submitted from the public site.
type Enquiry struct {
	Products       []EnquiryProduct `json:"products"`
	GeneralMessage string           `json:"generalMessage"`
	ContactDetails ContactDetails   `json:"contactDetails"`
	Timestamp      time.Time        `json:"timestamp"`
}
