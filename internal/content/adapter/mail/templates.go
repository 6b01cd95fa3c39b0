package mail

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
	"unicode"
)

var funcs = map[string]interface{}{
	"inc":      func(i int) int { return i + 1 },
	"category": categoryTitle,
	"lines":    func(s string) []string { return strings.Split(s, "\n") },
	"plural":   plural,
	"lagos":    func(t time.Time) string { return t.In(lagos).Format("Monday, 2 January 2006 at 15:04") },
}

var htmlBody = htmltemplate.Must(htmltemplate.New("enquiry.html").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>New Enquiry - {{.Company}}</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
.header { background: #1D741B; color: white; padding: 20px; border-radius: 8px; }
.section-title { font-size: 18px; font-weight: bold; color: #1D741B; border-bottom: 2px solid #8FA01F; }
.product { background: #f9f9f9; border-left: 4px solid #8FA01F; padding: 16px; margin-bottom: 16px; }
.notes-box { background: #fff; border: 1px solid #ddd; padding: 12px; margin-top: 8px; }
.general-message { background: #fff7e6; border-left: 4px solid #DED93E; padding: 16px; }
.footer { color: #666; font-size: 12px; margin-top: 32px; border-top: 1px solid #ddd; }
</style>
</head>
<body>
<div class="header"><h1>New Product Enquiry</h1><p>A customer has submitted an enquiry through your website</p></div>
<div class="section">
<div class="section-title">Customer Contact Information</div>
<div><strong>Name:</strong> {{.Enquiry.ContactDetails.Name}}</div>
<div><strong>Email:</strong> <a href="mailto:{{.Enquiry.ContactDetails.Email}}">{{.Enquiry.ContactDetails.Email}}</a></div>
{{- with .Enquiry.ContactDetails.Phone}}
<div><strong>Phone:</strong> <a href="tel:{{.}}">{{.}}</a></div>
{{- end}}
</div>
<div class="section">
<div class="section-title">Products Enquired About ({{plural (len .Enquiry.Products) "item"}})</div>
{{- range $i, $p := .Enquiry.Products}}
<div class="product">
<div class="product-name">{{inc $i}}. {{$p.Name}}</div>
<div><strong>Category:</strong> {{category $p.CategorySlug}}</div>
<div><strong>Product SKU:</strong> {{$p.ProductSlug}}</div>
<div><strong>Product Link:</strong> <a href="{{$.SiteURL}}/products/{{$p.CategorySlug}}/{{$p.ProductSlug}}">View Product</a></div>
{{- if $p.Notes}}
<div class="notes-box"><strong>Customer Notes:</strong><br>{{range $j, $l := lines $p.Notes}}{{if $j}}<br>{{end}}{{$l}}{{end}}</div>
{{- else}}
<div style="color: #666; font-style: italic;">No specific notes for this product</div>
{{- end}}
</div>
{{- end}}
</div>
{{- with .Enquiry.GeneralMessage}}
<div class="section">
<div class="section-title">General Message</div>
<div class="general-message">{{range $j, $l := lines .}}{{if $j}}<br>{{end}}{{$l}}{{end}}</div>
</div>
{{- end}}
<div class="footer">
<div>Submitted: {{lagos .Enquiry.Timestamp}} (Nigeria Time)</div>
<div>Source: {{.Company}} Website</div>
<div>Reply to: <a href="mailto:{{.Enquiry.ContactDetails.Email}}">{{.Enquiry.ContactDetails.Email}}</a></div>
</div>
</body>
</html>
`))

var textBody = texttemplate.Must(texttemplate.New("enquiry.txt").Funcs(funcs).Parse(`New Product Enquiry from {{.Enquiry.ContactDetails.Name}}

Contact Information:
- Name: {{.Enquiry.ContactDetails.Name}}
- Email: {{.Enquiry.ContactDetails.Email}}
{{- with .Enquiry.ContactDetails.Phone}}
- Phone: {{.}}
{{- end}}

Products ({{plural (len .Enquiry.Products) "item"}}):
{{- range $i, $p := .Enquiry.Products}}

{{inc $i}}. {{$p.Name}}
   Category: {{category $p.CategorySlug}}
   SKU: {{$p.ProductSlug}}
   {{if $p.Notes}}Notes: {{$p.Notes}}{{else}}No specific notes{{end}}
{{- end}}
{{- with .Enquiry.GeneralMessage}}

General Message:
{{.}}
{{- end}}

Submitted: {{lagos .Enquiry.Timestamp}}
Source: {{.Company}} Website
`))

var lagos = func() *time.Location {
	if loc, err := time.LoadLocation("Africa/Lagos"); err == nil {
		return loc
	}
	return time.FixedZone("WAT", 3600)
}()

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// categoryTitle turns a slug like "spices-and-herbs" into "Spices And Herbs".
func categoryTitle(slug string) string {
	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
