// Package render produces the HTML fragments the storefront script splices into the enquiry page.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"strconv"

	"github.com/microcosm-cc/bluemonday"

	"greendrake/productenquiry/internal/captcha"
	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/validation"
)

// MissingPlaceholder stands in for catalog data that could not be found.
const MissingPlaceholder = "—"

// adminMarkup keeps the formatting and links an admin may put in option text.
var adminMarkup = bluemonday.UGCPolicy()

// ProductLookup resolves catalog entries for the rows of an enquiry list.
type ProductLookup interface {
	FindProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
}

// Renderer renders enquiry list fragments.
type Renderer struct {
	products ProductLookup
	shopURL  string
	currency string
}

func NewRenderer(products ProductLookup, shopURL, currencySymbol string) *Renderer {
	return &Renderer{products: products, shopURL: shopURL, currency: currencySymbol}
}

type tableRow struct {
	ItemID    int64
	Name      string
	Permalink string
	Thumbnail string
	Price     string
	Quantity  int64
	Subtotal  string
	Remarks   string
}

type formData struct {
	Captcha       string
	PrivacyPolicy template.HTML
	EmailPattern  string
	PhonePattern  string
}

// EmptyList renders the message shown when the visitor's list has no items.
func (r *Renderer) EmptyList() string {
	var buf bytes.Buffer
	if err := emptyListTmpl.Execute(&buf, struct{ ShopURL string }{r.shopURL}); err != nil {
		log.Printf("ERROR: Rendering empty enquiry list: %v", err)
	}
	return buf.String()
}

// Table renders the list rows in ascending item order with subtotals and the grand total.
// Items missing from the catalog are shown with placeholders and a zero price.
func (r *Renderer) Table(ctx context.Context, list models.EnquiryList) (string, error) {
	ids := list.ItemIDs()
	products, err := r.products.FindProducts(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("failed to load products for enquiry table: %w", err)
	}

	rows := make([]tableRow, 0, len(ids))
	var total float64
	for _, id := range ids {
		line := list[id]
		row := tableRow{
			ItemID:    id,
			Name:      MissingPlaceholder,
			Permalink: "#",
			Price:     MissingPlaceholder,
			Quantity:  line.Quantity,
			Remarks:   line.Remarks,
		}
		var price float64
		if p, ok := products[id]; ok {
			row.Name = p.Name
			row.Permalink = p.Permalink
			row.Thumbnail = p.Thumbnail
			row.Price = r.Price(p.Price)
			price = p.Price
		}
		subtotal := price * float64(line.Quantity)
		total += subtotal
		row.Subtotal = r.Price(subtotal)
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	err = tableTmpl.Execute(&buf, struct {
		Rows  []tableRow
		Total string
	}{rows, r.Price(total)})
	if err != nil {
		return "", fmt.Errorf("failed to render enquiry table: %w", err)
	}
	return buf.String(), nil
}

// Form renders the contact form. challenge is shown only when captcha is enabled.
func (r *Renderer) Form(settings models.Settings, challenge *captcha.Challenge) (string, error) {
	data := formData{
		PrivacyPolicy: template.HTML(adminMarkup.Sanitize(settings.PrivacyPolicyMessage)),
		EmailPattern:  validation.ClientEmailPattern,
		PhonePattern:  validation.ClientPhonePattern,
	}
	if settings.CaptchaEnabled && challenge != nil {
		data.Captcha = challenge.Question()
	}

	var buf bytes.Buffer
	if err := formTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render enquiry form: %w", err)
	}
	return buf.String(), nil
}

// ListBlock renders the whole embeddable block: the empty message, or the table followed by the form.
func (r *Renderer) ListBlock(ctx context.Context, list models.EnquiryList, settings models.Settings, challenge *captcha.Challenge) (string, error) {
	if len(list) == 0 {
		return r.EmptyList(), nil
	}
	table, err := r.Table(ctx, list)
	if err != nil {
		return "", err
	}
	form, err := r.Form(settings, challenge)
	if err != nil {
		return "", err
	}
	return table + form, nil
}

// Price formats an amount with the store currency symbol.
func (r *Renderer) Price(amount float64) string {
	return r.currency + strconv.FormatFloat(amount, 'f', 2, 64)
}

// AddedNotification renders the notification listing products added in one request.
func AddedNotification(names []string) string {
	var buf bytes.Buffer
	if err := addedNotificationTmpl.Execute(&buf, names); err != nil {
		log.Printf("ERROR: Rendering added-products notification: %v", err)
	}
	return buf.String()
}

// Escape HTML-escapes a value interpolated into a notification message.
func Escape(s string) string {
	return template.HTMLEscapeString(s)
}
