// Package receipt renders printable 80mm order receipts.
package receipt

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"venue-pos/internal/domain"
	"venue-pos/internal/locale"
)

type Variant string

const (
	Customer Variant = "customer"
	// Kitchen omits prices and puts quantities and notes first.
	Kitchen Variant = "kitchen"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", Customer:
		return Customer, nil
	case Kitchen:
		return Kitchen, nil
	}
	return "", fmt.Errorf("%w: unknown receipt variant %q", domain.ErrValidation, s)
}

type Receipt struct {
	Venue     domain.Venue
	Order     domain.Order
	Items     []domain.OrderItem
	Locale    locale.Locale
	PrintedAt time.Time
}

//go:embed templates/*.html
var files embed.FS

var templates = template.Must(template.ParseFS(files, "templates/*.html"))

type view struct {
	Receipt
	Dir      string
	Table    string
	Subtotal string
	Tax      string
	Discount string
	Total    string
	Labels   map[string]string
	Date     string
	Time     string
	Lines    []line
}

type line struct {
	Quantity int
	Name     string
	Notes    string
	Amount   string
}

// Render writes the receipt as a standalone HTML document.
func Render(w io.Writer, r Receipt, v Variant) error {
	name := "customer.html"
	if v == Kitchen {
		name = "kitchen.html"
	}
	return templates.ExecuteTemplate(w, name, build(r))
}

func build(r Receipt) view {
	l := r.Locale
	if l.Code == "" {
		l = locale.MustLookup(r.Venue.Locale)
	}
	vw := view{
		Receipt:  r,
		Dir:      "ltr",
		Subtotal: l.FormatCurrency(r.Order.Subtotal),
		Tax:      l.FormatCurrency(r.Order.Tax),
		Total:    l.FormatCurrency(r.Order.Total),
		Date:     l.FormatDate(r.PrintedAt),
		Time:     l.FormatTime(r.PrintedAt),
		Labels: map[string]string{
			"subtotal": locale.T(l.Code, locale.MsgSubtotal),
			"tax":      locale.T(l.Code, locale.MsgTax),
			"discount": locale.T(l.Code, locale.MsgDiscount),
			"total":    locale.T(l.Code, locale.MsgTotal),
			"thanks":   locale.T(l.Code, locale.MsgThankYou),
		},
	}
	if l.RTL {
		vw.Dir = "rtl"
	}
	if r.Order.Discount.IsPositive() {
		vw.Discount = l.FormatCurrency(r.Order.Discount.Neg())
	}
	if r.Order.TableNumber != nil {
		vw.Table = locale.T(l.Code, locale.MsgTable, *r.Order.TableNumber)
	}
	for _, it := range r.Items {
		vw.Lines = append(vw.Lines, line{
			Quantity: it.Quantity,
			Name:     it.Name,
			Notes:    it.Notes,
			Amount:   l.FormatCurrency(it.LineTotal()),
		})
	}
	vw.Receipt.Locale = l
	return vw
}
