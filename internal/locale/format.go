package locale

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatNumber renders d with the locale's separators and a fixed number of decimals.
func (l Locale) FormatNumber(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(l.Group)
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString(l.Decimal)
		b.WriteString(frac)
	}
	return b.String()
}

// FormatCurrency renders an amount with two decimals and the currency symbol.
func (l Locale) FormatCurrency(d decimal.Decimal) string {
	n := l.FormatNumber(d, 2)
	if l.SymbolAfter {
		return n + " " + l.Symbol
	}
	if strings.HasPrefix(n, "-") {
		return "-" + l.Symbol + n[1:]
	}
	return l.Symbol + n
}

func (l Locale) FormatDate(t time.Time) string { return t.Format(l.DateLayout) }

func (l Locale) FormatTime(t time.Time) string { return t.Format(l.TimeLayout) }
