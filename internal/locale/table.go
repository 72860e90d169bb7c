// Package locale formats numbers, money and dates per venue locale and picks
// the locale for a device.
package locale

import "strings"

type Locale struct {
	Code        string `json:"code"`
	Language    string `json:"language"`
	Currency    string `json:"currency"`
	Symbol      string `json:"symbol"`
	SymbolAfter bool   `json:"symbol_after"`
	Decimal     string `json:"decimal_separator"`
	Group       string `json:"group_separator"`
	RTL         bool   `json:"rtl"`
	DateLayout  string `json:"date_layout"`
	TimeLayout  string `json:"time_layout"`
}

var locales = map[string]Locale{
	"en": {Code: "en", Language: "en-US", Currency: "USD", Symbol: "$", Decimal: ".", Group: ",",
		DateLayout: "01/02/2006", TimeLayout: "3:04 PM"},
	"tr": {Code: "tr", Language: "tr-TR", Currency: "TRY", Symbol: "₺", Decimal: ",", Group: ".",
		DateLayout: "02.01.2006", TimeLayout: "15:04"},
	"de": {Code: "de", Language: "de-DE", Currency: "EUR", Symbol: "€", SymbolAfter: true, Decimal: ",", Group: ".",
		DateLayout: "02.01.2006", TimeLayout: "15:04"},
	"fr": {Code: "fr", Language: "fr-FR", Currency: "EUR", Symbol: "€", SymbolAfter: true, Decimal: ",", Group: " ",
		DateLayout: "02/01/2006", TimeLayout: "15:04"},
	"es": {Code: "es", Language: "es-ES", Currency: "EUR", Symbol: "€", SymbolAfter: true, Decimal: ",", Group: ".",
		DateLayout: "02/01/2006", TimeLayout: "15:04"},
	"ar": {Code: "ar", Language: "ar-SA", Currency: "SAR", Symbol: "ر.س", SymbolAfter: true, Decimal: "٫", Group: "٬", RTL: true,
		DateLayout: "02/01/2006", TimeLayout: "15:04"},
}

// countries maps ISO 3166 alpha-2 codes to a supported locale.
var countries = map[string]string{
	"US": "en", "GB": "en", "IE": "en", "CA": "en", "AU": "en",
	"TR": "tr", "CY": "tr",
	"DE": "de", "AT": "de", "CH": "de",
	"FR": "fr", "BE": "fr", "LU": "fr",
	"ES": "es", "MX": "es", "AR": "es",
	"SA": "ar", "AE": "ar", "EG": "ar", "QA": "ar",
}

// Lookup returns the locale for code ("tr", "tr-TR" and "TR_tr" all match tr).
func Lookup(code string) (Locale, bool) {
	code = strings.ToLower(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	l, ok := locales[code]
	return l, ok
}

// MustLookup falls back to English for unknown codes.
func MustLookup(code string) Locale {
	if l, ok := Lookup(code); ok {
		return l
	}
	return locales["en"]
}

func ForCountry(country string) (Locale, bool) {
	code, ok := countries[strings.ToUpper(country)]
	if !ok {
		return Locale{}, false
	}
	return locales[code], true
}

// Codes lists the supported locale codes.
func Codes() []string {
	return []string{"en", "tr", "de", "fr", "es", "ar"}
}
