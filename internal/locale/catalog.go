package locale

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys for the strings the server produces itself.
const (
	MsgInvalidPIN       = "pin.invalid"
	MsgUnknownVenueCode = "venue.code.unknown"
	MsgOrderTitle       = "notification.order.title"
	MsgOrderBody        = "notification.order.body"
	MsgReservationTitle = "notification.reservation.title"
	MsgReservationBody  = "notification.reservation.body"
	MsgPopupBlocked     = "receipt.popup_blocked"
	MsgTable            = "table.label"
	MsgSubtotal         = "receipt.subtotal"
	MsgTax              = "receipt.tax"
	MsgDiscount         = "receipt.discount"
	MsgTotal            = "receipt.total"
	MsgThankYou         = "receipt.thanks"
)

var messages = catalog.NewBuilder(catalog.Fallback(language.English))

// translated lists the base languages the catalog carries; others read English.
var translated = map[string]language.Tag{
	"en": language.English,
	"tr": language.Turkish,
	"de": language.German,
}

func init() {
	set := func(tag language.Tag, pairs ...string) {
		for i := 0; i+1 < len(pairs); i += 2 {
			_ = messages.SetString(tag, pairs[i], pairs[i+1])
		}
	}
	set(language.English,
		MsgInvalidPIN, "Incorrect PIN, please try again",
		MsgUnknownVenueCode, "No venue found for this code",
		MsgOrderTitle, "New order",
		MsgOrderBody, "Order %s for %s",
		MsgReservationTitle, "New reservation",
		MsgReservationBody, "%s, party of %d",
		MsgPopupBlocked, "Allow pop-ups to print receipts",
		MsgTable, "Table %d",
		MsgSubtotal, "Subtotal",
		MsgTax, "Tax",
		MsgDiscount, "Discount",
		MsgTotal, "Total",
		MsgThankYou, "Thank you!",
	)
	set(language.Turkish,
		MsgInvalidPIN, "Hatalı PIN, lütfen tekrar deneyin",
		MsgUnknownVenueCode, "Bu koda ait mekan bulunamadı",
		MsgOrderTitle, "Yeni sipariş",
		MsgOrderBody, "%s numaralı sipariş, %s",
		MsgReservationTitle, "Yeni rezervasyon",
		MsgReservationBody, "%s, %d kişi",
		MsgPopupBlocked, "Fiş yazdırmak için açılır pencerelere izin verin",
		MsgTable, "Masa %d",
		MsgSubtotal, "Ara toplam",
		MsgTax, "KDV",
		MsgDiscount, "İndirim",
		MsgTotal, "Toplam",
		MsgThankYou, "Teşekkür ederiz!",
	)
	set(language.German,
		MsgInvalidPIN, "Falsche PIN, bitte erneut versuchen",
		MsgUnknownVenueCode, "Kein Lokal für diesen Code gefunden",
		MsgOrderTitle, "Neue Bestellung",
		MsgOrderBody, "Bestellung %s für %s",
		MsgReservationTitle, "Neue Reservierung",
		MsgReservationBody, "%s, %d Personen",
		MsgPopupBlocked, "Pop-ups erlauben, um Belege zu drucken",
		MsgTable, "Tisch %d",
		MsgSubtotal, "Zwischensumme",
		MsgTax, "MwSt.",
		MsgDiscount, "Rabatt",
		MsgTotal, "Summe",
		MsgThankYou, "Vielen Dank!",
	)
}

// T translates key into the language of code, falling back to English.
func T(code, key string, args ...any) string {
	tag := language.English
	if parsed, err := language.Parse(code); err == nil {
		base, _ := parsed.Base()
		if t, ok := translated[base.String()]; ok {
			tag = t
		}
	}
	return message.NewPrinter(tag, message.Catalog(messages)).Sprintf(key, args...)
}
