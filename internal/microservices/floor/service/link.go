package service

import (
	"fmt"
	"net/url"
	"strconv"

	"venue-pos/internal/domain"
)

// MenuLink builds the customer ordering deep link encoded in a table's QR code.
// Existing query parameters on base are kept.
func MenuLink(base string, number int) (string, error) {
	if number <= 0 {
		return "", fmt.Errorf("%w: table number %d", domain.ErrValidation, number)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("menu base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("menu base url %q is not absolute", base)
	}
	q := u.Query()
	q.Set("table", strconv.Itoa(number))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
