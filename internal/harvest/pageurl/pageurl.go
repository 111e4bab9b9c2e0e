// Package pageurl derives pagination URLs for the listing source. The source
// numbers pages with a `pn` query parameter; page 1 is only correct without
// it, so the clean base URL and pn=1 are deliberately not the same thing.
package pageurl

import (
	"net/url"
	"strconv"
)

const pageParam = "pn"

// CleanBaseURL strips the page-number parameter so the result is the true
// page-1 URL. Every other filter (steering, price range, ...) survives,
// though parameter order may be normalized.
func CleanBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Del(pageParam)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// PageURL sets pn=n on base, leaving all other parameters in place.
func PageURL(base string, n int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(pageParam, strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
