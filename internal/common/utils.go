package common

import (
	"net/url"
	"strings"
)

// HasAny returns true if s contains any of the substrings, ignoring case.
func HasAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// MaskAPIKey replaces the value of keyParam in rawURL so the URL can be logged.
// Unparseable input is returned as an opaque placeholder.
func MaskAPIKey(rawURL, keyParam string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if !q.Has(keyParam) {
		return rawURL
	}
	q.Set(keyParam, "***")
	u.RawQuery = q.Encode()
	return u.String()
}
