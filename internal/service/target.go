// Package service implements stream relaying and playlist rewriting.
package service

import (
	"net/url"
)

// validateTarget rejects a missing url and any parseable URL that is not
// absolute http(s). It runs before any network I/O. Unparseable values pass
// through and fail later at request construction.
func validateTarget(raw string) error {
	if raw == "" {
		return ErrMissingURL
	}
	if u, err := url.Parse(raw); err == nil && ((u.Scheme != "http" && u.Scheme != "https") || u.Host == "") {
		return ErrInvalidURL
	}
	return nil
}
