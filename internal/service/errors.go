package service

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingURL is returned when the url query parameter is absent.
	ErrMissingURL = errors.New("url parameter is required")

	// ErrInvalidURL is returned when the target is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("url must be an absolute http or https URL")
)

// UpstreamError reports a failed call to a media or playlist host.
// StatusCode is the upstream HTTP status when a response was received, else 0.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("upstream status %d: %v", e.StatusCode, e.Err)
		}
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsValidation reports whether err should be answered with 400 Bad Request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingURL) || errors.Is(err, ErrInvalidURL)
}
