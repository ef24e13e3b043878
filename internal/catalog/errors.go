package catalog

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const previewLimit = 200

// TransportError is returned for a non-2xx response or a success response
// whose body is not JSON.
type TransportError struct {
	StatusCode int
	URL        string
	Preview    string
	Reason     string
}

func (e *TransportError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "HTTP error"
	}
	return fmt.Sprintf("%s %d for URL %s: %s", reason, e.StatusCode, e.URL, e.Preview)
}

// ReferenceNotFoundError is returned when a controlled vocabulary term has no remote record
type ReferenceNotFoundError struct {
	Kind ReferenceKind
	Name string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found in catalog", e.Kind.Label(), e.Name)
}

// ImageFetchError is returned when a cover image cannot be downloaded
type ImageFetchError struct {
	URL string
	Err error
}

func (e *ImageFetchError) Error() string {
	return fmt.Sprintf("failed to fetch image %s: %v", e.URL, e.Err)
}

func (e *ImageFetchError) Unwrap() error {
	return e.Err
}

// bodyPreview returns JSON bodies verbatim and truncates anything else
func bodyPreview(body []byte) string {
	if json.Valid(body) {
		return string(body)
	}
	if utf8.RuneCount(body) <= previewLimit {
		return string(body)
	}
	runes := []rune(string(body))
	return string(runes[:previewLimit])
}
