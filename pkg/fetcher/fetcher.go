// Package fetcher retrieves rendered pages from a deployed site so they can
// be audited for unconverted markers.
package fetcher

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves page content from a URL.
	Fetch(ctx context.Context, url string) (Content, error)

	// Type returns a string identifying the fetcher type.
	Type() string
}

// Content represents fetched page data.
type Content struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// IsHTML reports whether the response declared an HTML content type. A
// missing content type counts as HTML.
func (c Content) IsHTML() bool {
	if c.ContentType == "" {
		return true
	}
	ct := strings.ToLower(c.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// ErrFetch wraps every failure to retrieve a page.
// Check with errors.Is(err, fetcher.ErrFetch).
var ErrFetch = errors.New("fetch failed")
