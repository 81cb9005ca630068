package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/smellmark/internal/logger"
	"github.com/jmylchreest/smellmark/internal/version"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: version.UserAgent(),
		Timeout:   30 * time.Second,
	}
}

// StaticFetcher uses Colly to fetch server-rendered HTML.
type StaticFetcher struct {
	config StaticConfig
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg StaticConfig) *StaticFetcher {
	defaults := DefaultStaticConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &StaticFetcher{config: cfg}
}

// Fetch retrieves a page. Non-2xx responses are errors.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string) (Content, error) {
	result := Content{URL: targetURL}

	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.config.Timeout)

	if len(f.config.Headers) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for k, v := range f.config.Headers {
				r.Headers.Set(k, v)
			}
		})
	}

	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.HTML = string(r.Body)
		result.URL = r.Request.URL.String()
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	logger.Debug("fetching", "url", targetURL, "timeout", f.config.Timeout)
	if err := c.Visit(targetURL); err != nil {
		return result, fmt.Errorf("%w: %s: %v", ErrFetch, targetURL, err)
	}
	if fetchErr != nil {
		return result, fmt.Errorf("%w: %s (status %d): %v", ErrFetch, targetURL, result.StatusCode, fetchErr)
	}

	result.FetchedAt = time.Now()
	logger.Debug("fetched", "url", result.URL, "status", result.StatusCode, "bytes", len(result.HTML))
	return result, nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}
