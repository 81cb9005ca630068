// Package crawler walks a deployed site and scans each page for smell
// markers that were never converted.
package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmylchreest/smellmark/internal/logger"
	"github.com/jmylchreest/smellmark/pkg/fetcher"
	"github.com/jmylchreest/smellmark/pkg/smell"
)

// Result is the audit outcome for one page.
type Result struct {
	URL           string          `json:"url" yaml:"url"`
	Depth         int             `json:"depth" yaml:"depth"`
	StatusCode    int             `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Findings      []smell.Finding `json:"findings,omitempty" yaml:"findings,omitempty"`
	Error         string          `json:"error,omitempty" yaml:"error,omitempty"`
	FetchDuration time.Duration   `json:"fetch_duration_ns" yaml:"fetch_duration_ns"`
}

// String returns a one-line summary.
func (r Result) String() string {
	switch {
	case r.Error != "":
		return fmt.Sprintf("%s: error: %s", r.URL, r.Error)
	case len(r.Findings) > 0:
		return fmt.Sprintf("%s: %d residual markers", r.URL, len(r.Findings))
	default:
		return fmt.Sprintf("%s: ok", r.URL)
	}
}

// Config holds crawler configuration.
type Config struct {
	FollowSelector string        // CSS selector for links to follow
	FollowPattern  string        // Regex pattern for URLs to follow
	SameHostOnly   bool          // Only follow links on the seed's host
	MaxDepth       int           // Max link depth (0 = seeds only)
	MaxPages       int           // Max pages to fetch (0 = unlimited)
	Delay          time.Duration // Delay before each request
	Concurrency    int           // Max concurrent requests
}

// DefaultConfig returns sensible crawler defaults.
func DefaultConfig() Config {
	return Config{
		SameHostOnly: true,
		MaxDepth:     0,
		MaxPages:     100,
		Delay:        100 * time.Millisecond,
		Concurrency:  3,
	}
}

// Crawler fetches pages and scans them for residual markers.
type Crawler struct {
	fetcher fetcher.Fetcher
	config  Config
}

// New creates a crawler.
func New(f fetcher.Fetcher, cfg Config) *Crawler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Crawler{fetcher: f, config: cfg}
}

// Crawl visits the seeds, and the links below them up to MaxDepth, and sends
// one Result per page. The channel is closed when the crawl ends.
func (c *Crawler) Crawl(ctx context.Context, seeds []string) (<-chan Result, error) {
	var links *LinkSelector
	if c.config.MaxDepth > 0 {
		var err error
		links, err = NewLinkSelector(c.config.FollowSelector, c.config.FollowPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid link selector: %w", err)
		}
	}

	results := make(chan Result, 100)
	go func() {
		defer close(results)
		c.crawl(ctx, seeds, links, results)
	}()
	return results, nil
}

func (c *Crawler) crawl(ctx context.Context, seeds []string, links *LinkSelector, results chan<- Result) {
	logger.Debug("crawler starting",
		"seeds", len(seeds),
		"max_depth", c.config.MaxDepth,
		"max_pages", c.config.MaxPages,
		"concurrency", c.config.Concurrency)

	queue := NewURLQueue()
	for _, seed := range seeds {
		if pageKey(seed) == "" {
			results <- Result{URL: seed, Error: "not an http(s) URL"}
			continue
		}
		queue.Add(seed, 0)
	}

	sem := make(chan struct{}, c.config.Concurrency)
	var wg sync.WaitGroup
	pages := 0

	for ctx.Err() == nil {
		if c.config.MaxPages > 0 && pages >= c.config.MaxPages {
			logger.Debug("crawler reached max pages", "max_pages", c.config.MaxPages)
			break
		}

		pageURL, depth, ok := queue.Pop()
		if !ok {
			// In-flight pages may still add links.
			wg.Wait()
			if queue.Len() == 0 {
				break
			}
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			continue
		}
		wg.Add(1)
		pages++
		go func(pageURL string, depth int) {
			defer wg.Done()
			defer func() { <-sem }()

			if c.config.Delay > 0 {
				select {
				case <-time.After(c.config.Delay):
				case <-ctx.Done():
					return
				}
			}
			results <- c.visit(ctx, pageURL, depth, queue, links)
		}(pageURL, depth)
	}
	wg.Wait()

	logger.Debug("crawler finished",
		"pages", pages,
		"discovered", queue.Seen(),
		"pages_per_depth", queue.DepthCounts())
}

func (c *Crawler) visit(ctx context.Context, pageURL string, depth int, queue *URLQueue, links *LinkSelector) Result {
	result := Result{URL: pageURL, Depth: depth}

	start := time.Now()
	content, err := c.fetcher.Fetch(ctx, pageURL)
	result.FetchDuration = time.Since(start)
	result.StatusCode = content.StatusCode
	if err != nil {
		result.Error = err.Error()
		logger.Info("fetch failed", "url", pageURL, "error", err)
		return result
	}
	if !content.IsHTML() {
		logger.Debug("skipping non-HTML page", "url", pageURL, "content_type", content.ContentType)
		return result
	}

	findings, err := smell.Scan(content.HTML)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Findings = findings
	logger.Info("audited", "url", pageURL, "residual", len(findings), "fetch", result.FetchDuration.Round(time.Millisecond))

	if links != nil && depth < c.config.MaxDepth {
		found, err := links.ExtractLinks(content.HTML, content.URL)
		if err != nil {
			logger.Debug("link extraction failed", "url", pageURL, "error", err)
			return result
		}
		added := 0
		for _, link := range found {
			if c.config.SameHostOnly && !IsSameHost(pageURL, link) {
				continue
			}
			if queue.Add(link, depth+1) {
				added++
			}
		}
		logger.Debug("following links", "from", pageURL, "count", added)
	}
	return result
}
