package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/smellmark/internal/logger"
)

// DynamicConfig holds configuration for the headless browser fetcher.
type DynamicConfig struct {
	UserAgent string
	Timeout   time.Duration

	// Settle is how long to wait after the page is ready, for client-side
	// highlighters to finish rewriting code blocks.
	Settle time.Duration
}

// DefaultDynamicConfig returns sensible defaults.
func DefaultDynamicConfig() DynamicConfig {
	static := DefaultStaticConfig()
	return DynamicConfig{
		UserAgent: static.UserAgent,
		Timeout:   static.Timeout,
		Settle:    500 * time.Millisecond,
	}
}

// DynamicFetcher renders pages in headless Chrome and returns the DOM after
// scripts have run. Sites that highlight code in the browser only show their
// markers this way. One browser serves every fetch, each in its own tab.
type DynamicFetcher struct {
	config        DynamicConfig
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc

	startOnce sync.Once
	startErr  error
}

// NewDynamic creates a dynamic fetcher. The browser starts on the first
// Fetch; call Close to release it.
func NewDynamic(cfg DynamicConfig) *DynamicFetcher {
	defaults := DefaultDynamicConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	return &DynamicFetcher{
		config:        cfg,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
	}
}

// start launches the browser once. Running with no actions on the browser
// context allocates it without opening a page.
func (f *DynamicFetcher) start() error {
	f.startOnce.Do(func() {
		logger.Debug("starting browser")
		f.startErr = chromedp.Run(f.browserCtx)
	})
	return f.startErr
}

// Fetch loads a page in a new tab of the shared browser. Non-2xx responses
// are errors.
func (f *DynamicFetcher) Fetch(ctx context.Context, targetURL string) (Content, error) {
	result := Content{URL: targetURL}

	if err := f.start(); err != nil {
		return result, fmt.Errorf("%w: %s: starting browser: %v", ErrFetch, targetURL, err)
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.config.Timeout)
	defer cancelTimeout()

	// Stop the tab when the caller gives up.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
	}
	if f.config.Settle > 0 {
		actions = append(actions, chromedp.Sleep(f.config.Settle))
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &result.HTML),
		chromedp.Location(&result.URL),
	)

	logger.Debug("rendering", "url", targetURL, "timeout", f.config.Timeout)
	resp, err := chromedp.RunResponse(tabCtx, actions...)
	if err != nil {
		return result, fmt.Errorf("%w: %s: %v", ErrFetch, targetURL, err)
	}
	if resp != nil {
		result.StatusCode = int(resp.Status)
		result.ContentType = resp.MimeType
	}
	if result.StatusCode >= 300 {
		return result, fmt.Errorf("%w: %s (status %d)", ErrFetch, targetURL, result.StatusCode)
	}

	result.FetchedAt = time.Now()
	logger.Debug("rendered", "url", result.URL, "status", result.StatusCode, "bytes", len(result.HTML))
	return result, nil
}

// Close shuts down the browser. Fetch fails once the fetcher is closed.
func (f *DynamicFetcher) Close() error {
	f.cancelBrowser()
	f.cancelAlloc()
	return nil
}

// Type returns the fetcher type.
func (f *DynamicFetcher) Type() string {
	return "dynamic"
}
