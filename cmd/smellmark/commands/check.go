package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/smellmark/internal/crawler"
	"github.com/jmylchreest/smellmark/internal/logger"
	"github.com/jmylchreest/smellmark/internal/output"
	"github.com/jmylchreest/smellmark/internal/site"
	"github.com/jmylchreest/smellmark/internal/version"
	"github.com/jmylchreest/smellmark/pkg/fetcher"
	"github.com/jmylchreest/smellmark/pkg/smell"
)

// ErrResidualMarkers is returned by check when any page still contains a
// marker.
var ErrResidualMarkers = errors.New("residual markers found")

// checkResult is the audit outcome for one file or page.
type checkResult struct {
	Target     string          `json:"target" yaml:"target"`
	StatusCode int             `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Findings   []smell.Finding `json:"findings,omitempty" yaml:"findings,omitempty"`
	Error      string          `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r checkResult) String() string {
	switch {
	case r.Error != "":
		return fmt.Sprintf("%s: error: %s", r.Target, r.Error)
	case len(r.Findings) == 0:
		return fmt.Sprintf("%s: ok", r.Target)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d residual markers", r.Target, len(r.Findings))
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "\n  %s", f)
	}
	return b.String()
}

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Find markers that were never converted",
	Long: `Scan rendered HTML for markers the highlighter split across tokens, or
that another token class left unconverted. Paths may be files or site
directories; with --url the pages are fetched from a deployed site instead.
Exits non-zero when any residual marker is found.

Examples:
  smellmark check _site
  smellmark check --url https://blog.example.com/posts/smells/
  smellmark check --url https://blog.example.com --crawl --max-depth 2 \
      --follow-pattern "/posts/"`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	flags := checkCmd.Flags()
	addSiteFlags(flags)
	flags.String("format", "text", "output format: text, json, jsonl, yaml")

	// Remote audit
	flags.StringSliceP("url", "u", nil, "URL(s) to audit (can be repeated)")
	flags.Bool("crawl", false, "follow links from the URLs")
	flags.String("follow", "", "CSS selector for links to follow (default a[href])")
	flags.String("follow-pattern", "", "regex pattern for URLs to follow")
	flags.Int("max-depth", 2, "max link depth when crawling")
	flags.Int("max-pages", 100, "max pages to fetch (0=unlimited)")
	flags.Bool("all-hosts", false, "follow links to other hosts")
	flags.Duration("delay", 100*time.Millisecond, "delay between requests")
	flags.Duration("timeout", 30*time.Second, "request timeout")
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic (headless Chrome, for client-side highlighting)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	urls, _ := cmd.Flags().GetStringSlice("url")
	if len(urls) == 0 && len(args) == 0 {
		return cmd.Help()
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	writer, err := output.NewWriter(cmd.OutOrStdout(), format)
	if err != nil {
		return err
	}

	var results []checkResult
	if len(args) > 0 {
		local, err := checkPaths(ctx, cmd, args)
		if err != nil {
			return err
		}
		results = append(results, local...)
	}
	if len(urls) > 0 {
		remote, err := checkURLs(ctx, cmd, urls)
		if err != nil {
			return err
		}
		results = append(results, remote...)
	}

	markers, failed := 0, 0
	for _, r := range results {
		markers += len(r.Findings)
		if r.Error != "" {
			failed++
		}
		if format == output.FormatText && r.Error == "" && len(r.Findings) == 0 {
			continue
		}
		if err := writer.Write(r); err != nil {
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	logInfo(cmd, "checked %d pages: %d residual markers, %d failed", len(results), markers, failed)
	switch {
	case markers > 0:
		return fmt.Errorf("%w: %d", ErrResidualMarkers, markers)
	case failed > 0:
		return fmt.Errorf("%d pages could not be checked", failed)
	}
	return nil
}

// checkPaths scans local files, expanding directories to their selected
// HTML files.
func checkPaths(ctx context.Context, cmd *cobra.Command, paths []string) ([]checkResult, error) {
	cfg := siteConfig(cmd)

	var results []checkResult
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		files := []string{p}
		if info.IsDir() {
			proc, err := site.New(p, cfg, nil)
			if err != nil {
				return nil, err
			}
			if files, err = proc.Files(ctx); err != nil {
				return nil, err
			}
		}

		for _, f := range files {
			results = append(results, checkFile(f))
		}
	}
	return results, nil
}

func checkFile(path string) checkResult {
	result := checkResult{Target: path}
	data, err := os.ReadFile(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	findings, err := smell.Scan(string(data))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Findings = findings
	logger.Debug("checked", "path", path, "residual", len(findings))
	return result
}

// checkURLs fetches the URLs, crawling below them when asked.
func checkURLs(ctx context.Context, cmd *cobra.Command, urls []string) ([]checkResult, error) {
	flags := cmd.Flags()
	timeout, _ := flags.GetDuration("timeout")

	cfg := crawler.DefaultConfig()
	if crawl, _ := flags.GetBool("crawl"); crawl {
		cfg.MaxDepth, _ = flags.GetInt("max-depth")
	}
	cfg.FollowSelector, _ = flags.GetString("follow")
	cfg.FollowPattern, _ = flags.GetString("follow-pattern")
	cfg.MaxPages, _ = flags.GetInt("max-pages")
	cfg.Delay, _ = flags.GetDuration("delay")
	if allHosts, _ := flags.GetBool("all-hosts"); allHosts {
		cfg.SameHostOnly = false
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}

	var f fetcher.Fetcher
	switch mode, _ := flags.GetString("fetch-mode"); mode {
	case "static":
		f = fetcher.NewStatic(fetcher.StaticConfig{
			UserAgent: version.UserAgent(),
			Timeout:   timeout,
		})
	case "dynamic":
		dynamic := fetcher.NewDynamic(fetcher.DynamicConfig{
			UserAgent: version.UserAgent(),
			Timeout:   timeout,
			Settle:    fetcher.DefaultDynamicConfig().Settle,
		})
		defer func() { _ = dynamic.Close() }()
		f = dynamic
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s (use static or dynamic)", mode)
	}

	logger.Info("starting audit",
		"seeds", len(urls),
		"max_depth", cfg.MaxDepth,
		"max_pages", cfg.MaxPages,
		"concurrency", cfg.Concurrency,
		"fetcher", f.Type())

	pages, err := crawler.New(f, cfg).Crawl(ctx, urls)
	if err != nil {
		return nil, err
	}

	var results []checkResult
	for page := range pages {
		results = append(results, checkResult{
			Target:     page.URL,
			StatusCode: page.StatusCode,
			Findings:   page.Findings,
			Error:      page.Error,
		})
	}
	logger.Info("audit complete", "pages", len(results))
	return results, ctx.Err()
}
