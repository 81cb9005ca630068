// Package site applies post-render hooks to the HTML files of an already
// built static site, rewriting them in place.
package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/smellmark/internal/logger"
	"github.com/jmylchreest/smellmark/pkg/hook"
	"github.com/jmylchreest/smellmark/pkg/smell"
)

// Config holds site processing configuration.
type Config struct {
	// Include selects files. A pattern matches either the base name or the
	// slash-separated path relative to the root.
	Include []string

	// Exclude removes files selected by Include. Matching directories are
	// skipped entirely.
	Exclude []string

	// Concurrency is the number of files processed at once.
	Concurrency int

	// DryRun reports what would change without writing.
	DryRun bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Include:     []string{"*.html", "*.htm"},
		Exclude:     []string{".git", "node_modules"},
		Concurrency: 4,
	}
}

// Validate checks the glob patterns.
func (c Config) Validate() error {
	for _, p := range append(append([]string{}, c.Include...), c.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

// FileReport describes what happened to one file.
type FileReport struct {
	Path     string          `json:"path" yaml:"path"`
	Changed  bool            `json:"changed" yaml:"changed"`
	Written  bool            `json:"written" yaml:"written"`
	Stats    *smell.Stats    `json:"stats,omitempty" yaml:"stats,omitempty"`
	Warnings []smell.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// String returns a one-line summary.
func (r FileReport) String() string {
	switch {
	case r.Error != "":
		return fmt.Sprintf("%s: error: %s", r.Path, r.Error)
	case r.Changed:
		verb := "rewrote"
		if !r.Written {
			verb = "would rewrite"
		}
		return fmt.Sprintf("%s: %s %d markers (%d warnings)", r.Path, verb, r.Stats.Markers(), len(r.Warnings))
	default:
		return fmt.Sprintf("%s: unchanged", r.Path)
	}
}

// Report aggregates a processing run.
type Report struct {
	Root     string        `json:"root" yaml:"root"`
	Files    []FileReport  `json:"files" yaml:"files"`
	Totals   *smell.Stats  `json:"totals" yaml:"totals"`
	Changed  int           `json:"changed" yaml:"changed"`
	Failed   int           `json:"failed" yaml:"failed"`
	Warnings int           `json:"warnings" yaml:"warnings"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// String returns a short summary of the run.
func (r *Report) String() string {
	return fmt.Sprintf("%d files, %d changed, %d failed, %d markers, %d warnings in %v",
		len(r.Files), r.Changed, r.Failed, r.Totals.Markers(), r.Warnings, r.Duration.Round(time.Millisecond))
}

// Err returns an error summarizing per-file failures, or nil.
func (r *Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	var errs []error
	for _, f := range r.Files {
		if f.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", f.Path, f.Error))
		}
	}
	return errors.Join(errs...)
}

// Processor runs post-render hooks over site files.
type Processor struct {
	root   string
	config Config
	hooks  *hook.Registry
}

// New creates a processor for the site rooted at root.
func New(root string, cfg Config, hooks *hook.Registry) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("site root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site root %s is not a directory", root)
	}
	return &Processor{root: root, config: cfg, hooks: hooks}, nil
}

// Root returns the site root.
func (p *Processor) Root() string {
	return p.root
}

// Match reports whether the file at rel (relative to the root) is selected.
func (p *Processor) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	return matchAny(p.config.Include, rel) && !p.excluded(rel)
}

// excluded reports whether rel or any of its parent directories matches an
// exclude pattern.
func (p *Processor) excluded(rel string) bool {
	for dir := rel; dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		if matchAny(p.config.Exclude, dir) {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, rel string) bool {
	base := path.Base(rel)
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Files lists the selected files under the root in lexical order.
func (p *Processor) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(p.root, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(p.root, fpath)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && p.excluded(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && p.Match(rel) {
			files = append(files, fpath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", p.root, err)
	}
	return files, nil
}

// Run processes every selected file under the root.
func (p *Processor) Run(ctx context.Context) (*Report, error) {
	files, err := p.Files(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("site files selected", "root", p.root, "count", len(files))
	return p.ProcessFiles(ctx, files)
}

// ProcessFiles processes the given files with a bounded worker pool. A
// failure on one file is recorded in its report and does not stop the
// others; a cancelled context stops the run and is returned.
func (p *Processor) ProcessFiles(ctx context.Context, files []string) (*Report, error) {
	start := time.Now()
	reports := make([]FileReport, len(files))

	sem := make(chan struct{}, p.config.Concurrency)
	var wg sync.WaitGroup

	for i, f := range files {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, f string) {
			defer wg.Done()
			defer func() { <-sem }()
			reports[i] = p.ProcessFile(ctx, f)
		}(i, f)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Root:   p.root,
		Files:  reports,
		Totals: smell.NewStats(),
	}
	for _, r := range reports {
		report.Totals.Add(r.Stats)
		report.Warnings += len(r.Warnings)
		if r.Changed {
			report.Changed++
		}
		if r.Error != "" {
			report.Failed++
		}
	}
	sort.Slice(report.Files, func(i, j int) bool { return report.Files[i].Path < report.Files[j].Path })
	report.Duration = time.Since(start)

	logger.Info("site processed",
		"root", p.root,
		"files", len(files),
		"changed", report.Changed,
		"failed", report.Failed,
		"markers", report.Totals.Markers())
	return report, nil
}

// ProcessFile runs the hooks over one file and writes it back if the output
// changed.
func (p *Processor) ProcessFile(ctx context.Context, fpath string) FileReport {
	report := FileReport{Path: p.display(fpath)}

	data, err := os.ReadFile(fpath)
	if err != nil {
		report.Error = err.Error()
		logger.Warn("read failed", "path", report.Path, "error", err)
		return report
	}

	original := string(data)
	page := hook.NewPage(report.Path, original)

	if err := p.hooks.Trigger(ctx, hook.PostRender, page); err != nil {
		report.Error = err.Error()
		return report
	}

	report.Stats = page.Stats
	report.Warnings = page.Warnings
	report.Changed = page.Output != original
	for _, w := range page.Warnings {
		logger.Warn("marker warning", "path", report.Path, "warning", w.String())
	}

	if !report.Changed || p.config.DryRun {
		return report
	}

	if err := writeFile(fpath, page.Output); err != nil {
		report.Error = err.Error()
		logger.Warn("write failed", "path", report.Path, "error", err)
		return report
	}
	report.Written = true
	logger.Debug("file rewritten", "path", report.Path, "markers", page.Stats.Markers())

	if err := p.hooks.Trigger(ctx, hook.PostWrite, page); err != nil {
		report.Error = err.Error()
	}
	return report
}

// display returns fpath relative to the root when possible.
func (p *Processor) display(fpath string) string {
	if rel, err := filepath.Rel(p.root, fpath); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return fpath
}

// writeFile replaces fpath atomically, keeping its permissions.
func writeFile(fpath, content string) error {
	info, err := os.Stat(fpath)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fpath), "."+filepath.Base(fpath)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fpath)
}
