package site

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmylchreest/smellmark/pkg/hook"
)

const markedPost = `<html><body><pre><code>` +
	`<span class="s">"!!pink!!"</span>dup()<span class="s">"!!end!!"</span>` +
	`</code></pre></body></html>`

const highlightedPost = `<html><body><pre><code>` +
	`<span class=pink>dup()</span>` +
	`</code></pre></body></html>`

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o640); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readFile(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestProcessor_Run(t *testing.T) {
	root := writeSite(t, map[string]string{
		"index.html":                   "<p>home</p>",
		"2024/01/smells.html":          markedPost,
		"assets/app.js":                `var x = "!!pink!!";`,
		"node_modules/pkg/readme.html": markedPost,
	})

	p, err := New(root, DefaultConfig(), hook.Default(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(report.Files), report.Files)
	}
	if report.Files[0].Path != "2024/01/smells.html" || report.Files[1].Path != "index.html" {
		t.Errorf("unexpected file order: %s, %s", report.Files[0].Path, report.Files[1].Path)
	}
	if report.Changed != 1 || report.Failed != 0 {
		t.Errorf("Changed = %d, Failed = %d", report.Changed, report.Failed)
	}
	if report.Totals.Markers() != 2 {
		t.Errorf("total markers = %d, want 2", report.Totals.Markers())
	}
	if report.Err() != nil {
		t.Errorf("Err() = %v", report.Err())
	}

	if got := readFile(t, root, "2024/01/smells.html"); got != highlightedPost {
		t.Errorf("file not rewritten: %q", got)
	}
	if got := readFile(t, root, "assets/app.js"); got != `var x = "!!pink!!";` {
		t.Error("non-HTML file should not be touched")
	}
	if got := readFile(t, root, "node_modules/pkg/readme.html"); got != markedPost {
		t.Error("excluded directory should not be touched")
	}
}

func TestProcessor_PreservesMode(t *testing.T) {
	root := writeSite(t, map[string]string{"post.html": markedPost})

	p, err := New(root, DefaultConfig(), hook.Default(nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(root, "post.html"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestProcessor_DryRun(t *testing.T) {
	root := writeSite(t, map[string]string{"post.html": markedPost})

	cfg := DefaultConfig()
	cfg.DryRun = true
	p, err := New(root, cfg, hook.Default(nil))
	if err != nil {
		t.Fatal(err)
	}

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Changed != 1 || report.Files[0].Written {
		t.Errorf("unexpected report: %+v", report.Files[0])
	}
	if !strings.Contains(report.Files[0].String(), "would rewrite 2 markers") {
		t.Errorf("String() = %q", report.Files[0].String())
	}
	if got := readFile(t, root, "post.html"); got != markedPost {
		t.Error("dry run must not write")
	}
}

func TestProcessor_Idempotent(t *testing.T) {
	root := writeSite(t, map[string]string{"post.html": markedPost})
	p, err := New(root, DefaultConfig(), hook.Default(nil))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Changed != 0 {
		t.Errorf("second run should change nothing, changed %d", report.Changed)
	}
}

func TestProcessor_HookErrorRecorded(t *testing.T) {
	root := writeSite(t, map[string]string{"a.html": markedPost, "b.html": markedPost})

	boom := errors.New("boom")
	hooks := hook.NewRegistry()
	hooks.Register(hook.PostRender, "picky", func(_ context.Context, page *hook.Page) error {
		if page.Path == "a.html" {
			return boom
		}
		return nil
	})

	p, err := New(root, DefaultConfig(), hooks)
	if err != nil {
		t.Fatal(err)
	}
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("per-file errors should not fail the run: %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Failed)
	}
	if err := report.Err(); err == nil || !strings.Contains(err.Error(), "a.html") {
		t.Errorf("Err() = %v", err)
	}
}

func TestProcessor_PostWriteHook(t *testing.T) {
	root := writeSite(t, map[string]string{"a.html": markedPost, "b.html": "<p>plain</p>"})

	hooks := hook.Default(nil)
	var written []string
	hooks.Register(hook.PostWrite, "record", func(_ context.Context, page *hook.Page) error {
		written = append(written, page.Path)
		return nil
	})

	cfg := DefaultConfig()
	cfg.Concurrency = 1
	p, err := New(root, cfg, hooks)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(written) != 1 || written[0] != "a.html" {
		t.Errorf("PostWrite ran for %v, want [a.html]", written)
	}
}

func TestProcessor_CancelledContext(t *testing.T) {
	root := writeSite(t, map[string]string{"a.html": markedPost})
	p, err := New(root, DefaultConfig(), hook.Default(nil))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if got := readFile(t, root, "a.html"); got != markedPost {
		t.Error("cancelled run must not write")
	}
}

func TestProcessor_Match(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude = append(cfg.Exclude, "drafts/*", "tag")
	p, err := New(t.TempDir(), cfg, hook.Default(nil))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		rel  string
		want bool
	}{
		{"index.html", true},
		{"blog/post.htm", true},
		{"feed.xml", false},
		{"drafts/wip.html", false},
		{"tag/go/index.html", false},
		{".git/hooks/x.html", false},
		{"blog/tags.html", true},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if got := p.Match(tt.rel); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	t.Run("bad pattern", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Include = []string{"[html"}
		if _, err := New(t.TempDir(), cfg, hook.Default(nil)); err == nil {
			t.Error("expected invalid pattern error")
		}
	})

	t.Run("missing root", func(t *testing.T) {
		if _, err := New(filepath.Join(t.TempDir(), "nope"), DefaultConfig(), hook.Default(nil)); err == nil {
			t.Error("expected error for missing root")
		}
	})

	t.Run("root is a file", func(t *testing.T) {
		root := writeSite(t, map[string]string{"a.html": "x"})
		if _, err := New(filepath.Join(root, "a.html"), DefaultConfig(), hook.Default(nil)); err == nil {
			t.Error("expected error for file root")
		}
	})
}
