package transform_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jmylchreest/smellmark/pkg/smell"
	"github.com/jmylchreest/smellmark/pkg/transform"
)

type failing struct{ err error }

func (f failing) Transform(string) (string, error) { return "", f.err }
func (f failing) Name() string                     { return "failing" }

func TestNoop(t *testing.T) {
	n := transform.NewNoop()
	out, err := n.Transform("<p>x</p>")
	if err != nil || out != "<p>x</p>" {
		t.Errorf("Transform() = %q, %v", out, err)
	}
	if n.Name() != "noop" {
		t.Errorf("Name() = %q", n.Name())
	}
}

func TestFunc(t *testing.T) {
	f := transform.Func("upper", strings.ToUpper)
	out, err := f.Transform("abc")
	if err != nil || out != "ABC" {
		t.Errorf("Transform() = %q, %v", out, err)
	}
	if f.Name() != "upper" {
		t.Errorf("Name() = %q", f.Name())
	}
}

func TestChain_AppliesInOrder(t *testing.T) {
	chain := transform.NewChain(
		smell.New(nil),
		transform.Func("wrap", func(s string) string { return "<pre>" + s + "</pre>" }),
	)

	out, err := chain.Transform(`<span class="s">"!!pink!!"</span>x<span class="s">"!!end!!"</span>`)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out != `<pre><span class=pink>x</span></pre>` {
		t.Errorf("Transform() = %q", out)
	}
	if chain.Name() != "chain(smell->wrap)" {
		t.Errorf("Name() = %q", chain.Name())
	}
}

func TestChain_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	chain := transform.NewChain(
		failing{err: boom},
		transform.Func("after", func(s string) string { called = true; return s }),
	)

	_, err := chain.Transform("x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "failing") {
		t.Errorf("error should name the failing stage: %v", err)
	}
	if called {
		t.Error("later stages should not run after an error")
	}
}

func TestChain_Empty(t *testing.T) {
	out, err := transform.NewChain().Transform("same")
	if err != nil || out != "same" {
		t.Errorf("Transform() = %q, %v", out, err)
	}
}
