package hook

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jmylchreest/smellmark/pkg/smell"
	"github.com/jmylchreest/smellmark/pkg/transform"
)

const (
	openMarker = `<span class="s">"!!pink!!"</span>`
	endMarker  = `<span class="s">"!!end!!"</span>`
)

func TestDefault_RewritesOutputAndExcerpt(t *testing.T) {
	page := NewPage("post.html", "<p>intro "+openMarker+"x"+endMarker+"</p><!--more--><p>"+openMarker+"y"+endMarker+"</p>")
	page.Excerpt = &Excerpt{Output: "<p>intro " + openMarker + "x" + endMarker + "</p>"}

	if err := Default(nil).Trigger(context.Background(), PostRender, page); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	wantOutput := "<p>intro <span class=pink>x</span></p><!--more--><p><span class=pink>y</span></p>"
	if page.Output != wantOutput {
		t.Errorf("Output = %q, want %q", page.Output, wantOutput)
	}
	if page.Excerpt.Output != "<p>intro <span class=pink>x</span></p>" {
		t.Errorf("Excerpt.Output = %q", page.Excerpt.Output)
	}
	if page.Stats.Opened != 2 || page.Stats.Closed != 2 {
		t.Errorf("stats should count the output once: %+v", page.Stats)
	}
}

func TestSmellHook_NoExcerpt(t *testing.T) {
	page := &Page{Output: openMarker + "x" + endMarker}

	if err := SmellHook(smell.New(nil))(context.Background(), page); err != nil {
		t.Fatalf("hook error = %v", err)
	}
	if page.Output != "<span class=pink>x</span>" {
		t.Errorf("Output = %q", page.Output)
	}
	if page.Excerpt != nil {
		t.Error("Excerpt should stay nil")
	}
	if page.Stats == nil || page.Stats.Markers() != 2 {
		t.Errorf("unexpected stats %+v", page.Stats)
	}
}

func TestSmellHook_CollectsWarnings(t *testing.T) {
	page := NewPage("p.html", openMarker+"dangling")

	if err := SmellHook(smell.New(nil))(context.Background(), page); err != nil {
		t.Fatalf("hook error = %v", err)
	}
	if len(page.Warnings) != 1 || page.Warnings[0].Kind != smell.WarnUnbalanced {
		t.Errorf("expected one unbalanced warning, got %v", page.Warnings)
	}
}

func TestRegistry_Order(t *testing.T) {
	r := NewRegistry()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		r.Register(PostRender, name, func(_ context.Context, p *Page) error {
			order = append(order, name)
			p.Output += name
			return nil
		})
	}

	page := &Page{}
	if err := r.Trigger(context.Background(), PostRender, page); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if strings.Join(order, "") != "abc" || page.Output != "abc" {
		t.Errorf("hooks ran out of order: %v, %q", order, page.Output)
	}
	if got := strings.Join(r.Names(PostRender), ","); got != "a,b,c" {
		t.Errorf("Names() = %q", got)
	}
}

func TestRegistry_OtherEventsNotRun(t *testing.T) {
	r := Default(nil)
	page := &Page{Output: openMarker}

	if err := r.Trigger(context.Background(), PreRender, page); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if page.Output != openMarker {
		t.Errorf("PreRender should not run post-render hooks, got %q", page.Output)
	}
}

func TestRegistry_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	ran := false
	r.Register(PostRender, "fails", func(context.Context, *Page) error { return boom })
	r.Register(PostRender, "after", func(context.Context, *Page) error { ran = true; return nil })

	err := r.Trigger(context.Background(), PostRender, &Page{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "fails") {
		t.Errorf("error should name the hook: %v", err)
	}
	if ran {
		t.Error("hooks after a failure should not run")
	}
}

func TestRegistry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &Page{Output: openMarker}
	err := Default(nil).Trigger(ctx, PostRender, page)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if page.Output != openMarker {
		t.Error("page should be untouched after cancellation")
	}
}

func TestRegistry_ConcurrentTrigger(t *testing.T) {
	r := Default(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page := NewPage("p.html", openMarker+"x"+endMarker)
			if err := r.Trigger(context.Background(), PostRender, page); err != nil {
				t.Errorf("Trigger() error = %v", err)
				return
			}
			if page.Output != "<span class=pink>x</span>" {
				t.Errorf("Output = %q", page.Output)
			}
		}()
	}
	wg.Wait()
}

func TestTransformHook(t *testing.T) {
	page := &Page{Output: "a", Excerpt: &Excerpt{Output: "b"}}
	hook := TransformHook(transform.Func("upper", strings.ToUpper))

	if err := hook(context.Background(), page); err != nil {
		t.Fatalf("hook error = %v", err)
	}
	if page.Output != "A" || page.Excerpt.Output != "B" {
		t.Errorf("got %q / %q", page.Output, page.Excerpt.Output)
	}
}

// excerptRejecter fails on any input that lacks the full-page marker.
type excerptRejecter struct{}

func (excerptRejecter) Transform(html string) (string, error) {
	if !strings.Contains(html, "<!--more-->") {
		return "", errors.New("excerpt rejected")
	}
	return strings.ToUpper(html), nil
}

func (excerptRejecter) Name() string { return "excerpt-rejecter" }

func TestTransformHook_FailureLeavesPageUntouched(t *testing.T) {
	page := &Page{Output: "<p>a</p><!--more--><p>b</p>", Excerpt: &Excerpt{Output: "<p>a</p>"}}

	err := TransformHook(excerptRejecter{})(context.Background(), page)
	if err == nil {
		t.Fatal("expected error from excerpt transform")
	}
	if page.Output != "<p>a</p><!--more--><p>b</p>" {
		t.Errorf("Output changed to %q after a failed transform", page.Output)
	}
	if page.Excerpt.Output != "<p>a</p>" {
		t.Errorf("Excerpt changed to %q after a failed transform", page.Excerpt.Output)
	}
}

func TestExcerptFromOutput(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		separator string
		want      *Excerpt
	}{
		{"default separator", "<p>a</p><!--more--><p>b</p>", "", &Excerpt{Output: "<p>a</p>"}},
		{"custom separator", "<p>a</p><hr><p>b</p>", "<hr>", &Excerpt{Output: "<p>a</p>"}},
		{"missing separator", "<p>a</p>", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExcerptFromOutput(tt.output, tt.separator)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ExcerptFromOutput() = %v, want %v", got, tt.want)
			}
			if got != nil && got.Output != tt.want.Output {
				t.Errorf("Output = %q, want %q", got.Output, tt.want.Output)
			}
		})
	}
}
