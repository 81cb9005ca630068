package hook

import (
	"context"

	"github.com/jmylchreest/smellmark/pkg/smell"
	"github.com/jmylchreest/smellmark/pkg/transform"
)

// SmellHookName is the name Default registers the smell hook under.
const SmellHookName = "smell"

// SmellHook rewrites markers in the page output and, when present, the
// excerpt output. No other field is touched except the page's stats and
// warnings.
func SmellHook(h *smell.Highlighter) Func {
	return func(_ context.Context, page *Page) error {
		if page.Stats == nil {
			page.Stats = smell.NewStats()
		}

		result := h.HighlightWithStats(page.Output)
		page.Output = result.Content
		page.Stats.Add(result.Stats)
		page.Warnings = append(page.Warnings, result.Warnings...)

		if page.Excerpt != nil {
			// The excerpt is usually a prefix of the output; count it once.
			page.Excerpt.Output = h.Highlight(page.Excerpt.Output)
		}
		return nil
	}
}

// TransformHook applies t to the page output and excerpt output. The page
// is only updated when both transforms succeed.
func TransformHook(t transform.Transformer) Func {
	return func(_ context.Context, page *Page) error {
		out, err := t.Transform(page.Output)
		if err != nil {
			return err
		}

		var excerpt string
		if page.Excerpt != nil {
			if excerpt, err = t.Transform(page.Excerpt.Output); err != nil {
				return err
			}
			page.Excerpt.Output = excerpt
		}
		page.Output = out
		return nil
	}
}

// Default returns a registry with the smell hook registered for PostRender.
// A nil highlighter uses the default configuration.
func Default(h *smell.Highlighter) *Registry {
	if h == nil {
		h = smell.New(nil)
	}
	r := NewRegistry()
	r.Register(PostRender, SmellHookName, SmellHook(h))
	return r
}
