package hook

import (
	"strings"

	"github.com/jmylchreest/smellmark/pkg/smell"
)

// DefaultExcerptSeparator marks the end of a post's excerpt in rendered output.
const DefaultExcerptSeparator = "<!--more-->"

// Page is the rendered page handed to hooks. Hooks may reassign Output and
// Excerpt.Output.
type Page struct {
	// Path is the source or output path of the page.
	Path string

	// URL is the page's public URL, if known.
	URL string

	// Output is the rendered HTML of the whole page.
	Output string

	// Excerpt is the rendered excerpt, or nil when the page has none.
	Excerpt *Excerpt

	// Stats accumulates marker counts from the smell hook across both fields.
	Stats *smell.Stats

	// Warnings collects non-fatal observations from hooks.
	Warnings []smell.Warning
}

// Excerpt is the rendered excerpt of a page.
type Excerpt struct {
	Output string
}

// NewPage creates a page for rendered output.
func NewPage(path, output string) *Page {
	return &Page{
		Path:   path,
		Output: output,
		Stats:  smell.NewStats(),
	}
}

// ExcerptFromOutput returns the part of output before separator, or nil if
// the separator does not occur. An empty separator selects
// DefaultExcerptSeparator.
func ExcerptFromOutput(output, separator string) *Excerpt {
	if separator == "" {
		separator = DefaultExcerptSeparator
	}
	head, _, found := strings.Cut(output, separator)
	if !found {
		return nil
	}
	return &Excerpt{Output: head}
}
