package smell

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Finding is a marker that is still visible as text in a rendered code block.
type Finding struct {
	// Name is the marker name between the !! pairs.
	Name string `json:"name" yaml:"name"`

	// Block is the zero-based index of the code block in document order.
	Block int `json:"block" yaml:"block"`

	// Class is the class attribute of the code block, usually the language.
	Class string `json:"class,omitempty" yaml:"class,omitempty"`

	// Snippet is the marker with some surrounding text.
	Snippet string `json:"snippet" yaml:"snippet"`
}

// String returns a one-line description of the finding.
func (f Finding) String() string {
	if f.Class != "" {
		return fmt.Sprintf("block %d (%s): !!%s!! in %q", f.Block, f.Class, f.Name, f.Snippet)
	}
	return fmt.Sprintf("block %d: !!%s!! in %q", f.Block, f.Name, f.Snippet)
}

// Scan reports markers left as visible text inside pre and code blocks.
//
// It looks at the text content rather than the markup, so it also finds
// markers whose quote and bangs the highlighter put in separate tokens, for
// example <span class="s">"</span><span class="err">!!</span>pink!!". Those no
// longer have the token shape a Highlighter rewrites.
func Scan(html string) ([]Finding, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var findings []Finding
	block := 0
	doc.Find("pre, code").Each(func(_ int, s *goquery.Selection) {
		// code inside pre is covered by the pre block
		if goquery.NodeName(s) == "code" && s.ParentsFiltered("pre").Length() > 0 {
			return
		}

		text := s.Text()
		class := blockClass(s)
		for _, m := range residualPattern.FindAllStringSubmatchIndex(text, -1) {
			findings = append(findings, Finding{
				Name:    text[m[2]:m[3]],
				Block:   block,
				Class:   class,
				Snippet: snippet(text, m[0], m[1]),
			})
		}
		block++
	})

	return findings, nil
}

// blockClass returns the class of the block or of its first code child.
func blockClass(s *goquery.Selection) string {
	if class, ok := s.Attr("class"); ok && class != "" {
		return class
	}
	if class, ok := s.Find("code").First().Attr("class"); ok {
		return class
	}
	return ""
}
