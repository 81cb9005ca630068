package transform

import (
	"fmt"
	"strings"
)

// Chain applies multiple transformers in sequence.
type Chain struct {
	transformers []Transformer
}

// NewChain creates a transformer that applies the given transformers in the
// order provided.
//
// Example:
//
//	chain := transform.NewChain(
//	    smell.New(smell.PresetChroma()),
//	    transform.Func("trim", strings.TrimSpace),
//	)
func NewChain(transformers ...Transformer) *Chain {
	return &Chain{
		transformers: transformers,
	}
}

// Transform applies all transformers in sequence, stopping at the first error.
func (c *Chain) Transform(html string) (string, error) {
	var err error
	for _, t := range c.transformers {
		html, err = t.Transform(html)
		if err != nil {
			return "", fmt.Errorf("%s: %w", t.Name(), err)
		}
	}
	return html, nil
}

// Name returns the names of all chained transformers.
func (c *Chain) Name() string {
	names := make([]string, len(c.transformers))
	for i, t := range c.transformers {
		names[i] = t.Name()
	}
	return "chain(" + strings.Join(names, "->") + ")"
}
