// Package transform defines the interface for string-to-string HTML
// rewriting stages and ways to compose them.
package transform

// Transformer rewrites rendered HTML.
type Transformer interface {
	// Transform returns the rewritten HTML.
	Transform(html string) (string, error)

	// Name returns the transformer type for logging/debugging.
	Name() string
}

// FuncTransformer adapts a plain string function to Transformer.
type FuncTransformer struct {
	name string
	fn   func(string) string
}

// Func wraps fn as a named Transformer that never fails.
func Func(name string, fn func(string) string) *FuncTransformer {
	return &FuncTransformer{name: name, fn: fn}
}

// Transform applies the wrapped function.
func (f *FuncTransformer) Transform(html string) (string, error) {
	return f.fn(html), nil
}

// Name returns the name given to Func.
func (f *FuncTransformer) Name() string {
	return f.name
}
