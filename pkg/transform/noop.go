package transform

// Noop passes content through without modification.
type Noop struct{}

// NewNoop creates a new no-op transformer.
func NewNoop() *Noop {
	return &Noop{}
}

// Transform returns the input unchanged.
func (n *Noop) Transform(html string) (string, error) {
	return html, nil
}

// Name returns the transformer type.
func (n *Noop) Name() string {
	return "noop"
}
