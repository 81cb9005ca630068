package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes each record as its own YAML document, so a long audit
// can be read back as a stream while it is still running.
type YAMLWriter struct {
	w    *bufio.Writer
	enc  *yaml.Encoder
	docs int
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: bufio.NewWriter(w)}
}

// Write encodes a single record as one document.
func (w *YAMLWriter) Write(data any) error {
	if w.enc == nil {
		// A fresh encoder does not separate its first document from
		// whatever an earlier one wrote.
		if w.docs > 0 {
			if _, err := w.w.WriteString("---\n"); err != nil {
				return err
			}
		}
		w.enc = yaml.NewEncoder(w.w)
		w.enc.SetIndent(2)
	}
	if err := w.enc.Encode(data); err != nil {
		return err
	}
	w.docs++
	return nil
}

// Flush ends the current document stream and writes it out.
func (w *YAMLWriter) Flush() error {
	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			return err
		}
		w.enc = nil
	}
	return w.w.Flush()
}
