package smell

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats captures what a single Highlight pass did.
type Stats struct {
	InputBytes  int `json:"input_bytes" yaml:"input_bytes"`
	OutputBytes int `json:"output_bytes" yaml:"output_bytes"`

	// Opened counts opening markers, Closed counts end markers.
	Opened int `json:"opened" yaml:"opened"`
	Closed int `json:"closed" yaml:"closed"`

	// Styles maps marker name -> number of opening markers.
	Styles map[string]int `json:"styles,omitempty" yaml:"styles,omitempty"`

	// Residual counts marker-looking text left after the rewrite.
	Residual int `json:"residual" yaml:"residual"`

	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// NewStats creates a Stats with initialized maps.
func NewStats() *Stats {
	return &Stats{
		Styles: make(map[string]int),
	}
}

// Markers returns the total number of markers rewritten.
func (s *Stats) Markers() int {
	return s.Opened + s.Closed
}

// Unbalanced returns opening markers minus end markers.
func (s *Stats) Unbalanced() int {
	return s.Opened - s.Closed
}

// Add accumulates other into s.
func (s *Stats) Add(other *Stats) {
	if other == nil {
		return
	}
	if s.Styles == nil {
		s.Styles = make(map[string]int)
	}
	s.InputBytes += other.InputBytes
	s.OutputBytes += other.OutputBytes
	s.Opened += other.Opened
	s.Closed += other.Closed
	s.Residual += other.Residual
	s.Duration += other.Duration
	for name, n := range other.Styles {
		s.Styles[name] += n
	}
}

// String returns a human-readable summary of the stats.
func (s *Stats) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Size: %s -> %s\n",
		humanize.Bytes(uint64(s.InputBytes)), humanize.Bytes(uint64(s.OutputBytes))))
	sb.WriteString(fmt.Sprintf("Markers: %d opened, %d closed\n", s.Opened, s.Closed))

	if len(s.Styles) > 0 {
		names := make([]string, 0, len(s.Styles))
		for name := range s.Styles {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s=%d", name, s.Styles[name])
		}
		sb.WriteString("Styles: ")
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString("\n")
	}

	if n := s.Unbalanced(); n != 0 {
		sb.WriteString(fmt.Sprintf("Unbalanced: %+d\n", n))
	}
	if s.Residual > 0 {
		sb.WriteString(fmt.Sprintf("Residual markers: %d\n", s.Residual))
	}

	sb.WriteString(fmt.Sprintf("Time: %v\n", s.Duration.Round(time.Microsecond)))
	return sb.String()
}

// Warning kinds.
const (
	WarnUnbalanced = "unbalanced"
	WarnResidual   = "residual"
)

// Warning is a non-fatal observation about the input. Warnings never change
// the output.
type Warning struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

// String returns a formatted warning message.
func (w Warning) String() string {
	if w.Context != "" {
		return fmt.Sprintf("[%s] %s (context: %s)", w.Kind, w.Message, w.Context)
	}
	return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
}

// Result contains the output of a Highlight pass.
type Result struct {
	Content  string    `json:"content" yaml:"content"`
	Stats    *Stats    `json:"stats" yaml:"stats"`
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Changed reports whether any marker was rewritten.
func (r *Result) Changed() bool {
	return r.Stats != nil && r.Stats.Markers() > 0
}

// HasWarnings returns true if any warnings were recorded.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// AddWarning adds a warning to the result.
func (r *Result) AddWarning(kind, message, context string) {
	r.Warnings = append(r.Warnings, Warning{
		Kind:    kind,
		Message: message,
		Context: context,
	})
}
