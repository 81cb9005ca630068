package smell

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// residualPattern finds marker text that the rewrite did not recognise, for
// example a marker whose bangs landed in a separate token.
var residualPattern = regexp.MustCompile(`!!([^!\s<>"]+)!!`)

// maxResidualWarnings caps the residual warnings attached to one Result.
const maxResidualWarnings = 20

// Highlighter rewrites marker tokens into highlight spans.
// A Highlighter is immutable and safe for concurrent use.
type Highlighter struct {
	config  *Config
	pattern *regexp.Regexp
}

// New creates a Highlighter with the given configuration.
// If config is nil, DefaultConfig() is used. Config is not validated here;
// call Config.Validate first when it comes from user input.
func New(config *Config) *Highlighter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Highlighter{
		config:  config,
		pattern: markerPattern(config.TokenClass),
	}
}

// markerPattern matches <span class="CLASS">"!!NAME!!"</span>, capturing NAME.
func markerPattern(tokenClass string) *regexp.Regexp {
	return regexp.MustCompile(
		regexp.QuoteMeta(`<span class="`+tokenClass+`">"!!`) +
			`([^!]+)` +
			regexp.QuoteMeta(`!!"</span>`))
}

var defaultHighlighter = New(nil)

// Highlight rewrites markers in html using the default configuration.
func Highlight(html string) string {
	return defaultHighlighter.Highlight(html)
}

// Config returns the highlighter's configuration.
func (h *Highlighter) Config() *Config {
	return h.config
}

// Name returns the transformer name for logging.
func (h *Highlighter) Name() string {
	return "smell"
}

// Transform rewrites markers in html. It never returns an error; the
// signature lets a Highlighter sit in a transform chain.
func (h *Highlighter) Transform(html string) (string, error) {
	return h.Highlight(html), nil
}

// Highlight rewrites every marker token in html. Text that does not match is
// returned untouched, in its original position.
func (h *Highlighter) Highlight(html string) string {
	return h.pattern.ReplaceAllStringFunc(html, func(match string) string {
		return h.replacement(h.name(match))
	})
}

// HighlightWithStats rewrites markers and reports what was done.
func (h *Highlighter) HighlightWithStats(html string) *Result {
	start := time.Now()
	result := &Result{Stats: NewStats()}
	result.Stats.InputBytes = len(html)

	result.Content = h.pattern.ReplaceAllStringFunc(html, func(match string) string {
		name := h.name(match)
		if name == h.config.EndName {
			result.Stats.Closed++
		} else {
			result.Stats.Opened++
			result.Stats.Styles[name]++
		}
		return h.replacement(name)
	})
	result.Stats.OutputBytes = len(result.Content)

	if n := result.Stats.Unbalanced(); n != 0 {
		result.AddWarning(WarnUnbalanced, "opening and end markers do not pair up", "")
	}
	if h.config.WarnResidual {
		h.checkResidual(result)
	}

	result.Stats.Duration = time.Since(start)
	return result
}

// name extracts the marker name from a full pattern match.
func (h *Highlighter) name(match string) string {
	sub := h.pattern.FindStringSubmatch(match)
	if len(sub) < 2 {
		return ""
	}
	return sub[1]
}

func (h *Highlighter) replacement(name string) string {
	if name == h.config.EndName {
		return h.config.CloseTag
	}
	return strings.ReplaceAll(h.config.OpenTag, NamePlaceholder, name)
}

func (h *Highlighter) checkResidual(result *Result) {
	matches := residualPattern.FindAllStringIndex(result.Content, -1)
	result.Stats.Residual = len(matches)
	for i, m := range matches {
		if i == maxResidualWarnings {
			result.AddWarning(WarnResidual, "further residual markers omitted", "")
			break
		}
		result.AddWarning(WarnResidual, "marker text left unconverted",
			snippet(result.Content, m[0], m[1]))
	}
}

// snippet returns the match plus a little surrounding text on one line.
func snippet(s string, start, end int) string {
	const pad = 24
	from := max(start-pad, 0)
	for from > 0 && !utf8.RuneStart(s[from]) {
		from--
	}
	to := min(end+pad, len(s))
	for to < len(s) && !utf8.RuneStart(s[to]) {
		to++
	}
	return strings.Join(strings.Fields(s[from:to]), " ")
}
