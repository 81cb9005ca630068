// Package smell converts smell markers left in syntax-highlighted code blocks
// into highlight spans.
//
// Authors wrap a region of a fenced code block in "!!name!!" ... "!!end!!".
// The syntax highlighter tokenizes each marker as a string literal, so the
// rendered HTML carries it as <span class="s">"!!name!!"</span>. A Highlighter
// rewrites every such token into <span class=name> or, for "end", </span>.
package smell

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// NamePlaceholder is replaced with the marker name in Config.OpenTag.
const NamePlaceholder = "{name}"

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid smell config")

// Config controls how markers are recognised and what they become.
type Config struct {
	// TokenClass is the CSS class the highlighter gives string tokens.
	// Rouge uses "s".
	TokenClass string `json:"token_class" yaml:"token_class" validate:"required,excludesall=\"<>"`

	// EndName is the marker name that closes the current span.
	EndName string `json:"end_name" yaml:"end_name" validate:"required,excludes=!"`

	// OpenTag is the markup emitted for an opening marker. It must contain
	// NamePlaceholder, which is replaced verbatim with the marker name.
	OpenTag string `json:"open_tag" yaml:"open_tag" validate:"required,contains={name}"`

	// CloseTag is the markup emitted for the end marker.
	CloseTag string `json:"close_tag" yaml:"close_tag" validate:"required"`

	// WarnResidual reports marker-looking text that survived the rewrite.
	// It never changes the output.
	WarnResidual bool `json:"warn_residual" yaml:"warn_residual"`
}

// DefaultConfig returns the configuration matching Rouge output:
// <span class="s">"!!pink!!"</span> becomes <span class=pink>.
func DefaultConfig() *Config {
	return &Config{
		TokenClass:   "s",
		EndName:      "end",
		OpenTag:      "<span class=" + NamePlaceholder + ">",
		CloseTag:     "</span>",
		WarnResidual: true,
	}
}

// PresetRouge is an alias for DefaultConfig.
func PresetRouge() *Config {
	return DefaultConfig()
}

// PresetChroma targets Chroma's HTML formatter, which classes double-quoted
// string literals as "s2".
func PresetChroma() *Config {
	cfg := DefaultConfig()
	cfg.TokenClass = "s2"
	return cfg
}

// Preset returns a named preset. The empty name selects the default.
func Preset(name string) (*Config, error) {
	switch strings.ToLower(name) {
	case "", "default", "rouge":
		return PresetRouge(), nil
	case "chroma":
		return PresetChroma(), nil
	default:
		return nil, fmt.Errorf("%w: unknown preset %q (use rouge or chroma)", ErrInvalidConfig, name)
	}
}

// Merge returns a copy of c with the non-empty fields of other applied.
// WarnResidual is not merged: its zero value is meaningful.
func (c *Config) Merge(other *Config) *Config {
	merged := *c
	if other == nil {
		return &merged
	}
	if other.TokenClass != "" {
		merged.TokenClass = other.TokenClass
	}
	if other.EndName != "" {
		merged.EndName = other.EndName
	}
	if other.OpenTag != "" {
		merged.OpenTag = other.OpenTag
	}
	if other.CloseTag != "" {
		merged.CloseTag = other.CloseTag
	}
	return &merged
}

var validate = validator.New()

// Validate checks that the config can build a working Highlighter.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidConfig, e.Field(), e.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// fileConfig mirrors Config with a pointer for WarnResidual so an absent key
// can be told apart from false.
type fileConfig struct {
	Preset       string `yaml:"preset"`
	TokenClass   string `yaml:"token_class"`
	EndName      string `yaml:"end_name"`
	OpenTag      string `yaml:"open_tag"`
	CloseTag     string `yaml:"close_tag"`
	WarnResidual *bool  `yaml:"warn_residual"`
}

// ParseConfig decodes a YAML document on top of its preset (default rouge)
// and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	base, err := Preset(fc.Preset)
	if err != nil {
		return nil, err
	}
	cfg := base.Merge(&Config{
		TokenClass: fc.TokenClass,
		EndName:    fc.EndName,
		OpenTag:    fc.OpenTag,
		CloseTag:   fc.CloseTag,
	})
	if fc.WarnResidual != nil {
		cfg.WarnResidual = *fc.WarnResidual
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data)
}
