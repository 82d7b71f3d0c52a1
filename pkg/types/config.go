package types

import (
	"errors"
	"fmt"
)

// Config holds the user-tunable settings loaded from config.yaml, the
// environment and command-line flags.
type Config struct {
	OutputDir       string `json:"output_dir" yaml:"output_dir,omitempty" mapstructure:"output_dir"`
	Locale          string `json:"locale" yaml:"locale" mapstructure:"locale"`
	StrictDocuments bool   `json:"strict_documents" yaml:"strict_documents" mapstructure:"strict_documents"`
	KeepGoing       bool   `json:"keep_going" yaml:"keep_going" mapstructure:"keep_going"`
	UTC             bool   `json:"utc" yaml:"utc" mapstructure:"utc"`
}

// DefaultLocale is written into the android_metadata table of every
// extracted note.db.
const DefaultLocale = "en_GB"

// Config validation errors.
var (
	ErrLocaleEmpty   = errors.New("locale must not be empty")
	ErrLocaleInvalid = errors.New("locale must look like ll or ll_CC")
)

// DefaultConfig returns the configuration used when no config.yaml exists.
func DefaultConfig() Config {
	return Config{Locale: DefaultLocale}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Locale == "" {
		return ErrLocaleEmpty
	}
	if !validLocale(c.Locale) {
		return fmt.Errorf("%w: %q", ErrLocaleInvalid, c.Locale)
	}
	return nil
}

// validLocale accepts "en" and "en_GB" style identifiers.
func validLocale(s string) bool {
	isLower := func(b byte) bool { return b >= 'a' && b <= 'z' }
	isUpper := func(b byte) bool { return b >= 'A' && b <= 'Z' }
	switch len(s) {
	case 2:
		return isLower(s[0]) && isLower(s[1])
	case 5:
		return isLower(s[0]) && isLower(s[1]) && s[2] == '_' && isUpper(s[3]) && isUpper(s[4])
	default:
		return false
	}
}
