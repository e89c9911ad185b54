// Package serial holds the SerialPattern aggregate: a named, optionally
// product-scoped rule that recognises or generates serial numbers.
package serial

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// PatternType is the closed set of recognition rule kinds.
type PatternType string

const (
	PatternTypePrefixSuffix PatternType = "prefix_suffix"
	PatternTypeRegex        PatternType = "regex"
	PatternTypeSequential   PatternType = "sequential"
	PatternTypeAlphanumeric PatternType = "alphanumeric"
)

// AllPatternTypes lists every PatternType in declaration order.
var AllPatternTypes = []PatternType{
	PatternTypePrefixSuffix,
	PatternTypeRegex,
	PatternTypeSequential,
	PatternTypeAlphanumeric,
}

// IsValid reports whether t is one of the known pattern types.
func (t PatternType) IsValid() bool {
	switch t {
	case PatternTypePrefixSuffix, PatternTypeRegex, PatternTypeSequential, PatternTypeAlphanumeric:
		return true
	}
	return false
}

// Specificity ranks pattern types for tie-breaking: regex and prefix_suffix
// outrank sequential and alphanumeric.
func (t PatternType) Specificity() int {
	switch t {
	case PatternTypeRegex, PatternTypePrefixSuffix:
		return 2
	case PatternTypeSequential, PatternTypeAlphanumeric:
		return 1
	}
	return 0
}

// MaxNameLength bounds SerialPattern.Name.
const MaxNameLength = 128

// MaxPadding bounds PrefixSuffixConfig.Padding.
const MaxPadding = 32

// ---------------------------------------------------------------------------
// Config variants
// ---------------------------------------------------------------------------

// PrefixSuffixConfig recognises prefix + integer in [Start, End] + suffix and
// generates prefix + zero_pad(n, Padding) + suffix.
type PrefixSuffixConfig struct {
	Prefix  string `json:"prefix" yaml:"prefix"`
	Suffix  string `json:"suffix" yaml:"suffix"`
	Padding int    `json:"padding" yaml:"padding"`
	Start   int64  `json:"start" yaml:"start"`
	End     int64  `json:"end" yaml:"end"`
}

// RegexConfig recognises tokens fully matched by Regex (RE2 syntax).
type RegexConfig struct {
	Regex string `json:"regex" yaml:"regex"`
}

// SequentialConfig recognises an optional fixed prefix followed by a run of
// digits whose length lies in [MinLength, MaxLength]. Zero bounds are open.
type SequentialConfig struct {
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	MinLength int    `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength int    `json:"max_length,omitempty" yaml:"max_length,omitempty"`
}

// AlphanumericConfig recognises tokens made of letters, digits and
// AllowedSymbols whose rune length lies in [MinLength, MaxLength].
type AlphanumericConfig struct {
	MinLength      int    `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength      int    `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	RequireLetter  bool   `json:"require_letter,omitempty" yaml:"require_letter,omitempty"`
	RequireDigit   bool   `json:"require_digit,omitempty" yaml:"require_digit,omitempty"`
	UppercaseOnly  bool   `json:"uppercase_only,omitempty" yaml:"uppercase_only,omitempty"`
	AllowedSymbols string `json:"allowed_symbols,omitempty" yaml:"allowed_symbols,omitempty"`
}

// PatternConfig is a tagged union: exactly one variant is non-nil and it must
// agree with the owning pattern's PatternType.
type PatternConfig struct {
	PrefixSuffix *PrefixSuffixConfig
	Regex        *RegexConfig
	Sequential   *SequentialConfig
	Alphanumeric *AlphanumericConfig
}

// PrefixSuffix wraps c as a PatternConfig.
func PrefixSuffix(c PrefixSuffixConfig) PatternConfig { return PatternConfig{PrefixSuffix: &c} }

// Regex wraps expr as a PatternConfig.
func Regex(expr string) PatternConfig { return PatternConfig{Regex: &RegexConfig{Regex: expr}} }

// Sequential wraps c as a PatternConfig.
func Sequential(c SequentialConfig) PatternConfig { return PatternConfig{Sequential: &c} }

// Alphanumeric wraps c as a PatternConfig.
func Alphanumeric(c AlphanumericConfig) PatternConfig { return PatternConfig{Alphanumeric: &c} }

// Type returns the tag of the populated variant.
func (c PatternConfig) Type() (PatternType, error) {
	var (
		t PatternType
		n int
	)
	if c.PrefixSuffix != nil {
		t, n = PatternTypePrefixSuffix, n+1
	}
	if c.Regex != nil {
		t, n = PatternTypeRegex, n+1
	}
	if c.Sequential != nil {
		t, n = PatternTypeSequential, n+1
	}
	if c.Alphanumeric != nil {
		t, n = PatternTypeAlphanumeric, n+1
	}
	if n != 1 {
		return "", errors.Newf(errors.ErrCodePatternConfigInvalid,
			"pattern config must populate exactly one variant, got %d", n)
	}
	return t, nil
}

// Variant returns the populated variant, or nil.
func (c PatternConfig) Variant() interface{} {
	switch {
	case c.PrefixSuffix != nil:
		return c.PrefixSuffix
	case c.Regex != nil:
		return c.Regex
	case c.Sequential != nil:
		return c.Sequential
	case c.Alphanumeric != nil:
		return c.Alphanumeric
	}
	return nil
}

// Validate checks that the populated variant matches t and is well formed.
func (c PatternConfig) Validate(t PatternType) error {
	got, err := c.Type()
	if err != nil {
		return err
	}
	if got != t {
		return errors.Newf(errors.ErrCodePatternConfigInvalid,
			"pattern_type %q does not match %s config", t, got)
	}
	switch t {
	case PatternTypePrefixSuffix:
		return c.PrefixSuffix.validate()
	case PatternTypeRegex:
		_, err := c.Regex.Compile()
		return err
	case PatternTypeSequential:
		return validateLengths(c.Sequential.MinLength, c.Sequential.MaxLength)
	case PatternTypeAlphanumeric:
		if err := validateLengths(c.Alphanumeric.MinLength, c.Alphanumeric.MaxLength); err != nil {
			return err
		}
		for _, r := range c.Alphanumeric.AllowedSymbols {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
				return errors.New(errors.ErrCodePatternConfigInvalid,
					"allowed_symbols must not contain letters, digits or whitespace")
			}
		}
	}
	return nil
}

func (c *PrefixSuffixConfig) validate() error {
	if c.Start < 0 {
		return errors.New(errors.ErrCodePatternConfigInvalid, "start must be non-negative")
	}
	if c.Start > c.End {
		return errors.Newf(errors.ErrCodePatternConfigInvalid,
			"start %d must not exceed end %d", c.Start, c.End)
	}
	if c.Padding < 0 || c.Padding > MaxPadding {
		return errors.Newf(errors.ErrCodePatternConfigInvalid,
			"padding must be within [0, %d]", MaxPadding)
	}
	return nil
}

// Compile compiles the expression with full-match semantics.
func (c *RegexConfig) Compile() (*regexp.Regexp, error) {
	if strings.TrimSpace(c.Regex) == "" {
		return nil, errors.New(errors.ErrCodePatternConfigInvalid, "regex must not be empty")
	}
	re, err := regexp.Compile(`^(?:` + c.Regex + `)$`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePatternConfigInvalid, "regex does not compile").
			WithDetail(c.Regex)
	}
	return re, nil
}

func validateLengths(min, max int) error {
	if min < 0 || max < 0 {
		return errors.New(errors.ErrCodePatternConfigInvalid, "lengths must be non-negative")
	}
	if max != 0 && max < min {
		return errors.Newf(errors.ErrCodePatternConfigInvalid,
			"max_length %d is below min_length %d", max, min)
	}
	return nil
}

// ---------------------------------------------------------------------------
// SerialPattern aggregate
// ---------------------------------------------------------------------------

// SerialPattern is a stored recognition/generation rule.
type SerialPattern struct {
	ID        int64
	Name      string
	Type      PatternType
	Config    PatternConfig
	ProductID *int64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSerialPattern builds an active pattern; the type is taken from cfg.
func NewSerialPattern(name string, cfg PatternConfig, productID *int64) (*SerialPattern, error) {
	t, err := cfg.Type()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p := &SerialPattern{
		Name:      strings.TrimSpace(name),
		Type:      t,
		Config:    cfg,
		ProductID: productID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks every invariant of the aggregate.
func (p *SerialPattern) Validate() error {
	if p.Name == "" {
		return errors.Validation("pattern name must not be empty")
	}
	if utf8.RuneCountInString(p.Name) > MaxNameLength {
		return errors.Validation(fmt.Sprintf("pattern name exceeds %d characters", MaxNameLength))
	}
	if !p.Type.IsValid() {
		return errors.Newf(errors.ErrCodePatternConfigInvalid, "unknown pattern_type %q", p.Type)
	}
	if p.ProductID != nil && *p.ProductID <= 0 {
		return errors.Validation("product_id must be positive")
	}
	return p.Config.Validate(p.Type)
}

// Activate re-enables the pattern for matching.
func (p *SerialPattern) Activate() {
	p.IsActive = true
	p.UpdatedAt = time.Now().UTC()
}

// Deactivate excludes the pattern from matching; it is kept for history.
func (p *SerialPattern) Deactivate() {
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
}

// IsGlobal reports whether the pattern has no product scope.
func (p *SerialPattern) IsGlobal() bool {
	return p.ProductID == nil
}

// AppliesTo reports whether the pattern is usable when matching for
// productID. Global patterns always apply; scoped patterns only for their
// own product. A nil productID selects global patterns only.
func (p *SerialPattern) AppliesTo(productID *int64) bool {
	if p.ProductID == nil {
		return true
	}
	return productID != nil && *p.ProductID == *productID
}

// DisplayName is the label used in results: the name, or "#<id>" if unnamed.
func (p *SerialPattern) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("#%d", p.ID)
}

//Personal.AI order the ending
