package serial_extractor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
)

// ---------------------------------------------------------------------------
// Pattern order
// ---------------------------------------------------------------------------

// PatternOrder reports whether a should be consulted before b when two
// patterns of equal specificity both match.
type PatternOrder func(a, b *serial.SerialPattern) bool

// Names accepted by ParsePatternOrder.
const (
	OrderNameCreatedDesc = "created_desc"
	OrderNameCreatedAsc  = "created_asc"
	OrderNameNameAsc     = "name_asc"
	OrderNameIDAsc       = "id_asc"
)

// OrderCreatedDesc puts the most recently created pattern first; id desc
// breaks ties.
func OrderCreatedDesc(a, b *serial.SerialPattern) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// OrderCreatedAsc puts the oldest pattern first; id asc breaks ties.
func OrderCreatedAsc(a, b *serial.SerialPattern) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// OrderNameAsc sorts by name, then id.
func OrderNameAsc(a, b *serial.SerialPattern) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// OrderIDAsc sorts by id.
func OrderIDAsc(a, b *serial.SerialPattern) bool {
	return a.ID < b.ID
}

// ParsePatternOrder maps a configured order name to a PatternOrder. The
// empty string selects OrderCreatedDesc.
func ParsePatternOrder(name string) (PatternOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", OrderNameCreatedDesc:
		return OrderCreatedDesc, nil
	case OrderNameCreatedAsc:
		return OrderCreatedAsc, nil
	case OrderNameNameAsc:
		return OrderNameAsc, nil
	case OrderNameIDAsc:
		return OrderIDAsc, nil
	}
	return nil, fmt.Errorf("unknown pattern order %q", name)
}

// ---------------------------------------------------------------------------
// Pattern set
// ---------------------------------------------------------------------------

type compiledPattern struct {
	pattern *serial.SerialPattern
	rank    int
	re      *regexp.Regexp
}

// PatternSet is an immutable, ordered snapshot of the patterns usable for
// one scope, with regexes compiled. It is safe for concurrent use.
type PatternSet struct {
	patterns []compiledPattern
	skipped  []ParseFailure
}

// NewPatternSet keeps the active patterns that apply to productID, drops
// those with unusable configuration into Skipped, and orders the rest. A nil
// order selects OrderCreatedDesc.
func NewPatternSet(patterns []*serial.SerialPattern, productID *int64, order PatternOrder) *PatternSet {
	if order == nil {
		order = OrderCreatedDesc
	}
	usable := make([]*serial.SerialPattern, 0, len(patterns))
	for _, p := range patterns {
		if p != nil && p.IsActive && p.AppliesTo(productID) {
			usable = append(usable, p)
		}
	}
	sort.SliceStable(usable, func(i, j int) bool { return order(usable[i], usable[j]) })

	set := &PatternSet{patterns: make([]compiledPattern, 0, len(usable))}
	for _, p := range usable {
		cp, err := compilePattern(p)
		if err != nil {
			set.skipped = append(set.skipped, ParseFailure{
				Expression: p.DisplayName(),
				Reason:     err.Error(),
				Kind:       FailurePatternConfig,
			})
			continue
		}
		set.patterns = append(set.patterns, cp)
	}
	return set
}

func compilePattern(p *serial.SerialPattern) (compiledPattern, error) {
	if err := p.Config.Validate(p.Type); err != nil {
		return compiledPattern{}, err
	}
	cp := compiledPattern{pattern: p, rank: p.Type.Specificity()}
	if p.Type == serial.PatternTypeRegex {
		re, err := p.Config.Regex.Compile()
		if err != nil {
			return compiledPattern{}, err
		}
		cp.re = re
	}
	return cp, nil
}

// Len returns the number of usable patterns.
func (s *PatternSet) Len() int { return len(s.patterns) }

// Skipped lists the patterns excluded for invalid configuration.
func (s *PatternSet) Skipped() []ParseFailure {
	out := make([]ParseFailure, len(s.skipped))
	copy(out, s.skipped)
	return out
}

// Patterns returns the usable patterns in match order.
func (s *PatternSet) Patterns() []*serial.SerialPattern {
	out := make([]*serial.SerialPattern, len(s.patterns))
	for i, cp := range s.patterns {
		out[i] = cp.pattern
	}
	return out
}

// Match returns the best pattern for token: the highest specificity wins and
// the set's order breaks ties. It returns nil when nothing matches.
func (s *PatternSet) Match(token string) *serial.SerialPattern {
	if s == nil || token == "" {
		return nil
	}
	var best *compiledPattern
	for i := range s.patterns {
		cp := &s.patterns[i]
		if best != nil && cp.rank <= best.rank {
			continue
		}
		if !cp.matches(token) {
			continue
		}
		best = cp
		if best.rank == maxSpecificity {
			break
		}
	}
	if best == nil {
		return nil
	}
	return best.pattern
}

var maxSpecificity = serial.PatternTypeRegex.Specificity()

func (cp *compiledPattern) matches(token string) bool {
	cfg := cp.pattern.Config
	switch cp.pattern.Type {
	case serial.PatternTypeRegex:
		return cp.re.MatchString(token)
	case serial.PatternTypePrefixSuffix:
		return matchPrefixSuffix(cfg.PrefixSuffix, token)
	case serial.PatternTypeSequential:
		return matchSequential(cfg.Sequential, token)
	case serial.PatternTypeAlphanumeric:
		return matchAlphanumeric(cfg.Alphanumeric, token)
	}
	return false
}

func matchPrefixSuffix(c *serial.PrefixSuffixConfig, token string) bool {
	if len(token) <= len(c.Prefix)+len(c.Suffix) {
		return false
	}
	if !strings.HasPrefix(token, c.Prefix) || !strings.HasSuffix(token, c.Suffix) {
		return false
	}
	middle := token[len(c.Prefix) : len(token)-len(c.Suffix)]
	if !allDigits(middle) {
		return false
	}
	n, err := strconv.ParseInt(middle, 10, 64)
	if err != nil {
		return false
	}
	return n >= c.Start && n <= c.End
}

func matchSequential(c *serial.SequentialConfig, token string) bool {
	if !strings.HasPrefix(token, c.Prefix) {
		return false
	}
	digits := token[len(c.Prefix):]
	if !allDigits(digits) {
		return false
	}
	return withinLength(len(digits), c.MinLength, c.MaxLength)
}

func matchAlphanumeric(c *serial.AlphanumericConfig, token string) bool {
	var hasLetter, hasDigit bool
	for _, r := range token {
		switch {
		case unicode.IsLetter(r):
			if c.UppercaseOnly && unicode.IsLower(r) {
				return false
			}
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(c.AllowedSymbols, r):
		default:
			return false
		}
	}
	if c.RequireLetter && !hasLetter {
		return false
	}
	if c.RequireDigit && !hasDigit {
		return false
	}
	return withinLength(utf8.RuneCountInString(token), c.MinLength, c.MaxLength)
}

// withinLength treats zero bounds as open.
func withinLength(n, min, max int) bool {
	if min > 0 && n < min {
		return false
	}
	if max > 0 && n > max {
		return false
	}
	return true
}

//Personal.AI order the ending
