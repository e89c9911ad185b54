package serial_extractor

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxRangeSize caps range expansion and bulk generation.
const DefaultMaxRangeSize int64 = 100000

// maxDigits keeps parsed numbers inside int64.
const maxDigits = 18

// serialParts is a token split around its last run of ASCII digits.
type serialParts struct {
	Prefix string
	Digits string
	Suffix string
	Value  int64
}

// splitSerial splits tok into prefix, last digit run and trailing suffix.
func splitSerial(tok string) (serialParts, bool) {
	end := -1
	for i := len(tok) - 1; i >= 0; i-- {
		if isDigit(tok[i]) {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return serialParts{}, false
	}
	start := end - 1
	for start > 0 && isDigit(tok[start-1]) {
		start--
	}
	digits := tok[start:end]
	if len(digits) > maxDigits {
		return serialParts{}, false
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return serialParts{}, false
	}
	return serialParts{Prefix: tok[:start], Digits: digits, Suffix: tok[end:], Value: v}, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// padNumber renders n with at least width digits.
func padNumber(n int64, width int) string {
	s := strconv.FormatInt(n, 10)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// RangeExpander expands "A to B" expressions into inclusive sequences.
type RangeExpander struct {
	maxSize int64
}

// NewRangeExpander returns an expander capped at maxSize items; a
// non-positive maxSize selects DefaultMaxRangeSize.
func NewRangeExpander(maxSize int64) *RangeExpander {
	if maxSize <= 0 {
		maxSize = DefaultMaxRangeSize
	}
	return &RangeExpander{maxSize: maxSize}
}

// MaxSize returns the configured cap.
func (e *RangeExpander) MaxSize() int64 { return e.maxSize }

// Expand produces start..end inclusive, zero-padded to the start token's
// digit width with prefix and suffix preserved. A non-nil failure means
// nothing was produced.
func (e *RangeExpander) Expand(start, end string) ([]string, *ParseFailure) {
	expr := start + " to " + end
	fail := func(kind FailureKind, format string, args ...interface{}) ([]string, *ParseFailure) {
		return nil, &ParseFailure{Expression: expr, Reason: fmt.Sprintf(format, args...), Kind: kind}
	}

	if start == "" || end == "" || strings.ContainsRune(start, ' ') || strings.ContainsRune(end, ' ') {
		return fail(FailureUnparseable, "range bounds must be single tokens")
	}
	a, ok := splitSerial(start)
	if !ok {
		return fail(FailureUnparseable, "start %q has no numeric part", start)
	}
	b, ok := splitSerial(end)
	if !ok {
		return fail(FailureUnparseable, "end %q has no numeric part", end)
	}
	if a.Prefix != b.Prefix {
		return fail(FailurePrefixMismatch, "prefix mismatch: %q vs %q", a.Prefix, b.Prefix)
	}
	if a.Suffix != b.Suffix {
		return fail(FailureSuffixMismatch, "suffix mismatch: %q vs %q", a.Suffix, b.Suffix)
	}
	if b.Value < a.Value {
		return fail(FailureReversed, "end %d is before start %d", b.Value, a.Value)
	}
	span := b.Value - a.Value
	if span >= e.maxSize {
		return fail(FailureCapacity, "range exceeds maximum of %d", e.maxSize)
	}

	width := len(a.Digits)
	out := make([]string, 0, span+1)
	for i := int64(0); i <= span; i++ {
		out = append(out, a.Prefix+padNumber(a.Value+i, width)+a.Suffix)
	}
	return out, nil
}

//Personal.AI order the ending
