package serial_extractor

import (
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
)

// Confidence levels and heuristics thresholds.
const (
	ConfidencePatternMatch  = 0.9
	ConfidenceRegexMatch    = 0.95
	ConfidenceSerialLike    = 0.6
	ConfidencePlain         = 0.4
	ConfidenceOther         = 0.5
	ConfidenceShortCap      = 0.3
	HighConfidenceThreshold = 0.8
	MinSerialLikeLength     = 4
	ShortTokenLength        = 3
)

// Heuristic labels recorded under MetaHeuristic.
const (
	HeuristicPattern    = "pattern"
	HeuristicRegex      = "regex"
	HeuristicSerialLike = "serial_like"
	HeuristicPlain      = "plain"
	HeuristicOther      = "other"
	HeuristicShort      = "short"
)

// Thresholds holds the tunable scoring values.
type Thresholds struct {
	PatternMatch        float64 `json:"pattern_match" yaml:"pattern_match"`
	RegexMatch          float64 `json:"regex_match" yaml:"regex_match"`
	SerialLike          float64 `json:"serial_like" yaml:"serial_like"`
	Plain               float64 `json:"plain" yaml:"plain"`
	Other               float64 `json:"other" yaml:"other"`
	ShortCap            float64 `json:"short_cap" yaml:"short_cap"`
	High                float64 `json:"high" yaml:"high"`
	MinSerialLikeLength int     `json:"min_serial_like_length" yaml:"min_serial_like_length"`
	ShortTokenLength    int     `json:"short_token_length" yaml:"short_token_length"`
}

// DefaultThresholds returns the built-in scoring values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PatternMatch:        ConfidencePatternMatch,
		RegexMatch:          ConfidenceRegexMatch,
		SerialLike:          ConfidenceSerialLike,
		Plain:               ConfidencePlain,
		Other:               ConfidenceOther,
		ShortCap:            ConfidenceShortCap,
		High:                HighConfidenceThreshold,
		MinSerialLikeLength: MinSerialLikeLength,
		ShortTokenLength:    ShortTokenLength,
	}
}

// Scorer assigns heuristic confidence to tokens.
type Scorer struct {
	th Thresholds
}

// NewScorer returns a Scorer. Zero length thresholds take their defaults.
func NewScorer(th Thresholds) *Scorer {
	if th.MinSerialLikeLength <= 0 {
		th.MinSerialLikeLength = MinSerialLikeLength
	}
	if th.ShortTokenLength <= 0 {
		th.ShortTokenLength = ShortTokenLength
	}
	return &Scorer{th: th}
}

// Thresholds returns the scorer's configuration.
func (s *Scorer) Thresholds() Thresholds { return s.th }

// Score rates token given the pattern that matched it (nil if none). A
// caller-reported confidence, such as a barcode reader's, raises the score
// when higher. Short tokens are capped last, whatever the other inputs.
func (s *Scorer) Score(token string, matched *serial.SerialPattern, reported *float64) (float64, string) {
	score, label := s.base(token, matched)
	if reported != nil && clamp01(*reported) > score {
		score = clamp01(*reported)
	}
	if utf8.RuneCountInString(token) < s.th.ShortTokenLength && score > s.th.ShortCap {
		score, label = s.th.ShortCap, HeuristicShort
	}
	return clamp01(score), label
}

func (s *Scorer) base(token string, matched *serial.SerialPattern) (float64, string) {
	if matched != nil {
		if matched.Type == serial.PatternTypeRegex {
			return s.th.RegexMatch, HeuristicRegex
		}
		return s.th.PatternMatch, HeuristicPattern
	}

	var letters, digits, n int
	for _, r := range token {
		n++
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	switch {
	case letters > 0 && digits > 0 && n >= s.th.MinSerialLikeLength && !containsSpace(token):
		return s.th.SerialLike, HeuristicSerialLike
	case n > 0 && (digits == n || letters == n):
		return s.th.Plain, HeuristicPlain
	}
	return s.th.Other, HeuristicOther
}

// IsHigh reports whether c meets the high-confidence threshold.
func (s *Scorer) IsHigh(c float64) bool {
	return c >= s.th.High
}

func containsSpace(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

//Personal.AI order the ending
