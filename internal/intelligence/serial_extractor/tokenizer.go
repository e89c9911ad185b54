package serial_extractor

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TokenKind distinguishes literal serials from range expressions.
type TokenKind int

const (
	TokenLiteral TokenKind = iota
	TokenRange
)

// Token is one word of the input, or one range expression.
type Token struct {
	Kind TokenKind
	// Text is the word, or the whole "A to B" expression for TokenRange.
	Text string
	// RangeStart and RangeEnd are set for TokenRange.
	RangeStart string
	RangeEnd   string
}

// Tokenize splits text on commas and line breaks, then splits each segment
// into whitespace-separated words. A word followed by "to" (any case) and a
// further word forms a TokenRange; every other word is a TokenLiteral.
// Hyphens are always literal.
func Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	// NFKC first so full-width commas split like ASCII ones.
	text = norm.NFKC.String(text)

	segments := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	var tokens []Token
	for _, seg := range segments {
		tokens = appendWords(tokens, strings.Fields(seg))
	}
	return tokens
}

func appendWords(tokens []Token, words []string) []Token {
	for i := 0; i < len(words); {
		if i+2 >= len(words) || !isRangeKeyword(words[i+1]) {
			tokens = append(tokens, Token{Kind: TokenLiteral, Text: words[i]})
			i++
			continue
		}
		// A chained "A to B to C" stays one expression; the expander
		// rejects its end bound.
		j := i + 3
		for j+1 < len(words) && isRangeKeyword(words[j]) {
			j += 2
		}
		tokens = append(tokens, Token{
			Kind:       TokenRange,
			Text:       strings.Join(words[i:j], " "),
			RangeStart: words[i],
			RangeEnd:   strings.Join(words[i+2:j], " "),
		})
		i = j
	}
	return tokens
}

func isRangeKeyword(w string) bool { return strings.EqualFold(w, "to") }

//Personal.AI order the ending
