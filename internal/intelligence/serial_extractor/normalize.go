package serial_extractor

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC, trims and collapses runs of whitespace to a single
// space. Case is preserved.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return collapseSpace(norm.NFKC.String(s))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

//Personal.AI order the ending
