// Package textutil provides Unicode-aware text comparison for record search.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s in NFC form with Unicode case folding applied, so that
// "JOSÉ", "josé" and a decomposed "josé" fold to the same text.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// ContainsFold reports whether needle occurs in haystack, ignoring case.
// An empty needle is contained in every haystack.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}

// IsBlank reports whether s holds nothing but white space.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
