// Package strings provides normalization helpers for identifiers entered by
// staff (barcodes, tracking ids) and for id lists supplied to bulk commands.
package strings

import (
	"strings"
)

// NormalizeCode trims whitespace and upper-cases a scanned or typed code so
// that "b2 " and "B2" refer to the same barcode.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DedupeCodes normalizes each code, dropping empties and repeats. Order is preserved.
//
//	DedupeCodes([]string{" b1", "B2", "b1", ""})
//	// Returns: []string{"B1", "B2"}
func DedupeCodes(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		code := NormalizeCode(v)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		result = append(result, code)
	}
	return result
}

// Dedupe removes repeated values, keeping the first occurrence.
func Dedupe[T comparable](values []T) []T {
	if len(values) == 0 {
		return values
	}
	seen := make(map[T]struct{}, len(values))
	result := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
