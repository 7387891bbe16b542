// Package valuation converts gold weight and purity into fine weight and
// prices bill lines. All arithmetic uses exact decimals so a stored line
// recomputes to identical figures.
package valuation

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Purity24K = "24K"
	Purity22K = "22K"
	Purity18K = "18K"
	Purity14K = "14K"
)

// DefaultPurityFactor applies to grades missing from the table. Unknown
// grades are priced as pure gold rather than rejected; callers that care can
// check the known flag returned by PurityFactor.
var DefaultPurityFactor = decimal.NewFromInt(1)

var purityFactors = map[string]decimal.Decimal{
	Purity24K: decimal.NewFromInt(1),
	Purity22K: decimal.RequireFromString("0.916"),
	Purity18K: decimal.RequireFromString("0.750"),
	Purity14K: decimal.RequireFromString("0.585"),
}

// NormalizePurity canonicalizes grade spellings: " 22k", "22 KT" and "22K"
// all become "22K". Unrecognized input is only trimmed and upper-cased.
func NormalizePurity(grade string) string {
	g := strings.ToUpper(strings.Join(strings.Fields(grade), ""))
	g = strings.TrimSuffix(g, "T")
	if _, ok := purityFactors[g]; ok {
		return g
	}
	return strings.ToUpper(strings.TrimSpace(grade))
}

// PurityFactor returns the fine-gold fraction for grade. known is false when
// DefaultPurityFactor was used.
func PurityFactor(grade string) (factor decimal.Decimal, known bool) {
	if f, ok := purityFactors[NormalizePurity(grade)]; ok {
		return f, true
	}
	return DefaultPurityFactor, false
}

// KnownPurities lists the table's grades from purest down.
func KnownPurities() []string {
	return []string{Purity24K, Purity22K, Purity18K, Purity14K}
}

// FineWeight is gross gold weight scaled to its 24k equivalent.
func FineWeight(gross decimal.Decimal, grade string) decimal.Decimal {
	f, _ := PurityFactor(grade)
	return gross.Mul(f)
}
