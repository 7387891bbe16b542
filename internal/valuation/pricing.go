package valuation

import (
	"strings"

	"github.com/shopspring/decimal"

	dErrors "aurum/pkg/domain-errors"
)

// PricingMode selects how gold value and making charges are computed.
type PricingMode string

const (
	// ModeSale prices the customer's gold at the bill rate.
	ModeSale PricingMode = "SALE"
	// ModeJobWork is customer-supplied gold: no gold value, making is a
	// fixed rate per gram of gross gold weight.
	ModeJobWork PricingMode = "JOB_WORK"
)

func ParsePricingMode(s string) (PricingMode, error) {
	switch m := PricingMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeSale, ModeJobWork:
		return m, nil
	case "":
		return "", dErrors.New(dErrors.CodeValidation, "pricing mode is required")
	default:
		return "", dErrors.New(dErrors.CodeValidation, "pricing mode must be SALE or JOB_WORK")
	}
}

var (
	// GoldTaxPercent is charged on gold value.
	GoldTaxPercent = decimal.NewFromInt(3)
	// DefaultMakingTaxPercent is the making-charge tax used when a line does not set one.
	DefaultMakingTaxPercent = decimal.NewFromInt(18)
)

// Input holds everything a line's figures derive from. Rate is per 10 g.
type Input struct {
	Purity           string          `json:"purity"`
	GrossWeight      decimal.Decimal `json:"gross_weight"`
	Rate             decimal.Decimal `json:"rate"`
	MakingPercent    decimal.Decimal `json:"making_percent"`
	FixedMakingRate  decimal.Decimal `json:"fixed_making_rate"`
	MakingTaxPercent decimal.Decimal `json:"making_tax_percent"`
}

// Line is a priced item: its inputs plus the figures computed from them.
type Line struct {
	Mode PricingMode `json:"mode"`
	Input

	PurityFactor decimal.Decimal `json:"purity_factor"`
	FineWeight   decimal.Decimal `json:"fine_weight"`
	GoldValue    decimal.Decimal `json:"gold_value"`
	MakingAmount decimal.Decimal `json:"making_amount"`
	GoldTax      decimal.Decimal `json:"gold_tax"`
	MakingTax    decimal.Decimal `json:"making_tax"`
	Total        decimal.Decimal `json:"total"`
}

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct.Shift(-2))
}

// Price computes one line.
//
//	sale:     goldValue = fine × rate/10, making = goldValue × making%/100
//	job work: goldValue = 0,              making = gross × fixedRate
//	total = goldValue + making + 3% of goldValue + makingTax% of making
func Price(mode PricingMode, in Input) (Line, error) {
	if err := validateInput(mode, in); err != nil {
		return Line{}, err
	}
	factor, _ := PurityFactor(in.Purity)
	line := Line{
		Mode:         mode,
		Input:        in,
		PurityFactor: factor,
		FineWeight:   in.GrossWeight.Mul(factor),
	}

	switch mode {
	case ModeSale:
		line.GoldValue = line.FineWeight.Mul(in.Rate.Shift(-1))
		line.MakingAmount = percentOf(line.GoldValue, in.MakingPercent)
	case ModeJobWork:
		line.GoldValue = decimal.Zero
		line.MakingAmount = in.GrossWeight.Mul(in.FixedMakingRate)
	}

	line.GoldTax = percentOf(line.GoldValue, GoldTaxPercent)
	line.MakingTax = percentOf(line.MakingAmount, in.MakingTaxPercent)
	line.Total = line.GoldValue.Add(line.MakingAmount).Add(line.GoldTax).Add(line.MakingTax)
	return line, nil
}

// Recompute prices the line again from its stored inputs.
func (l Line) Recompute() (Line, error) {
	return Price(l.Mode, l.Input)
}

// Matches reports whether every computed figure equals a fresh recomputation.
func (l Line) Matches() bool {
	r, err := l.Recompute()
	if err != nil {
		return false
	}
	return l.PurityFactor.Equal(r.PurityFactor) &&
		l.FineWeight.Equal(r.FineWeight) &&
		l.GoldValue.Equal(r.GoldValue) &&
		l.MakingAmount.Equal(r.MakingAmount) &&
		l.GoldTax.Equal(r.GoldTax) &&
		l.MakingTax.Equal(r.MakingTax) &&
		l.Total.Equal(r.Total)
}

func validateInput(mode PricingMode, in Input) error {
	switch {
	case mode != ModeSale && mode != ModeJobWork:
		return dErrors.New(dErrors.CodeValidation, "pricing mode must be SALE or JOB_WORK")
	case !in.GrossWeight.IsPositive():
		return dErrors.New(dErrors.CodeValidation, "gross weight must be positive")
	case in.MakingTaxPercent.IsNegative():
		return dErrors.New(dErrors.CodeValidation, "making tax percent must not be negative")
	}
	if mode == ModeSale {
		if !in.Rate.IsPositive() {
			return dErrors.New(dErrors.CodeValidation, "gold rate must be positive for a sale")
		}
		if in.MakingPercent.IsNegative() {
			return dErrors.New(dErrors.CodeValidation, "making percent must not be negative")
		}
		return nil
	}
	if in.FixedMakingRate.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "fixed making rate must not be negative")
	}
	return nil
}

// Totals are bill-level sums of line figures.
type Totals struct {
	FineWeight   decimal.Decimal `json:"fine_weight"`
	GoldValue    decimal.Decimal `json:"gold_value"`
	MakingAmount decimal.Decimal `json:"making_amount"`
	GoldTax      decimal.Decimal `json:"gold_tax"`
	MakingTax    decimal.Decimal `json:"making_tax"`
	Total        decimal.Decimal `json:"total"`
}

func Sum(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.FineWeight = t.FineWeight.Add(l.FineWeight)
		t.GoldValue = t.GoldValue.Add(l.GoldValue)
		t.MakingAmount = t.MakingAmount.Add(l.MakingAmount)
		t.GoldTax = t.GoldTax.Add(l.GoldTax)
		t.MakingTax = t.MakingTax.Add(l.MakingTax)
		t.Total = t.Total.Add(l.Total)
	}
	return t
}
