package valuation

import (
	"fmt"

	dErrors "aurum/pkg/domain-errors"
)

const (
	MinSplitParts = 1
	MaxSplitParts = 5
)

// Split distributes items round-robin: item i goes to batch i mod parts.
// Order within a batch follows input order and empty batches are dropped.
// The assignment is positional, not weight-balanced.
func Split[T any](items []T, parts int) ([][]T, error) {
	if parts < MinSplitParts || parts > MaxSplitParts {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("split parts must be between %d and %d", MinSplitParts, MaxSplitParts))
	}
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "nothing to split")
	}
	batches := make([][]T, parts)
	for i, item := range items {
		batches[i%parts] = append(batches[i%parts], item)
	}
	out := batches[:0]
	for _, b := range batches {
		if len(b) > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}
