package sentinel

import "errors"

// Sentinel errors for storage facts. The catalog returns these (optionally
// wrapped) and services translate them into coded domain errors:
//   - ErrNotFound: no row with the requested key
//   - ErrConflict: a unique attribute (barcode, invoice, username) is taken
//   - ErrInvalidState: the stored row cannot accept the requested change
//
// For validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)
