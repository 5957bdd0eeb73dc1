package repository

import "errors"

var (
	// ErrNewsNotFound is returned when a sentiment update references an
	// article id that does not exist. This indicates a caller bug.
	ErrNewsNotFound = errors.New("news article not found")

	// ErrDuplicateCostRecord is returned when a cost record with the same
	// call id already exists. Callers treat it as already handled.
	ErrDuplicateCostRecord = errors.New("duplicate cost record")

	// ErrUnparsableResponse marks a scorer response that did not match the
	// expected schema. Retried once with a stricter instruction.
	ErrUnparsableResponse = errors.New("unparsable scorer response")
)
