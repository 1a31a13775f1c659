package domain

import "errors"

var (
	// ErrProfileIncomplete is returned when the salary record is entirely
	// absent. Gross salary anchors both regimes; every other category is
	// optional and defaults to zero.
	ErrProfileIncomplete = errors.New("financial profile incomplete: no salary record")

	// ErrInvalidAmount is returned for negative or unparseable monetary
	// input, before any computation runs.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrRuleSetNotFound is returned when no rule set is configured for a
	// requested (regime, assessment year) pair. Rules from another year are
	// never substituted.
	ErrRuleSetNotFound = errors.New("regime rule set not found")

	// ErrNotFound is returned when a requested record does not exist. For
	// comparisons this is the expected state before the first generation.
	ErrNotFound = errors.New("record not found")
)
