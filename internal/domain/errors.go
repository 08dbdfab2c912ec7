package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Amount errors
	ErrNegativeValue  = errors.New("point amount must not be negative")
	ErrAmountTooLarge = errors.New("point amount exceeds the maximum")

	// Ledger errors
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrInvalidAccount      = errors.New("invalid account id")
	ErrZeroAmount          = errors.New("point amount must be positive")
	ErrInvalidReason       = errors.New("reason not allowed for this operation")
	ErrLedgerConflict      = errors.New("ledger changed concurrently")

	// Survey errors
	ErrSurveyNotFound    = errors.New("survey not found")
	ErrSurveyExpired     = errors.New("survey has expired")
	ErrIncompleteAnswers = errors.New("answer count does not match question count")
	ErrInvalidAnswer     = errors.New("answer does not match question")
	ErrAlreadyAnswered   = errors.New("survey already answered")
	ErrInvalidCategory   = errors.New("unknown survey category")
)
