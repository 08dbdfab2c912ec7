package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// PointStore persists ledgers, history and engagement state per account.
type PointStore interface {
	// LoadLedger returns the account's entries in insertion order.
	LoadLedger(ctx context.Context, account string) (*Ledger, error)

	// AddEntry persists a new ledger entry together with its earn transaction.
	AddEntry(ctx context.Context, account string, entry LedgerEntry, tx Transaction) error

	// ApplySpend draws down the allocated entries after a Use together with
	// its spend transaction, atomically. It fails with ErrLedgerConflict,
	// writing nothing, when an entry no longer holds its allocation.
	ApplySpend(ctx context.Context, account string, allocs []Allocation, tx Transaction) error

	// PurgeExpired deletes entries expired at t and returns the points they
	// held. tx is recorded with that amount when it is non-zero.
	PurgeExpired(ctx context.Context, account string, at time.Time, tx Transaction) (Amount, error)

	// Transactions lists the newest transactions first. limit <= 0 means all.
	Transactions(ctx context.Context, account string, limit int) ([]Transaction, error)

	// Accounts lists every account that has ledger entries.
	Accounts(ctx context.Context) ([]string, error)

	LoadStreak(ctx context.Context, account string) (Streak, error)
	SaveStreak(ctx context.Context, account string, s Streak) error

	Completions(ctx context.Context, account string) ([]SurveyCompletion, error)

	// AddCompletion returns ErrAlreadyAnswered if the survey was already
	// recorded for the account.
	AddCompletion(ctx context.Context, account string, c SurveyCompletion) error

	// LoadMissions returns the tracker stored for the given day (YYYY-MM-DD)
	// and whether one existed.
	LoadMissions(ctx context.Context, account, day string) (MissionTracker, bool, error)
	SaveMissions(ctx context.Context, account, day string, t MissionTracker) error
}

// SurveySource abstracts where survey content comes from.
type SurveySource interface {
	// Available returns surveys answerable at t, best reward per minute first.
	Available(ctx context.Context, at time.Time) ([]Survey, error)

	// ByCategory returns available surveys in one category.
	ByCategory(ctx context.Context, category SurveyCategory, at time.Time) ([]Survey, error)

	// Find returns a survey by ID or ErrSurveyNotFound.
	Find(ctx context.Context, id string) (Survey, error)
}
