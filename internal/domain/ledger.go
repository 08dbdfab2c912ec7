package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// ─── Ledger ─────────────────────────────────────────────────────────────────
// The ledger holds one entry per earn event. Each entry expires on its own
// schedule, and spending consumes the soonest-to-expire points first so that
// as little as possible is lost to expiry.
//
// Expired entries are excluded at read time; they stay in the slice until
// PurgeExpired removes them.

// LedgerEntry is a single earn event and how much of it is left.
type LedgerEntry struct {
	ID        string    `json:"id"`
	Original  Amount    `json:"original"`
	Remaining Amount    `json:"remaining"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ActiveAt reports whether the entry still counts toward the balance at t.
func (e LedgerEntry) ActiveAt(t time.Time) bool {
	return e.ExpiresAt.After(t)
}

// Allocation records how much a Use call took from one entry.
type Allocation struct {
	EntryID   string `json:"entry_id"`
	Amount    Amount `json:"amount"`
	Remaining Amount `json:"remaining"`
}

// ExpiringEntry is the public view of an entry that is about to expire.
type ExpiringEntry struct {
	EntryID   string    `json:"entry_id"`
	Amount    Amount    `json:"amount"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Ledger is an insertion-ordered collection of expiring point entries.
// It is not safe for concurrent mutation; callers serialize access.
type Ledger struct {
	entries []LedgerEntry
	now     func() time.Time // injectable clock for CreatedAt
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// SetClock replaces the clock used to stamp new entries.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// Add appends a new entry with the full amount remaining.
func (l *Ledger) Add(amount Amount, expiresAt time.Time) LedgerEntry {
	entry := LedgerEntry{
		ID:        uuid.NewString(),
		Original:  amount,
		Remaining: amount,
		ExpiresAt: expiresAt,
		CreatedAt: l.clock(),
	}
	l.entries = append(l.entries, entry)
	return entry
}

// Restore appends a previously persisted entry unchanged.
func (l *Ledger) Restore(entry LedgerEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	l.entries = append(l.entries, entry)
}

// Len returns the number of entries, expired ones included.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of all entries in insertion order.
func (l *Ledger) Entries() []LedgerEntry {
	return slices.Clone(l.entries)
}

// Total sums remaining points across every entry, expired ones included.
func (l *Ledger) Total() Amount {
	var total Amount
	for _, e := range l.entries {
		total = total.Add(e.Remaining)
	}
	return total
}

// AvailableTotal sums remaining points over entries still active at t.
func (l *Ledger) AvailableTotal(at time.Time) Amount {
	var total Amount
	for _, e := range l.entries {
		if e.ActiveAt(at) {
			total = total.Add(e.Remaining)
		}
	}
	return total
}

// Use spends amount at the given instant, soonest-to-expire first.
// Either the full amount is allocated or no entry is touched.
func (l *Ledger) Use(amount Amount, at time.Time) error {
	_, err := l.UseAllocations(amount, at)
	return err
}

// UseAllocations is Use but also reports which entries were drawn down.
func (l *Ledger) UseAllocations(amount Amount, at time.Time) ([]Allocation, error) {
	if l.AvailableTotal(at).Less(amount) {
		return nil, ErrInsufficientBalance
	}
	if amount.IsZero() {
		return nil, nil
	}

	order := make([]int, 0, len(l.entries))
	for i, e := range l.entries {
		if e.ActiveAt(at) && !e.Remaining.IsZero() {
			order = append(order, i)
		}
	}
	// Stable: equal expiries keep insertion order.
	slices.SortStableFunc(order, func(a, b int) int {
		return l.entries[a].ExpiresAt.Compare(l.entries[b].ExpiresAt)
	})

	var allocs []Allocation
	left := amount
	for _, idx := range order {
		if left.IsZero() {
			break
		}
		e := &l.entries[idx]
		take := e.Remaining.Min(left)
		e.Remaining = e.Remaining.SubClamped(take)
		left = left.SubClamped(take)
		allocs = append(allocs, Allocation{
			EntryID:   e.ID,
			Amount:    take,
			Remaining: e.Remaining,
		})
	}
	return allocs, nil
}

// ExpiringWithin sums remaining points expiring in (at, at+d].
func (l *Ledger) ExpiringWithin(d time.Duration, at time.Time) Amount {
	deadline := at.Add(d)
	var total Amount
	for _, e := range l.entries {
		if e.ActiveAt(at) && !e.ExpiresAt.After(deadline) {
			total = total.Add(e.Remaining)
		}
	}
	return total
}

// ExpiringEntries lists non-empty entries expiring in (at, deadline], in ledger order.
func (l *Ledger) ExpiringEntries(at, deadline time.Time) []ExpiringEntry {
	var out []ExpiringEntry
	for _, e := range l.entries {
		if !e.ActiveAt(at) || e.ExpiresAt.After(deadline) || e.Remaining.IsZero() {
			continue
		}
		out = append(out, ExpiringEntry{
			EntryID:   e.ID,
			Amount:    e.Remaining,
			ExpiresAt: e.ExpiresAt,
		})
	}
	return out
}

// PurgeExpired drops entries with ExpiresAt <= at and returns the points
// they still held. Calling it twice with the same instant is a no-op.
func (l *Ledger) PurgeExpired(at time.Time) Amount {
	var forfeited Amount
	l.entries = slices.DeleteFunc(l.entries, func(e LedgerEntry) bool {
		if e.ActiveAt(at) {
			return false
		}
		forfeited = forfeited.Add(e.Remaining)
		return true
	})
	return forfeited
}

func (l *Ledger) clock() time.Time {
	if l.now == nil {
		return time.Now()
	}
	return l.now()
}
