// Point ledger schema and operations.
// Persistence for ledger entries, the transaction log, login streaks,
// survey completions and daily missions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tutu-network/pointledger/internal/domain"
)

var _ domain.PointStore = (*DB)(nil)

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// One row per earn event. seq preserves insertion order.
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			account    TEXT NOT NULL,
			original   INTEGER NOT NULL CHECK (original >= 0),
			remaining  INTEGER NOT NULL CHECK (remaining >= 0 AND remaining <= original),
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_entries(account, expires_at)`,

		// Append-only history
		`CREATE TABLE IF NOT EXISTS transactions (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			account    TEXT NOT NULL,
			type       TEXT NOT NULL,
			amount     INTEGER NOT NULL CHECK (amount >= 0),
			reason     TEXT NOT NULL,
			ref        TEXT NOT NULL DEFAULT '',
			expires_at TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_account ON transactions(account, created_at)`,

		// Login streaks
		`CREATE TABLE IF NOT EXISTS streaks (
			account      TEXT PRIMARY KEY,
			current_days INTEGER NOT NULL DEFAULT 0,
			max_days     INTEGER NOT NULL DEFAULT 0,
			last_login   TEXT
		)`,

		// Survey completions: one per account and survey
		`CREATE TABLE IF NOT EXISTS survey_completions (
			id           TEXT PRIMARY KEY,
			account      TEXT NOT NULL,
			survey_id    TEXT NOT NULL,
			earned       INTEGER NOT NULL CHECK (earned >= 0),
			completed_at TEXT NOT NULL,
			duration_ms  INTEGER NOT NULL DEFAULT 0,
			UNIQUE(account, survey_id)
		)`,

		// Daily mission progress, keyed by calendar day
		`CREATE TABLE IF NOT EXISTS daily_missions (
			account       TEXT NOT NULL,
			day           TEXT NOT NULL,
			missions_json TEXT NOT NULL DEFAULT '[]',
			updated_at    TEXT NOT NULL,
			PRIMARY KEY (account, day)
		)`,
	}
}

// ─── Ledger Operations ──────────────────────────────────────────────────────

// LoadLedger rebuilds an account's ledger in insertion order.
func (db *DB) LoadLedger(ctx context.Context, account string) (*domain.Ledger, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, original, remaining, expires_at, created_at
		FROM ledger_entries WHERE account = ? ORDER BY seq
	`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ledger := domain.NewLedger()
	for rows.Next() {
		var (
			e                  domain.LedgerEntry
			original, remain   int64
			expiresAt, created string
		)
		if err := rows.Scan(&e.ID, &original, &remain, &expiresAt, &created); err != nil {
			return nil, err
		}
		if e.Original, err = domain.NewAmount(original); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		if e.Remaining, err = domain.NewAmount(remain); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		if e.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return nil, fmt.Errorf("entry %s expires_at: %w", e.ID, err)
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("entry %s created_at: %w", e.ID, err)
		}
		ledger.Restore(e)
	}
	return ledger, rows.Err()
}

// AddEntry inserts a new entry and its earn transaction atomically.
func (db *DB) AddEntry(ctx context.Context, account string, e domain.LedgerEntry, t domain.Transaction) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (id, account, original, remaining, expires_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.ID, account, e.Original.Value(), e.Remaining.Value(), formatTime(e.ExpiresAt), formatTime(e.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		return insertTransaction(ctx, tx, t)
	})
}

// ApplySpend draws each allocation down and records the spend transaction
// atomically. Every update is conditional on the entry still holding the
// allocated points and not having expired, so a spend computed from a stale
// ledger (another process spent or purged first) rolls back with
// domain.ErrLedgerConflict instead of overwriting newer balances.
func (db *DB) ApplySpend(ctx context.Context, account string, allocs []domain.Allocation, t domain.Transaction) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, a := range allocs {
			res, err := tx.ExecContext(ctx, `
				UPDATE ledger_entries SET remaining = remaining - ?
				WHERE id = ? AND account = ? AND remaining >= ? AND expires_at > ?
			`, a.Amount.Value(), a.EntryID, account, a.Amount.Value(), formatTime(t.CreatedAt))
			if err != nil {
				return fmt.Errorf("update entry %s: %w", a.EntryID, err)
			}
			if n, _ := res.RowsAffected(); n != 1 {
				return fmt.Errorf("entry %s: %w", a.EntryID, domain.ErrLedgerConflict)
			}
		}
		return insertTransaction(ctx, tx, t)
	})
}

// PurgeExpired removes entries expired at t and returns the points they
// still held, as reported by the delete itself. The expire transaction t is
// recorded with that amount, and only when it is non-zero.
func (db *DB) PurgeExpired(ctx context.Context, account string, at time.Time, t domain.Transaction) (domain.Amount, error) {
	var forfeited domain.Amount
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		forfeited = domain.Zero
		rows, err := tx.QueryContext(ctx, `
			DELETE FROM ledger_entries WHERE account = ? AND expires_at <= ?
			RETURNING remaining
		`, account, formatTime(at))
		if err != nil {
			return fmt.Errorf("delete expired: %w", err)
		}
		for rows.Next() {
			var v int64
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return fmt.Errorf("delete expired: %w", err)
			}
			remaining, err := domain.NewAmount(v)
			if err != nil {
				rows.Close()
				return fmt.Errorf("delete expired: %w", err)
			}
			forfeited = forfeited.Add(remaining)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("delete expired: %w", err)
		}

		if forfeited.IsZero() {
			return nil
		}
		t.Amount = forfeited
		return insertTransaction(ctx, tx, t)
	})
	if err != nil {
		return domain.Zero, err
	}
	return forfeited, nil
}

// Accounts lists every account with at least one ledger entry.
func (db *DB) Accounts(ctx context.Context) ([]string, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT DISTINCT account FROM ledger_entries ORDER BY account
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ─── Transaction Log ────────────────────────────────────────────────────────

func insertTransaction(ctx context.Context, tx *sql.Tx, t domain.Transaction) error {
	var expires *string
	if t.ExpiresAt != nil {
		s := formatTime(*t.ExpiresAt)
		expires = &s
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account, type, amount, reason, ref, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Account, string(t.Type), t.Amount.Value(), string(t.Reason), t.Ref, expires, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Transactions returns the newest transactions first. limit <= 0 means all.
func (db *DB) Transactions(ctx context.Context, account string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account, type, amount, reason, ref, expires_at, created_at
		FROM transactions WHERE account = ?
		ORDER BY created_at DESC, seq DESC LIMIT ?
	`, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			t           domain.Transaction
			typ, reason string
			amount      int64
			expires     sql.NullString
			created     string
		)
		if err := rows.Scan(&t.ID, &t.Account, &typ, &amount, &reason, &t.Ref, &expires, &created); err != nil {
			return nil, err
		}
		t.Type = domain.TransactionType(typ)
		t.Reason = domain.TransactionReason(reason)
		if t.Amount, err = domain.NewAmount(amount); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		if expires.Valid {
			exp, err := parseTime(expires.String)
			if err != nil {
				return nil, fmt.Errorf("transaction %s expires_at: %w", t.ID, err)
			}
			t.ExpiresAt = &exp
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("transaction %s created_at: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ─── Streak Operations ──────────────────────────────────────────────────────

// LoadStreak returns the account's streak, or a zero streak if none exists.
func (db *DB) LoadStreak(ctx context.Context, account string) (domain.Streak, error) {
	var (
		s    domain.Streak
		last sql.NullString
	)
	err := db.db.QueryRowContext(ctx, `
		SELECT current_days, max_days, last_login FROM streaks WHERE account = ?
	`, account).Scan(&s.CurrentDays, &s.MaxDays, &last)
	if err == sql.ErrNoRows {
		return domain.Streak{}, nil
	}
	if err != nil {
		return domain.Streak{}, err
	}
	if last.Valid {
		t, err := time.Parse(time.RFC3339Nano, last.String)
		if err != nil {
			return domain.Streak{}, fmt.Errorf("streak last_login: %w", err)
		}
		s.LastLogin = &t
	}
	return s, nil
}

// SaveStreak upserts the account's streak. last_login keeps its original
// zone offset because calendar days depend on it.
func (db *DB) SaveStreak(ctx context.Context, account string, s domain.Streak) error {
	var last *string
	if s.LastLogin != nil {
		v := s.LastLogin.Format(time.RFC3339Nano)
		last = &v
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO streaks (account, current_days, max_days, last_login)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			current_days = excluded.current_days,
			max_days     = excluded.max_days,
			last_login   = excluded.last_login
	`, account, s.CurrentDays, s.MaxDays, last)
	return err
}

// ─── Survey Completion Operations ───────────────────────────────────────────

// AddCompletion records a survey completion once per account.
func (db *DB) AddCompletion(ctx context.Context, account string, c domain.SurveyCompletion) error {
	res, err := db.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO survey_completions (id, account, survey_id, earned, completed_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, account, c.SurveyID, c.EarnedPoints.Value(), formatTime(c.CompletedAt), c.Duration.Milliseconds())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyAnswered
	}
	return nil
}

// Completions lists the account's completions oldest first.
func (db *DB) Completions(ctx context.Context, account string) ([]domain.SurveyCompletion, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, survey_id, earned, completed_at, duration_ms
		FROM survey_completions WHERE account = ? ORDER BY completed_at
	`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SurveyCompletion
	for rows.Next() {
		var (
			c          domain.SurveyCompletion
			earned     int64
			completed  string
			durationMs int64
		)
		if err := rows.Scan(&c.ID, &c.SurveyID, &earned, &completed, &durationMs); err != nil {
			return nil, err
		}
		if c.EarnedPoints, err = domain.NewAmount(earned); err != nil {
			return nil, err
		}
		if c.CompletedAt, err = parseTime(completed); err != nil {
			return nil, err
		}
		c.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, c)
	}
	return out, rows.Err()
}

// ─── Daily Mission Operations ───────────────────────────────────────────────

// LoadMissions returns the tracker saved for day, if any.
func (db *DB) LoadMissions(ctx context.Context, account, day string) (domain.MissionTracker, bool, error) {
	var raw string
	err := db.db.QueryRowContext(ctx, `
		SELECT missions_json FROM daily_missions WHERE account = ? AND day = ?
	`, account, day).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MissionTracker{}, false, nil
	}
	if err != nil {
		return domain.MissionTracker{}, false, err
	}
	var t domain.MissionTracker
	if err := json.Unmarshal([]byte(raw), &t.Missions); err != nil {
		return domain.MissionTracker{}, false, fmt.Errorf("decode missions: %w", err)
	}
	return t, true, nil
}

// SaveMissions upserts the tracker for day.
func (db *DB) SaveMissions(ctx context.Context, account, day string, t domain.MissionTracker) error {
	data, err := json.Marshal(t.Missions)
	if err != nil {
		return err
	}
	_, err = db.db.ExecContext(ctx, `
		INSERT INTO daily_missions (account, day, missions_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account, day) DO UPDATE SET
			missions_json = excluded.missions_json,
			updated_at    = excluded.updated_at
	`, account, day, string(data), formatTime(time.Now()))
	return err
}
