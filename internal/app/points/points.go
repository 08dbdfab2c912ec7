// Package points is the application service around the point ledger.
//
// Every mutation follows the same path: lock the account, load its ledger
// from the store, apply the domain operation, persist the result together
// with a transaction record, then publish an event. Holding the per-account
// lock across the whole sequence keeps concurrent requests for one account
// from interleaving.
package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tutu-network/pointledger/internal/domain"
	"github.com/tutu-network/pointledger/internal/infra/observability"
)

// Config controls expiry defaults.
type Config struct {
	DefaultExpiry time.Duration // lifetime of earned points when the caller gives none
	AlertWindow   time.Duration // default look-ahead for alerts and "expiring soon"
}

// DefaultConfig returns production defaults: points live 180 days and
// alerts look 30 days ahead.
func DefaultConfig() Config {
	return Config{
		DefaultExpiry: 180 * 24 * time.Hour,
		AlertWindow:   30 * 24 * time.Hour,
	}
}

// ─── Events ─────────────────────────────────────────────────────────────────

// EventType names a ledger change.
type EventType string

const (
	EventEarned  EventType = "earned"
	EventSpent   EventType = "spent"
	EventExpired EventType = "expired"
)

// Event describes a committed ledger change.
type Event struct {
	Type      EventType                `json:"type"`
	Account   string                   `json:"account"`
	Amount    domain.Amount            `json:"amount"`
	Reason    domain.TransactionReason `json:"reason"`
	Available domain.Amount            `json:"available"`
	At        time.Time                `json:"at"`
}

// Publisher receives events after they are persisted.
// Publish must not block.
type Publisher interface {
	Publish(Event)
}

// ─── Service ────────────────────────────────────────────────────────────────

// Service coordinates ledger mutations for all accounts.
type Service struct {
	store  domain.PointStore
	config Config
	log    *zap.Logger
	now    func() time.Time
	locks  KeyedMutex
	pub    Publisher
}

// New creates a point service. A nil logger disables logging.
func New(store domain.PointStore, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.DefaultExpiry <= 0 {
		cfg.DefaultExpiry = def.DefaultExpiry
	}
	if cfg.AlertWindow <= 0 {
		cfg.AlertWindow = def.AlertWindow
	}
	return &Service{
		store:  store,
		config: cfg,
		log:    logger.Named("points"),
		now:    time.Now,
	}
}

// SetClock replaces the clock. For tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetPublisher registers the event sink. Call before serving requests.
func (s *Service) SetPublisher(p Publisher) { s.pub = p }

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.config }

// Now returns the service clock's current instant.
func (s *Service) Now() time.Time { return s.now() }

// EarnRequest describes a credit.
type EarnRequest struct {
	Amount    domain.Amount
	Reason    domain.TransactionReason
	Ref       string
	ExpiresIn time.Duration // <= 0 uses Config.DefaultExpiry
}

// Earn credits points to account as a new ledger entry.
func (s *Service) Earn(ctx context.Context, account string, req EarnRequest) (domain.Transaction, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return domain.Transaction{}, err
	}
	if req.Amount.IsZero() {
		return domain.Transaction{}, domain.ErrZeroAmount
	}
	if !req.Reason.IsEarn() {
		return domain.Transaction{}, fmt.Errorf("%w: %q is not an earn reason", domain.ErrInvalidReason, req.Reason)
	}
	expiresIn := req.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = s.config.DefaultExpiry
	}

	unlock := s.locks.Lock(account)
	defer unlock()

	ledger, err := s.load(ctx, account)
	if err != nil {
		return domain.Transaction{}, err
	}
	if _, ok := ledger.Total().CheckedAdd(req.Amount); !ok {
		return domain.Transaction{}, fmt.Errorf("%w: %s would push %s past %d", domain.ErrAmountTooLarge,
			req.Amount, account, domain.MaxAmount)
	}
	at := s.now()
	entry := ledger.Add(req.Amount, at.Add(expiresIn))
	tx := domain.EarnTransaction(account, req.Amount, req.Reason, req.Ref, entry.ExpiresAt, at)
	if err := s.store.AddEntry(ctx, account, entry, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("earn for %s: %w", account, err)
	}

	observability.RecordEarn(req.Reason, req.Amount)
	s.log.Debug("points earned",
		zap.String("account", account),
		zap.Int64("amount", req.Amount.Value()),
		zap.String("reason", string(req.Reason)),
		zap.Time("expires_at", entry.ExpiresAt))
	s.publish(Event{Type: EventEarned, Account: account, Amount: req.Amount,
		Reason: req.Reason, Available: ledger.AvailableTotal(at), At: at})
	return tx, nil
}

// SpendRequest describes a debit. An empty Reason means EXCHANGED.
type SpendRequest struct {
	Amount domain.Amount
	Reason domain.TransactionReason
	Ref    string
}

// Spend consumes points soonest-to-expire first. It fails with
// domain.ErrInsufficientBalance, leaving the ledger untouched, when the
// available balance does not cover the amount, and with
// domain.ErrLedgerConflict when concurrent writers keep invalidating it.
func (s *Service) Spend(ctx context.Context, account string, req SpendRequest) (domain.Transaction, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return domain.Transaction{}, err
	}
	if req.Amount.IsZero() {
		return domain.Transaction{}, domain.ErrZeroAmount
	}
	if req.Reason == "" {
		req.Reason = domain.ReasonExchanged
	}
	if req.Reason != domain.ReasonExchanged {
		return domain.Transaction{}, fmt.Errorf("%w: %q is not a spend reason", domain.ErrInvalidReason, req.Reason)
	}

	unlock := s.locks.Lock(account)
	defer unlock()

	// The in-process lock does not cover other processes sharing the
	// store; a conflicting write there means the ledger is reloaded.
	var err error
	for range maxSpendAttempts {
		var tx domain.Transaction
		tx, err = s.spend(ctx, account, req)
		if !errors.Is(err, domain.ErrLedgerConflict) {
			return tx, err
		}
		s.log.Debug("spend conflicted, reloading ledger", zap.String("account", account))
	}
	return domain.Transaction{}, err
}

// maxSpendAttempts bounds reloads after ErrLedgerConflict.
const maxSpendAttempts = 3

func (s *Service) spend(ctx context.Context, account string, req SpendRequest) (domain.Transaction, error) {
	ledger, err := s.load(ctx, account)
	if err != nil {
		return domain.Transaction{}, err
	}
	at := s.now()
	allocs, err := ledger.UseAllocations(req.Amount, at)
	if errors.Is(err, domain.ErrInsufficientBalance) {
		observability.InsufficientBalance.Inc()
		return domain.Transaction{}, fmt.Errorf("spend %s of %s available: %w",
			req.Amount, ledger.AvailableTotal(at), err)
	}
	if err != nil {
		return domain.Transaction{}, err
	}

	tx := domain.SpendTransaction(account, req.Amount, req.Reason, req.Ref, at)
	if err := s.store.ApplySpend(ctx, account, allocs, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("spend for %s: %w", account, err)
	}

	observability.RecordSpend(req.Reason, req.Amount)
	s.log.Debug("points spent",
		zap.String("account", account),
		zap.Int64("amount", req.Amount.Value()),
		zap.Int("entries", len(allocs)))
	s.publish(Event{Type: EventSpent, Account: account, Amount: req.Amount,
		Reason: req.Reason, Available: ledger.AvailableTotal(at), At: at})
	return tx, nil
}

// Balance is a point-in-time summary of an account.
type Balance struct {
	Account      string          `json:"account"`
	Total        domain.Amount   `json:"total"`
	Available    domain.Amount   `json:"available"`
	Currency     decimal.Decimal `json:"currency"`
	ExpiringSoon domain.Amount   `json:"expiring_soon"`
	Window       string          `json:"window"`
	At           time.Time       `json:"at"`
}

// Balance summarizes the account at the current instant.
func (s *Service) Balance(ctx context.Context, account string) (Balance, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return Balance{}, err
	}
	ledger, err := s.load(ctx, account)
	if err != nil {
		return Balance{}, err
	}
	at := s.now()
	available := ledger.AvailableTotal(at)
	return Balance{
		Account:      account,
		Total:        ledger.Total(),
		Available:    available,
		Currency:     available.ToCurrency(),
		ExpiringSoon: domain.TotalExpiring(ledger, s.config.AlertWindow, at),
		Window:       s.config.AlertWindow.String(),
		At:           at,
	}, nil
}

// Alerts lists entries expiring within the window, soonest first.
// within <= 0 uses Config.AlertWindow.
func (s *Service) Alerts(ctx context.Context, account string, within time.Duration) ([]domain.Alert, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return nil, err
	}
	if within <= 0 {
		within = s.config.AlertWindow
	}
	ledger, err := s.load(ctx, account)
	if err != nil {
		return nil, err
	}
	alerts := domain.GenerateAlerts(ledger, within, s.now())
	observability.RecordAlerts(alerts)
	return alerts, nil
}

// Transactions lists the account's history, newest first.
func (s *Service) Transactions(ctx context.Context, account string, limit int) ([]domain.Transaction, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return nil, err
	}
	return s.store.Transactions(ctx, account, limit)
}

// Purge removes the account's expired entries and returns the forfeited points.
func (s *Service) Purge(ctx context.Context, account string) (domain.Amount, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return domain.Zero, err
	}

	unlock := s.locks.Lock(account)
	defer unlock()

	ledger, err := s.load(ctx, account)
	if err != nil {
		return domain.Zero, err
	}
	before := ledger.Len()
	at := s.now()
	forfeited := ledger.PurgeExpired(at)
	if ledger.Len() == before {
		return domain.Zero, nil
	}

	// The store reports what it actually deleted, which differs from the
	// in-memory view when another process touched the account.
	tx := domain.ExpireTransaction(account, forfeited, at)
	if forfeited, err = s.store.PurgeExpired(ctx, account, at, tx); err != nil {
		return domain.Zero, fmt.Errorf("purge %s: %w", account, err)
	}
	if forfeited.IsZero() {
		return forfeited, nil
	}

	observability.RecordExpired(forfeited)
	s.log.Info("points expired",
		zap.String("account", account),
		zap.Int64("amount", forfeited.Value()),
		zap.Int("entries", before-ledger.Len()))
	s.publish(Event{Type: EventExpired, Account: account, Amount: forfeited,
		Reason: domain.ReasonExpired, Available: ledger.AvailableTotal(at), At: at})
	return forfeited, nil
}

// PurgeAll purges every account. It keeps going past per-account failures
// and returns them joined.
func (s *Service) PurgeAll(ctx context.Context) (domain.Amount, error) {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return domain.Zero, fmt.Errorf("list accounts: %w", err)
	}
	var (
		total domain.Amount
		errs  []error
	)
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		forfeited, err := s.Purge(ctx, account)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total = total.Add(forfeited)
	}
	return total, errors.Join(errs...)
}

// ─── Internal ───────────────────────────────────────────────────────────────

func (s *Service) load(ctx context.Context, account string) (*domain.Ledger, error) {
	ledger, err := s.store.LoadLedger(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", account, err)
	}
	ledger.SetClock(s.now)
	return ledger, nil
}

func (s *Service) publish(e Event) {
	if s.pub != nil {
		s.pub.Publish(e)
	}
}
