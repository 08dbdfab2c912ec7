package domain

import (
	"time"

	"github.com/google/uuid"
)

// ─── Transactions ───────────────────────────────────────────────────────────
// Every balance change is recorded as a transaction for the history view.
// The ledger itself only tracks what is left; the transaction log tracks why.

// TransactionType is the direction of a balance change.
type TransactionType string

const (
	TxEarn   TransactionType = "EARN"
	TxSpend  TransactionType = "SPEND"
	TxExpire TransactionType = "EXPIRE"
)

// TransactionReason is the business reason for a balance change.
type TransactionReason string

const (
	// Earn reasons
	ReasonSurveyCompleted  TransactionReason = "SURVEY_COMPLETED"
	ReasonDailyLogin       TransactionReason = "DAILY_LOGIN"
	ReasonStreakBonus      TransactionReason = "STREAK_BONUS"
	ReasonMissionCompleted TransactionReason = "MISSION_COMPLETED"
	ReasonReferralBonus    TransactionReason = "REFERRAL_BONUS"
	ReasonCampaignBonus    TransactionReason = "CAMPAIGN_BONUS"

	// Spend reasons
	ReasonExchanged TransactionReason = "EXCHANGED"
	ReasonExpired   TransactionReason = "EXPIRED"
)

var earnReasons = map[TransactionReason]bool{
	ReasonSurveyCompleted:  true,
	ReasonDailyLogin:       true,
	ReasonStreakBonus:      true,
	ReasonMissionCompleted: true,
	ReasonReferralBonus:    true,
	ReasonCampaignBonus:    true,
}

// IsEarn reports whether r is a reason for gaining points.
func (r TransactionReason) IsEarn() bool { return earnReasons[r] }

// Valid reports whether r is a known reason.
func (r TransactionReason) Valid() bool {
	return r.IsEarn() || r == ReasonExchanged || r == ReasonExpired
}

// Transaction is one row in an account's point history.
// Ref carries the reason's subject: a survey ID, mission ID, campaign name,
// exchange target or streak length.
type Transaction struct {
	ID        string            `json:"id"`
	Account   string            `json:"account"`
	Type      TransactionType   `json:"type"`
	Amount    Amount            `json:"amount"`
	Reason    TransactionReason `json:"reason"`
	Ref       string            `json:"ref,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// EarnTransaction records points gained, expiring at expiresAt.
func EarnTransaction(account string, amount Amount, reason TransactionReason, ref string, expiresAt, at time.Time) Transaction {
	exp := expiresAt
	return Transaction{
		ID:        uuid.NewString(),
		Account:   account,
		Type:      TxEarn,
		Amount:    amount,
		Reason:    reason,
		Ref:       ref,
		ExpiresAt: &exp,
		CreatedAt: at,
	}
}

// SpendTransaction records points used.
func SpendTransaction(account string, amount Amount, reason TransactionReason, ref string, at time.Time) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		Account:   account,
		Type:      TxSpend,
		Amount:    amount,
		Reason:    reason,
		Ref:       ref,
		CreatedAt: at,
	}
}

// ExpireTransaction records points forfeited to expiry.
func ExpireTransaction(account string, amount Amount, at time.Time) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		Account:   account,
		Type:      TxExpire,
		Amount:    amount,
		Reason:    ReasonExpired,
		CreatedAt: at,
	}
}
