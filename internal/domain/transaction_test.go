package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestTransactionReason(t *testing.T) {
	tests := []struct {
		reason TransactionReason
		earn   bool
		valid  bool
	}{
		{ReasonSurveyCompleted, true, true},
		{ReasonStreakBonus, true, true},
		{ReasonExchanged, false, true},
		{ReasonExpired, false, true},
		{"BOGUS", false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			if got := tt.reason.IsEarn(); got != tt.earn {
				t.Errorf("IsEarn() = %v, want %v", got, tt.earn)
			}
			if got := tt.reason.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestTransactionConstructors(t *testing.T) {
	earn := EarnTransaction("acct", MustAmount(10), ReasonDailyLogin, "", testNow.Add(day), testNow)
	if earn.Type != TxEarn || earn.ExpiresAt == nil || earn.ID == "" {
		t.Errorf("EarnTransaction = %+v", earn)
	}
	spend := SpendTransaction("acct", MustAmount(5), ReasonExchanged, "gift-card", testNow)
	if spend.Type != TxSpend || spend.ExpiresAt != nil || spend.Ref != "gift-card" {
		t.Errorf("SpendTransaction = %+v", spend)
	}
	exp := ExpireTransaction("acct", MustAmount(3), testNow)
	if exp.Type != TxExpire || exp.Reason != ReasonExpired {
		t.Errorf("ExpireTransaction = %+v", exp)
	}
}

func TestValidateAccount(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"alice", true},
		{"user-42@example.com", true},
		{"", false},
		{" alice", false},
		{"a/b", false},
		{`a\b`, false},
		{strings.Repeat("x", MaxAccountLength), true},
		{strings.Repeat("x", MaxAccountLength+1), false},
	}
	for _, tt := range tests {
		err := ValidateAccount(tt.id)
		if tt.valid && err != nil {
			t.Errorf("ValidateAccount(%q) error = %v", tt.id, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidAccount) {
			t.Errorf("ValidateAccount(%q) error = %v, want ErrInvalidAccount", tt.id, err)
		}
	}
}
