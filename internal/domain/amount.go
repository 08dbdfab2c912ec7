// Package domain contains the pure point-ledger business types.
// Nothing in here touches storage, transport or the clock directly;
// callers pass instants in explicitly.
package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PointsPerCurrencyUnit is the fixed exchange ratio: 10pt = 1 currency unit.
const PointsPerCurrencyUnit = 10

// MaxAmount is the largest representable point quantity, one quadrillion
// points. Sums saturate here so they can never wrap below zero.
const MaxAmount int64 = 1_000_000_000_000_000

// ─── Amount ─────────────────────────────────────────────────────────────────

// Amount is a non-negative integral point quantity. The zero value is 0pt.
type Amount struct {
	value int64
}

// Zero is the empty amount.
var Zero = Amount{}

// NewAmount validates v and returns it as an Amount.
func NewAmount(v int64) (Amount, error) {
	if v < 0 {
		return Amount{}, fmt.Errorf("%w: %d", ErrNegativeValue, v)
	}
	if v > MaxAmount {
		return Amount{}, fmt.Errorf("%w: %d", ErrAmountTooLarge, v)
	}
	return Amount{value: v}, nil
}

// MustAmount is NewAmount for constants and tests. It panics on invalid input.
func MustAmount(v int64) Amount {
	a, err := NewAmount(v)
	if err != nil {
		panic(err)
	}
	return a
}

// Value returns the raw point count.
func (a Amount) Value() int64 { return a.value }

// IsZero reports whether a is 0pt.
func (a Amount) IsZero() bool { return a.value == 0 }

// Add returns a + b, saturating at MaxAmount.
func (a Amount) Add(b Amount) Amount {
	if sum, ok := a.CheckedAdd(b); ok {
		return sum
	}
	return Amount{value: MaxAmount}
}

// CheckedAdd returns a + b, or ok=false when the sum exceeds MaxAmount.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	if b.value > MaxAmount-a.value {
		return Amount{}, false
	}
	return Amount{value: a.value + b.value}, true
}

// Sub returns a - b, or ok=false when the result would be negative.
func (a Amount) Sub(b Amount) (Amount, bool) {
	if b.value > a.value {
		return Amount{}, false
	}
	return Amount{value: a.value - b.value}, true
}

// SubClamped returns a - b, clamped to zero.
func (a Amount) SubClamped(b Amount) Amount {
	if r, ok := a.Sub(b); ok {
		return r
	}
	return Zero
}

// Min returns the smaller of a and b.
func (a Amount) Min(b Amount) Amount {
	if b.value < a.value {
		return b
	}
	return a
}

// Cmp returns -1, 0 or +1 comparing a to b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.value < b.value:
		return -1
	case a.value > b.value:
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and b hold the same number of points.
func (a Amount) Equal(b Amount) bool { return a.value == b.value }

// Less reports whether a < b.
func (a Amount) Less(b Amount) bool { return a.value < b.value }

// ToCurrency converts points to currency units with exact decimal arithmetic.
func (a Amount) ToCurrency() decimal.Decimal {
	return decimal.NewFromInt(a.value).Div(decimal.NewFromInt(PointsPerCurrencyUnit))
}

// FormatCurrency renders the currency value with at most one fractional digit
// ("123.4", "100").
func (a Amount) FormatCurrency() string {
	return a.ToCurrency().Round(1).String()
}

// String implements fmt.Stringer ("120pt").
func (a Amount) String() string {
	return fmt.Sprintf("%dpt", a.value)
}

// MarshalJSON encodes the amount as a bare integer.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.value)
}

// UnmarshalJSON decodes a bare integer and rejects negative values.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewAmount(v)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// SumAmounts adds all amounts together.
func SumAmounts(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
