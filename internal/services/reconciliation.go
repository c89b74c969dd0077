package services

import (
	"github.com/baitool/camt053/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultTolerance absorbs rounding in upstream feeds
var DefaultTolerance = decimal.New(1, -2)

// Validate checks opening + sum(transactions) against closing within one cent.
// diff is positive when the transactions overshoot the closing balance.
func Validate(opening, closing models.Balance, txns []models.Transaction) (decimal.Decimal, bool) {
	return ValidateWithin(opening, closing, txns, DefaultTolerance)
}

// ValidateWithin is Validate with an explicit tolerance. A negative tolerance
// is treated as zero.
func ValidateWithin(opening, closing models.Balance, txns []models.Transaction, tolerance decimal.Decimal) (decimal.Decimal, bool) {
	if tolerance.IsNegative() {
		tolerance = decimal.Zero
	}

	sum := opening.SignedAmount()
	for _, tx := range txns {
		sum = sum.Add(tx.SignedAmount())
	}
	diff := sum.Sub(closing.SignedAmount())

	return diff, diff.Abs().LessThanOrEqual(tolerance)
}

// Reconcile wraps ValidateWithin into a models.Reconciliation
func Reconcile(opening, closing models.Balance, txns []models.Transaction, tolerance decimal.Decimal) models.Reconciliation {
	diff, ok := ValidateWithin(opening, closing, txns, tolerance)
	return models.Reconciliation{Difference: diff, OK: ok}
}
