package services

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/models"
)

// DefaultLookbackDays bounds the backward search for the opening balance
const DefaultLookbackDays = 7

// ResolveBalances picks the closing balance booked on statementDate and the
// opening balance from the most recent closingBooked snapshot before it,
// looking back at most lookbackDays days.
func ResolveBalances(snapshots []models.BalanceSnapshot, iban string, statementDate civil.Date, lookbackDays int) (models.Balance, models.Balance, error) {
	return ResolvePeriodBalances(snapshots, iban, statementDate, statementDate, lookbackDays)
}

// ResolvePeriodBalances resolves the balances of a statement covering from
// through to. The opening balance is the last closingBooked snapshot before
// from, the closing balance the one booked on to.
func ResolvePeriodBalances(snapshots []models.BalanceSnapshot, iban string, from, to civil.Date, lookbackDays int) (models.Balance, models.Balance, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	byDate := latestClosingBooked(snapshots, iban)

	closingSnap, ok := byDate[to]
	if !ok {
		return models.Balance{}, models.Balance{}, fmt.Errorf("%w: %s on %s", ErrMissingClosingBalance, iban, to)
	}

	var (
		openingSnap resolvedSnapshot
		found       bool
	)
	for d := 1; d <= lookbackDays; d++ {
		if openingSnap, found = byDate[from.AddDays(-d)]; found {
			break
		}
	}
	if !found {
		return models.Balance{}, models.Balance{}, fmt.Errorf("%w: %s within %d days before %s",
			ErrMissingOpeningBalance, iban, lookbackDays, from)
	}

	opening := openingSnap.toBalance(models.BalanceOpening)
	closing := closingSnap.toBalance(models.BalanceClosing)

	if !strings.EqualFold(opening.Currency, closing.Currency) {
		return models.Balance{}, models.Balance{}, fmt.Errorf("%w: opening %s, closing %s",
			ErrCurrencyMismatch, opening.Currency, closing.Currency)
	}

	return opening, closing, nil
}

type resolvedSnapshot struct {
	retrievedAt time.Time
	balance     models.Balance
}

func (r resolvedSnapshot) toBalance(tp models.BalanceType) models.Balance {
	b := r.balance
	b.Type = tp
	return b
}

// latestClosingBooked indexes the usable closingBooked snapshots of iban by
// reference date, keeping the most recently retrieved one per date.
func latestClosingBooked(snapshots []models.BalanceSnapshot, iban string) map[civil.Date]resolvedSnapshot {
	want := NormalizeIBAN(iban)
	out := make(map[civil.Date]resolvedSnapshot)

	for _, s := range snapshots {
		if s.BalanceType != models.BalanceTypeClosingBooked || NormalizeIBAN(s.IBAN) != want {
			continue
		}
		amount, ok := ParseAmount(s.AmountRaw)
		if !ok {
			continue
		}

		if prev, exists := out[s.ReferenceDate]; exists && s.RetrievedAt.Before(prev.retrievedAt) {
			continue
		}

		out[s.ReferenceDate] = resolvedSnapshot{
			retrievedAt: s.RetrievedAt,
			balance: models.Balance{
				Amount:        amount.Abs(),
				Currency:      strings.ToUpper(strings.TrimSpace(s.Currency)),
				Indicator:     models.IndicatorFor(amount),
				ReferenceDate: s.ReferenceDate,
			},
		}
	}
	return out
}

// NormalizeIBAN strips spaces and upper-cases an IBAN for comparison
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}
