package services

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIBAN = "NL44RABO0123456789"

func snapshot(date civil.Date, amount string, retrievedAt time.Time) models.BalanceSnapshot {
	return models.BalanceSnapshot{
		IBAN:          testIBAN,
		Currency:      "EUR",
		BalanceType:   models.BalanceTypeClosingBooked,
		AmountRaw:     amount,
		ReferenceDate: date,
		RetrievedAt:   retrievedAt,
	}
}

func TestResolveBalances(t *testing.T) {
	day := civil.Date{Year: 2025, Month: time.October, Day: 10}
	retrieved := time.Date(2025, 10, 11, 6, 0, 0, 0, time.UTC)

	t.Run("picks the previous day as opening", func(t *testing.T) {
		snaps := []models.BalanceSnapshot{
			snapshot(day.AddDays(-5), "500.00", retrieved),
			snapshot(day.AddDays(-3), "300.00", retrieved),
			snapshot(day.AddDays(-1), "100.00", retrieved),
			snapshot(day, "250,50", retrieved),
		}

		opening, closing, err := ResolveBalances(snaps, testIBAN, day, 7)
		require.NoError(t, err)
		assert.Equal(t, day.AddDays(-1), opening.ReferenceDate)
		assert.True(t, decimal.RequireFromString("100").Equal(opening.Amount))
		assert.Equal(t, models.BalanceOpening, opening.Type)
		assert.Equal(t, day, closing.ReferenceDate)
		assert.True(t, decimal.RequireFromString("250.50").Equal(closing.Amount))
		assert.Equal(t, models.BalanceClosing, closing.Type)
	})

	t.Run("searches further back when the previous day is missing", func(t *testing.T) {
		snaps := []models.BalanceSnapshot{
			snapshot(day.AddDays(-5), "500.00", retrieved),
			snapshot(day.AddDays(-3), "300.00", retrieved),
			snapshot(day, "250.50", retrieved),
		}

		opening, _, err := ResolveBalances(snaps, testIBAN, day, 7)
		require.NoError(t, err)
		assert.Equal(t, day.AddDays(-3), opening.ReferenceDate)
	})

	t.Run("missing closing balance", func(t *testing.T) {
		snaps := []models.BalanceSnapshot{snapshot(day.AddDays(-1), "100.00", retrieved)}

		_, _, err := ResolveBalances(snaps, testIBAN, day, 7)
		assert.ErrorIs(t, err, ErrMissingClosingBalance)
	})

	t.Run("interim balances do not count as closing", func(t *testing.T) {
		interim := snapshot(day, "100.00", retrieved)
		interim.BalanceType = models.BalanceTypeInterimBooked
		snaps := []models.BalanceSnapshot{snapshot(day.AddDays(-1), "100.00", retrieved), interim}

		_, _, err := ResolveBalances(snaps, testIBAN, day, 7)
		assert.ErrorIs(t, err, ErrMissingClosingBalance)
	})

	t.Run("opening outside lookback window", func(t *testing.T) {
		snaps := []models.BalanceSnapshot{
			snapshot(day.AddDays(-8), "100.00", retrieved),
			snapshot(day, "100.00", retrieved),
		}

		_, _, err := ResolveBalances(snaps, testIBAN, day, 7)
		assert.ErrorIs(t, err, ErrMissingOpeningBalance)

		_, _, err = ResolveBalances(snaps, testIBAN, day, 10)
		assert.NoError(t, err)
	})

	t.Run("non-positive lookback uses the default", func(t *testing.T) {
		snaps := []models.BalanceSnapshot{
			snapshot(day.AddDays(-7), "100.00", retrieved),
			snapshot(day, "100.00", retrieved),
		}

		_, _, err := ResolveBalances(snaps, testIBAN, day, 0)
		assert.NoError(t, err)
	})

	t.Run("latest retrieval wins for the same date", func(t *testing.T) {
		snaps := []models.BalanceSnapshot{
			snapshot(day.AddDays(-1), "999.00", retrieved.Add(2*time.Hour)),
			snapshot(day.AddDays(-1), "100.00", retrieved),
			snapshot(day, "50.00", retrieved),
			snapshot(day, "75.00", retrieved.Add(time.Hour)),
		}

		opening, closing, err := ResolveBalances(snaps, testIBAN, day, 7)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("999").Equal(opening.Amount))
		assert.True(t, decimal.RequireFromString("75").Equal(closing.Amount))
	})

	t.Run("negative balance becomes debit magnitude", func(t *testing.T) {
		snaps := []models.BalanceSnapshot{
			snapshot(day.AddDays(-1), "-1.234,56", retrieved),
			snapshot(day, "0.00", retrieved),
		}

		opening, closing, err := ResolveBalances(snaps, testIBAN, day, 7)
		require.NoError(t, err)
		assert.Equal(t, models.Debit, opening.Indicator)
		assert.True(t, decimal.RequireFromString("1234.56").Equal(opening.Amount))
		assert.Equal(t, models.Credit, closing.Indicator)
	})

	t.Run("currency mismatch", func(t *testing.T) {
		usd := snapshot(day, "10.00", retrieved)
		usd.Currency = "USD"
		snaps := []models.BalanceSnapshot{snapshot(day.AddDays(-1), "10.00", retrieved), usd}

		_, _, err := ResolveBalances(snaps, testIBAN, day, 7)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		assert.True(t, IsFatal(err))
	})

	t.Run("ignores other accounts and formats iban loosely", func(t *testing.T) {
		other := snapshot(day.AddDays(-1), "1.00", retrieved)
		other.IBAN = "NL02ABNA0123456789"
		snaps := []models.BalanceSnapshot{other, snapshot(day, "1.00", retrieved)}

		_, _, err := ResolveBalances(snaps, "nl44 rabo 0123 4567 89", day, 7)
		assert.ErrorIs(t, err, ErrMissingOpeningBalance)
	})
}

func TestResolvePeriodBalances(t *testing.T) {
	from := civil.Date{Year: 2025, Month: time.October, Day: 1}
	to := civil.Date{Year: 2025, Month: time.October, Day: 31}
	retrieved := time.Date(2025, 11, 1, 6, 0, 0, 0, time.UTC)

	t.Run("opening before the first day, closing on the last", func(t *testing.T) {
		snaps := []models.BalanceSnapshot{
			snapshot(from.AddDays(-1), "1000.00", retrieved),
			snapshot(from, "1010.00", retrieved),
			snapshot(to.AddDays(-1), "1040.00", retrieved),
			snapshot(to, "1050.00", retrieved),
		}

		opening, closing, err := ResolvePeriodBalances(snaps, testIBAN, from, to, 7)
		require.NoError(t, err)
		assert.Equal(t, "1000.00", opening.Amount.StringFixed(2))
		assert.Equal(t, from.AddDays(-1), opening.ReferenceDate)
		assert.Equal(t, "1050.00", closing.Amount.StringFixed(2))
		assert.Equal(t, to, closing.ReferenceDate)
	})

	t.Run("lookback counts from the first day", func(t *testing.T) {
		snaps := []models.BalanceSnapshot{
			snapshot(from.AddDays(-3), "1000.00", retrieved),
			snapshot(to, "1050.00", retrieved),
		}

		_, _, err := ResolvePeriodBalances(snaps, testIBAN, from, to, 2)
		assert.ErrorIs(t, err, ErrMissingOpeningBalance)

		opening, _, err := ResolvePeriodBalances(snaps, testIBAN, from, to, 3)
		require.NoError(t, err)
		assert.Equal(t, from.AddDays(-3), opening.ReferenceDate)
	})
}

func TestIndicatorSignRoundTrip(t *testing.T) {
	for _, raw := range []string{"0", "0.01", "-0.01", "1050.00", "-100.00", "-123456.78"} {
		a := decimal.RequireFromString(raw)
		ind := models.IndicatorFor(a)
		assert.True(t, a.Equal(ind.Signed(a.Abs())), raw)
	}
}
