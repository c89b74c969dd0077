package database

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fileIBAN = "NL44RABO0123456789"

func writeAccountFile(t *testing.T, dir, name, content string) {
	t.Helper()
	accountDir := filepath.Join(dir, fileIBAN)
	require.NoError(t, os.MkdirAll(accountDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(accountDir, name), []byte(content), 0o644))
}

func TestFileSource_BalanceSnapshots(t *testing.T) {
	from := civil.Date{Year: 2025, Month: time.October, Day: 8}
	to := civil.Date{Year: 2025, Month: time.October, Day: 15}

	t.Run("array of snapshots", func(t *testing.T) {
		dir := t.TempDir()
		writeAccountFile(t, dir, balancesFile, `[
			{"iban": "NL44RABO0123456789", "currency": "EUR", "balanceType": "closingBooked", "amount": "1.234,56", "referenceDate": "2025-10-14", "retrievedAt": "2025-10-15T02:00:00Z"},
			{"iban": "NL44RABO0123456789", "currency": "EUR", "balanceType": "closingBooked", "amount": 1500.10, "referenceDate": "2025-10-15"},
			{"iban": "NL44RABO0123456789", "currency": "EUR", "balanceType": "closingBooked", "amount": "900.00", "referenceDate": "2025-09-30"},
			{"iban": "NL44RABO0123456789", "currency": "EUR", "balanceType": "closingBooked", "amount": "1.00", "referenceDate": "not a date"}
		]`)

		snaps, err := NewFileSource(dir).BalanceSnapshots(context.Background(), fileIBAN, from, to)
		require.NoError(t, err)
		require.Len(t, snaps, 2)

		assert.Equal(t, "1.234,56", snaps[0].AmountRaw)
		assert.Equal(t, civil.Date{Year: 2025, Month: time.October, Day: 14}, snaps[0].ReferenceDate)
		assert.Equal(t, time.Date(2025, 10, 15, 2, 0, 0, 0, time.UTC), snaps[0].RetrievedAt)
		assert.Equal(t, "1500.10", snaps[1].AmountRaw)
	})

	t.Run("balances endpoint response", func(t *testing.T) {
		dir := t.TempDir()
		writeAccountFile(t, dir, balancesFile, `{
			"account": {"iban": "NL44RABO0123456789", "currency": "EUR"},
			"balances": [
				{"balanceType": "closingBooked", "balanceAmount": {"amount": "250.00", "currency": "EUR"}, "referenceDate": "2025-10-10", "lastChangeDateTime": "2025-10-10T21:00:00Z"},
				{"balanceType": "expected", "balanceAmount": {"amount": "300.00"}, "referenceDate": "2025-10-10"}
			]
		}`)

		snaps, err := NewFileSource(dir).BalanceSnapshots(context.Background(), fileIBAN, from, to)
		require.NoError(t, err)
		require.Len(t, snaps, 2)

		assert.Equal(t, fileIBAN, snaps[0].IBAN)
		assert.Equal(t, "EUR", snaps[0].Currency)
		assert.Equal(t, "250.00", snaps[0].AmountRaw)
		assert.Equal(t, "closingBooked", snaps[0].BalanceType)
		assert.False(t, snaps[0].RetrievedAt.IsZero())
		assert.Equal(t, "EUR", snaps[1].Currency)
		assert.Equal(t, "expected", snaps[1].BalanceType)
	})

	t.Run("missing file yields nothing", func(t *testing.T) {
		snaps, err := NewFileSource(t.TempDir()).BalanceSnapshots(context.Background(), fileIBAN, from, to)
		require.NoError(t, err)
		assert.Empty(t, snaps)
	})

	t.Run("malformed file", func(t *testing.T) {
		dir := t.TempDir()
		writeAccountFile(t, dir, balancesFile, `[{"amount": `)

		_, err := NewFileSource(dir).BalanceSnapshots(context.Background(), fileIBAN, from, to)
		assert.ErrorContains(t, err, "failed to decode balances.json")
	})
}

func TestFileSource_Transactions(t *testing.T) {
	from := civil.Date{Year: 2025, Month: time.October, Day: 14}
	to := civil.Date{Year: 2025, Month: time.October, Day: 16}

	t.Run("transactions endpoint response", func(t *testing.T) {
		dir := t.TempDir()
		writeAccountFile(t, dir, transactionsFile, `{
			"transactions": {"booked": [
				{"entryReference": "A", "raboBookingDateTime": "2025-10-15T09:00:00Z", "transactionAmount": {"value": 12345678901234.56, "currency": "EUR"}},
				{"entryReference": "B", "bookingDate": "2025-10-01", "transactionAmount": {"value": "1.00"}},
				{"entryReference": "C", "transactionAmount": {"value": "2.00"}}
			]}
		}`)

		records, err := NewFileSource(dir).Transactions(context.Background(), fileIBAN, from, to)
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, "A", records[0].String("entryReference"))
		amount, ok := records[0].Lookup("transactionAmount.value")
		require.True(t, ok)
		assert.Equal(t, json.Number("12345678901234.56"), amount)
		assert.Equal(t, "C", records[1].String("entryReference"))
	})

	t.Run("array of records", func(t *testing.T) {
		dir := t.TempDir()
		writeAccountFile(t, dir, transactionsFile, `[
			{"entryReference": "X", "bookingDate": "2025-10-16"},
			{"entryReference": "Y", "bookingDate": "2025-10-17"}
		]`)

		records, err := NewFileSource(dir).Transactions(context.Background(), fileIBAN, from, to)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "X", records[0].String("entryReference"))
	})

	t.Run("missing file yields nothing", func(t *testing.T) {
		records, err := NewFileSource(t.TempDir()).Transactions(context.Background(), fileIBAN, from, to)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestFileSource_Account(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		dir := t.TempDir()
		writeAccountFile(t, dir, accountFile, `{"iban": "NL44RABO0123456789", "currency": "EUR", "ownerName": "Bakkerij de Vries"}`)

		account, err := NewFileSource(dir).Account(context.Background(), "nl44 rabo 0123 4567 89")
		require.NoError(t, err)
		assert.Equal(t, fileIBAN, account.IBAN)
		assert.Equal(t, "EUR", account.Currency)
		assert.Equal(t, "Bakkerij de Vries", account.Name)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := NewFileSource(t.TempDir()).Account(context.Background(), fileIBAN)
		assert.ErrorIs(t, err, services.ErrAccountNotFound)
	})
}
