package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const otherIBAN = "NL02ABNA0123456789"

func expectAccountData(source *MockSource, iban string, snaps []models.BalanceSnapshot) {
	source.On("BalanceSnapshots", mock.Anything, iban, engineDay.AddDays(-DefaultLookbackDays), engineDay).Return(snaps, nil)
	source.On("Transactions", mock.Anything, iban, engineDay.AddDays(-1), engineDay.AddDays(1)).Return(engineRecords(), nil)
}

func TestStatementService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("loads data and allocates a sequence", func(t *testing.T) {
		source := &MockSource{}
		expectAccountData(source, testIBAN, engineSnapshots("1050.00"))
		source.On("Account", mock.Anything, testIBAN).Return(models.AccountRef{IBAN: testIBAN, Currency: "EUR", Name: "Bakkerij de Vries"}, nil)
		sequence := &MockSequence{}
		sequence.On("Next", mock.Anything, testIBAN, engineDay, engineDay).Return(3, nil)

		service := NewStatementService(source, newTestEngine(t, nil), sequence, 1, zerolog.Nop())

		res, err := service.GeneratePeriod(ctx, "nl44 rabo 0123 4567 89", civil.Date{}, engineDay)
		require.NoError(t, err)
		assert.Equal(t, "STMT20251015003", res.Document.MessageID)
		assert.Contains(t, string(res.XML), "<ElctrncSeqNb>20251015003</ElctrncSeqNb>")
		assert.Equal(t, "Bakkerij de Vries", res.Document.Account.Name)
		source.AssertExpectations(t)
		sequence.AssertExpectations(t)
	})

	t.Run("unknown account falls back to default owner", func(t *testing.T) {
		source := &MockSource{}
		expectAccountData(source, testIBAN, engineSnapshots("1050.00"))
		source.On("Account", mock.Anything, testIBAN).Return(models.AccountRef{}, ErrAccountNotFound)

		service := NewStatementService(source, newTestEngine(t, nil), nil, 1, zerolog.Nop())

		res, err := service.GeneratePeriod(ctx, testIBAN, civil.Date{}, engineDay)
		require.NoError(t, err)
		assert.Equal(t, DefaultOwnerName, res.Document.Account.Name)
		assert.Equal(t, "STMT20251015001", res.Document.MessageID)
	})

	t.Run("missing closing balance yields no xml", func(t *testing.T) {
		source := &MockSource{}
		expectAccountData(source, testIBAN, engineSnapshots("1050.00")[:1])
		source.On("Account", mock.Anything, testIBAN).Return(models.AccountRef{}, ErrAccountNotFound)
		sequence := &MockSequence{}

		service := NewStatementService(source, newTestEngine(t, nil), sequence, 1, zerolog.Nop())

		for i := 0; i < 3; i++ {
			res, err := service.GeneratePeriod(ctx, testIBAN, civil.Date{}, engineDay)
			assert.ErrorIs(t, err, ErrMissingClosingBalance)
			assert.True(t, IsFatal(err))
			assert.Nil(t, res)
		}
		sequence.AssertNotCalled(t, "Next", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("currency mismatch does not consume a sequence", func(t *testing.T) {
		source := &MockSource{}
		expectAccountData(source, testIBAN, engineSnapshots("1050.00"))
		source.On("Account", mock.Anything, testIBAN).Return(models.AccountRef{IBAN: testIBAN, Currency: "USD"}, nil)
		sequence := &MockSequence{}

		service := NewStatementService(source, newTestEngine(t, nil), sequence, 1, zerolog.Nop())

		_, err := service.GeneratePeriod(ctx, testIBAN, civil.Date{}, engineDay)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		sequence.AssertNotCalled(t, "Next", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("source failure is not fatal classification", func(t *testing.T) {
		source := &MockSource{}
		source.On("BalanceSnapshots", mock.Anything, testIBAN, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		service := NewStatementService(source, newTestEngine(t, nil), nil, 1, zerolog.Nop())

		_, err := service.GeneratePeriod(ctx, testIBAN, civil.Date{}, engineDay)
		assert.ErrorContains(t, err, "failed to load balances")
		assert.False(t, IsFatal(err))
		source.AssertNotCalled(t, "Transactions", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("account lookup failure", func(t *testing.T) {
		source := &MockSource{}
		expectAccountData(source, testIBAN, engineSnapshots("1050.00"))
		source.On("Account", mock.Anything, testIBAN).Return(models.AccountRef{}, errors.New("timeout"))

		service := NewStatementService(source, newTestEngine(t, nil), nil, 1, zerolog.Nop())

		_, err := service.GeneratePeriod(ctx, testIBAN, civil.Date{}, engineDay)
		assert.ErrorContains(t, err, "failed to load account")
	})

	t.Run("sequence failure", func(t *testing.T) {
		source := &MockSource{}
		expectAccountData(source, testIBAN, engineSnapshots("1050.00"))
		source.On("Account", mock.Anything, testIBAN).Return(models.AccountRef{}, ErrAccountNotFound)
		sequence := &MockSequence{}
		sequence.On("Next", mock.Anything, testIBAN, engineDay, engineDay).Return(0, errors.New("redis down"))

		service := NewStatementService(source, newTestEngine(t, nil), sequence, 1, zerolog.Nop())

		_, err := service.GeneratePeriod(ctx, testIBAN, civil.Date{}, engineDay)
		assert.ErrorContains(t, err, "failed to allocate message sequence")
	})
}

func TestStatementService_GeneratePeriod(t *testing.T) {
	ctx := context.Background()
	from := civil.Date{Year: 2025, Month: time.October, Day: 1}
	to := civil.Date{Year: 2025, Month: time.October, Day: 31}
	retrieved := time.Date(2025, 11, 1, 3, 0, 0, 0, time.UTC)

	t.Run("loads the whole period", func(t *testing.T) {
		source := &MockSource{}
		source.On("BalanceSnapshots", mock.Anything, testIBAN, from.AddDays(-DefaultLookbackDays), to).Return([]models.BalanceSnapshot{
			snapshot(from.AddDays(-1), "1000.00", retrieved),
			snapshot(to, "1050.00", retrieved),
		}, nil)
		source.On("Transactions", mock.Anything, testIBAN, from.AddDays(-1), to.AddDays(1)).Return([]models.RawTransactionRecord{
			{"entryReference": "TXN-2025-10-15", "raboBookingDateTime": "2025-10-15T09:00:00Z", "amount": "150.00"},
			{"entryReference": "TXN-2025-10-20", "raboBookingDateTime": "2025-10-20T09:00:00Z", "amount": "-100.00"},
		}, nil)
		source.On("Account", mock.Anything, testIBAN).Return(models.AccountRef{}, ErrAccountNotFound)
		sequence := &MockSequence{}
		sequence.On("Next", mock.Anything, testIBAN, from, to).Return(2, nil)

		service := NewStatementService(source, newTestEngine(t, nil), sequence, 1, zerolog.Nop())

		res, err := service.GeneratePeriod(ctx, testIBAN, from, to)
		require.NoError(t, err)
		assert.True(t, res.Reconciliation.OK)
		assert.Len(t, res.Document.Transactions, 2)
		assert.Equal(t, "STMT20251001_20251031002", res.Document.MessageID)
		require.NotNil(t, res.Document.PeriodStart)
		assert.Equal(t, from, *res.Document.PeriodStart)
		source.AssertExpectations(t)
		sequence.AssertExpectations(t)
	})

	t.Run("backwards period is rejected before loading", func(t *testing.T) {
		source := &MockSource{}
		service := NewStatementService(source, newTestEngine(t, nil), nil, 1, zerolog.Nop())

		_, err := service.GeneratePeriod(ctx, testIBAN, to, from)
		assert.ErrorIs(t, err, ErrInvalidStatementDate)
		source.AssertNotCalled(t, "BalanceSnapshots", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestStatementService_GenerateBatch(t *testing.T) {
	source := &MockSource{}
	expectAccountData(source, testIBAN, engineSnapshots("1050.00"))
	source.On("Account", mock.Anything, testIBAN).Return(models.AccountRef{}, ErrAccountNotFound)

	other := engineSnapshots("1050.00")[:1]
	for i := range other {
		other[i].IBAN = otherIBAN
	}
	expectAccountData(source, otherIBAN, other)
	source.On("Account", mock.Anything, otherIBAN).Return(models.AccountRef{}, ErrAccountNotFound)

	service := NewStatementService(source, newTestEngine(t, nil), nil, 2, zerolog.Nop())

	results, err := service.GenerateBatch(context.Background(), []StatementRequest{
		{IBAN: testIBAN, Date: engineDay},
		{IBAN: strings.ToLower(otherIBAN), Date: engineDay},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, testIBAN, results[0].IBAN)
	assert.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Result)
	assert.True(t, results[0].Result.Reconciliation.OK)

	assert.Equal(t, otherIBAN, results[1].IBAN)
	assert.ErrorIs(t, results[1].Err, ErrMissingClosingBalance)
	assert.Nil(t, results[1].Result)
}

func TestStatementService_GenerateBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := NewStatementService(&MockSource{}, newTestEngine(t, nil), nil, 1, zerolog.Nop())

	_, err := service.GenerateBatch(ctx, []StatementRequest{{IBAN: testIBAN, Date: engineDay}})
	assert.ErrorIs(t, err, context.Canceled)
}
