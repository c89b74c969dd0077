package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/models"
	"github.com/baitool/camt053/internal/services"
)

const balancesQuery = `
	SELECT iban, currency, balance_type, amount::text, reference_date, retrieved_at
	FROM bai_rabobank_balances_payload
	WHERE iban = $1
	  AND balance_type = 'closingBooked'
	  AND reference_date BETWEEN $2 AND $3
	ORDER BY reference_date, retrieved_at`

// Rows are shaped into the provider's JSON keys so the database and file
// sources feed the same normalizer. rabo_booking_datetime holds UTC without zone.
const transactionsQuery = `
	SELECT jsonb_strip_nulls(jsonb_build_object(
		'entryReference', entry_reference,
		'batchEntryReference', batch_entry_reference,
		'raboBookingDateTime', to_char(rabo_booking_datetime, 'YYYY-MM-DD"T"HH24:MI:SS.US"Z"'),
		'bookingDate', to_char(booking_date, 'YYYY-MM-DD'),
		'valueDate', to_char(value_date, 'YYYY-MM-DD'),
		'transactionAmount', jsonb_build_object('value', transaction_amount::text, 'currency', transaction_currency),
		'debtorName', debtor_name,
		'debtorAccount', jsonb_build_object('iban', debtor_iban),
		'creditorName', creditor_name,
		'creditorAccount', jsonb_build_object('iban', creditor_iban),
		'remittanceInformationUnstructured', remittance_information_unstructured,
		'endToEndId', end_to_end_id,
		'bankTransactionCode', bank_transaction_code
	)) AS payload
	FROM bai_rabobank_transactions_payload
	WHERE iban = $1
	  AND COALESCE(DATE(rabo_booking_datetime), booking_date) BETWEEN $2 AND $3
	ORDER BY rabo_booking_datetime, entry_reference`

const accountQuery = `
	SELECT iban, owner_name
	FROM bai_rabobank_account_info
	WHERE iban = $1
	LIMIT 1`

// PostgresSource reads balances, transactions and account details from the
// BAI payload tables
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

var _ services.StatementSource = (*PostgresSource)(nil)

// BalanceSnapshots returns closingBooked snapshots dated from..to inclusive
func (s *PostgresSource) BalanceSnapshots(ctx context.Context, iban string, from, to civil.Date) ([]models.BalanceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, balancesQuery, iban, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var snapshots []models.BalanceSnapshot
	for rows.Next() {
		var (
			snap          models.BalanceSnapshot
			referenceDate time.Time
			retrievedAt   sql.NullTime
		)
		if err := rows.Scan(&snap.IBAN, &snap.Currency, &snap.BalanceType, &snap.AmountRaw, &referenceDate, &retrievedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		snap.ReferenceDate = civil.DateOf(referenceDate)
		if retrievedAt.Valid {
			snap.RetrievedAt = retrievedAt.Time
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read balances: %w", err)
	}
	return snapshots, nil
}

// Transactions returns the raw records booked from..to inclusive (UTC dates)
func (s *PostgresSource) Transactions(ctx context.Context, iban string, from, to civil.Date) ([]models.RawTransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, transactionsQuery, iban, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var records []models.RawTransactionRecord
	for rows.Next() {
		var record models.RawTransactionRecord
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return records, nil
}

// Account returns the owner details of iban, or services.ErrAccountNotFound
func (s *PostgresSource) Account(ctx context.Context, iban string) (models.AccountRef, error) {
	var (
		account models.AccountRef
		owner   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, accountQuery, iban).Scan(&account.IBAN, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AccountRef{}, fmt.Errorf("%w: %s", services.ErrAccountNotFound, iban)
	}
	if err != nil {
		return models.AccountRef{}, fmt.Errorf("failed to query account: %w", err)
	}
	account.Name = owner.String
	return account, nil
}
