package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/models"
	"github.com/baitool/camt053/internal/services"
)

const (
	balancesFile     = "balances.json"
	transactionsFile = "transactions.json"
	accountFile      = "account.json"
)

// FileSource reads exported API payloads from <dir>/<IBAN>/*.json.
//
// balances.json holds an array of snapshots or the balances endpoint response
// ({"balances": [...]}); transactions.json holds an array of records or the
// transactions endpoint response ({"transactions": {"booked": [...]}}).
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

var _ services.StatementSource = (*FileSource)(nil)

type fileBalance struct {
	IBAN          string          `json:"iban"`
	Currency      string          `json:"currency"`
	BalanceType   string          `json:"balanceType"`
	Amount        json.RawMessage `json:"amount"`
	BalanceAmount *struct {
		Amount   json.RawMessage `json:"amount"`
		Currency string          `json:"currency"`
	} `json:"balanceAmount"`
	ReferenceDate      string    `json:"referenceDate"`
	RetrievedAt        time.Time `json:"retrievedAt"`
	LastChangeDateTime time.Time `json:"lastChangeDateTime"`
}

type balancesEnvelope struct {
	Account struct {
		IBAN     string `json:"iban"`
		Currency string `json:"currency"`
	} `json:"account"`
	Balances []fileBalance `json:"balances"`
}

type transactionsEnvelope struct {
	Transactions struct {
		Booked []models.RawTransactionRecord `json:"booked"`
	} `json:"transactions"`
}

// BalanceSnapshots returns the snapshots of iban dated from..to inclusive.
// A missing file yields no snapshots.
func (s *FileSource) BalanceSnapshots(ctx context.Context, iban string, from, to civil.Date) ([]models.BalanceSnapshot, error) {
	data, err := s.read(iban, balancesFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []fileBalance
	if isJSONArray(data) {
		err = json.Unmarshal(data, &rows)
	} else {
		var env balancesEnvelope
		err = json.Unmarshal(data, &env)
		rows = env.Balances
		for i := range rows {
			if rows[i].IBAN == "" {
				rows[i].IBAN = env.Account.IBAN
			}
			if rows[i].Currency == "" {
				rows[i].Currency = env.Account.Currency
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", balancesFile, err)
	}

	snapshots := make([]models.BalanceSnapshot, 0, len(rows))
	for _, row := range rows {
		snap, ok := row.toSnapshot(iban)
		if !ok || snap.ReferenceDate.Before(from) || snap.ReferenceDate.After(to) {
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// Transactions returns the records of iban whose booking date, read from the
// raw data, lies in from..to. Records without a readable date are kept.
func (s *FileSource) Transactions(ctx context.Context, iban string, from, to civil.Date) ([]models.RawTransactionRecord, error) {
	data, err := s.read(iban, transactionsFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []models.RawTransactionRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if isJSONArray(data) {
		err = dec.Decode(&records)
	} else {
		var env transactionsEnvelope
		err = dec.Decode(&env)
		records = env.Transactions.Booked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", transactionsFile, err)
	}

	out := records[:0]
	for _, r := range records {
		if d, ok := recordDate(r); ok && (d.Before(from) || d.After(to)) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Account reads account.json, or returns services.ErrAccountNotFound
func (s *FileSource) Account(ctx context.Context, iban string) (models.AccountRef, error) {
	data, err := s.read(iban, accountFile)
	if errors.Is(err, fs.ErrNotExist) {
		return models.AccountRef{}, fmt.Errorf("%w: %s", services.ErrAccountNotFound, iban)
	}
	if err != nil {
		return models.AccountRef{}, err
	}

	var account struct {
		IBAN      string `json:"iban"`
		Currency  string `json:"currency"`
		Name      string `json:"name"`
		OwnerName string `json:"ownerName"`
	}
	if err := json.Unmarshal(data, &account); err != nil {
		return models.AccountRef{}, fmt.Errorf("failed to decode %s: %w", accountFile, err)
	}
	name := account.Name
	if name == "" {
		name = account.OwnerName
	}
	return models.AccountRef{IBAN: account.IBAN, Currency: account.Currency, Name: name}, nil
}

func (s *FileSource) read(iban, name string) ([]byte, error) {
	path := filepath.Join(s.dir, services.NormalizeIBAN(iban), name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (b fileBalance) toSnapshot(iban string) (models.BalanceSnapshot, bool) {
	amount, currency := b.Amount, b.Currency
	if b.BalanceAmount != nil {
		amount = b.BalanceAmount.Amount
		if currency == "" {
			currency = b.BalanceAmount.Currency
		}
	}
	date, err := civil.ParseDate(b.ReferenceDate)
	if err != nil {
		return models.BalanceSnapshot{}, false
	}
	retrieved := b.RetrievedAt
	if retrieved.IsZero() {
		retrieved = b.LastChangeDateTime
	}
	if b.IBAN == "" {
		b.IBAN = iban
	}
	return models.BalanceSnapshot{
		IBAN:          b.IBAN,
		Currency:      currency,
		BalanceType:   b.BalanceType,
		AmountRaw:     rawText(amount),
		ReferenceDate: date,
		RetrievedAt:   retrieved,
	}, true
}

// rawText returns a JSON string's content or a JSON number's literal
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func isJSONArray(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func recordDate(r models.RawTransactionRecord) (civil.Date, bool) {
	s := r.String("raboBookingDateTime", "bookingDateTime", "bookingDate")
	if len(s) < 10 {
		return civil.Date{}, false
	}
	d, err := civil.ParseDate(s[:10])
	return d, err == nil
}
