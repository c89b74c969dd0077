package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Provider keys, in order of preference. Older schema versions put the
// amount at top level, newer ones nest it under transactionAmount.
var (
	amountKeys        = []string{"transactionAmount.amount", "transactionAmount.value", "amount"}
	currencyKeys      = []string{"transactionAmount.currency", "currency"}
	indicatorKeys     = []string{"creditDebitIndicator"}
	idKeys            = []string{"entryReference", "transactionId", "accountServicerReference", "batchEntryReference"}
	timestampKeys     = []string{"raboBookingDateTime", "bookingDateTime"}
	bookingDateKeys   = []string{"bookingDate"}
	valueDateKeys     = []string{"valueDate"}
	remittanceKeys    = []string{"remittanceInformationUnstructured", "remittanceInformationStructured"}
	endToEndKeys      = []string{"endToEndId"}
	debtorNameKeys    = []string{"debtorName", "debtor.name"}
	debtorIBANKeys    = []string{"debtorAccount.iban"}
	creditorNameKeys  = []string{"creditorName", "creditor.name"}
	creditorIBANKeys  = []string{"creditorAccount.iban"}
	bankTxCodeKeys    = []string{"bankTransactionCode"}
	timestampLayouts  = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"}
	surrogateIDPrefix = "TXN"
)

// transactionNamespace seeds UUIDv5 surrogates for records without a reference
var transactionNamespace = uuid.MustParse("6f1c9a52-3b0e-5d3f-9a43-0c53a1e5c7d2")

var (
	errMissingAmount    = errors.New("missing or unparseable amount")
	errMissingReference = errors.New("missing transaction reference and booking timestamp")
)

// TransactionNormalizer maps provider transaction records onto the canonical
// Transaction. Booking dates are derived in Location.
type TransactionNormalizer struct {
	Location *time.Location
	Currency string
	Logger   zerolog.Logger
}

// NewTransactionNormalizer creates a normalizer for an account in loc
func NewTransactionNormalizer(loc *time.Location, currency string, logger zerolog.Logger) *TransactionNormalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &TransactionNormalizer{
		Location: loc,
		Currency: strings.ToUpper(currency),
		Logger:   logger,
	}
}

// NormalizeTransaction converts one record. ok is false when the record lacks
// mandatory fields; the reason is logged and the record should be skipped.
func (n *TransactionNormalizer) NormalizeTransaction(raw models.RawTransactionRecord, fallbackDate civil.Date) (models.Transaction, bool) {
	tx, _, err := n.normalize(raw, fallbackDate)
	if err != nil {
		n.Logger.Warn().Err(err).Str("entry_reference", raw.String(idKeys...)).Msg("skipping transaction record")
		return models.Transaction{}, false
	}
	return tx, true
}

// NormalizeBatch normalizes records for statementDate. Records that cannot be
// normalized, fall outside the statement date, repeat an id or carry a foreign
// currency are dropped with a diagnostic. The result is sorted by booking date
// then id.
func (n *TransactionNormalizer) NormalizeBatch(records []models.RawTransactionRecord, statementDate civil.Date) ([]models.Transaction, models.Diagnostics) {
	return n.NormalizePeriod(records, statementDate, statementDate)
}

// NormalizePeriod is NormalizeBatch for a statement covering from through to.
// Records without any date are booked on to.
func (n *TransactionNormalizer) NormalizePeriod(records []models.RawTransactionRecord, from, to civil.Date) ([]models.Transaction, models.Diagnostics) {
	var (
		diags models.Diagnostics
		txns  = make([]models.Transaction, 0, len(records))
		seen  = make(map[string]struct{}, len(records))
	)

	for i, raw := range records {
		tx, notes, err := n.normalize(raw, to)
		if err != nil {
			ref := raw.String(idKeys...)
			n.Logger.Warn().Err(err).Int("record", i).Str("entry_reference", ref).Msg("skipping transaction record")
			diags.Add(models.SeverityWarning, models.DiagSkippedRecord, ref, fmt.Sprintf("record %d skipped: %v", i, err))
			continue
		}
		diags = append(diags, notes...)

		if tx.BookingDate.Before(from) || tx.BookingDate.After(to) {
			diags.Add(models.SeverityInfo, models.DiagOutsidePeriod, tx.ID,
				fmt.Sprintf("booking date %s is outside statement period %s", tx.BookingDate, periodText(from, to)))
			continue
		}
		if n.Currency != "" && tx.Currency != n.Currency {
			n.Logger.Warn().Str("transaction_id", tx.ID).Str("currency", tx.Currency).Msg("transaction currency differs from account")
			diags.Add(models.SeverityWarning, models.DiagCurrencyMismatch, tx.ID,
				fmt.Sprintf("transaction currency %s differs from account currency %s", tx.Currency, n.Currency))
			continue
		}
		if _, dup := seen[tx.ID]; dup {
			diags.Add(models.SeverityWarning, models.DiagDuplicateTransaction, tx.ID, "duplicate transaction id, keeping first occurrence")
			continue
		}
		seen[tx.ID] = struct{}{}

		txns = append(txns, tx)
	}

	SortTransactions(txns)
	return txns, diags
}

func periodText(from, to civil.Date) string {
	if from == to {
		return to.String()
	}
	return from.String() + " to " + to.String()
}

// SortTransactions orders entries by booking date, then id (stable)
func SortTransactions(txns []models.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if txns[i].BookingDate != txns[j].BookingDate {
			return txns[i].BookingDate.Before(txns[j].BookingDate)
		}
		return txns[i].ID < txns[j].ID
	})
}

func (n *TransactionNormalizer) normalize(raw models.RawTransactionRecord, fallbackDate civil.Date) (models.Transaction, models.Diagnostics, error) {
	var notes models.Diagnostics

	amount, ok := ParseAmount(raw.String(amountKeys...))
	if !ok {
		return models.Transaction{}, nil, errMissingAmount
	}

	indicator, explicit := parseIndicator(raw.String(indicatorKeys...))
	if !explicit {
		indicator = models.IndicatorFor(amount)
	}

	timestamp := raw.String(timestampKeys...)
	bookingDateRaw := raw.String(bookingDateKeys...)

	id := raw.String(idKeys...)
	if id == "" {
		if timestamp == "" && bookingDateRaw == "" {
			return models.Transaction{}, nil, errMissingReference
		}
		surrogate, err := surrogateID(raw)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		id = surrogate
		notes.Add(models.SeverityInfo, models.DiagGeneratedTransactionID, id, "record has no reference, generated a surrogate id")
	}

	bookingDate, source := n.bookingDate(timestamp, bookingDateRaw, fallbackDate)
	if source != "timestamp" {
		notes.Add(models.SeverityInfo, models.DiagBookingDateFallback, id,
			fmt.Sprintf("booking date taken from %s", source))
	}

	valueDate, ok := parseDate(raw.String(valueDateKeys...))
	if !ok {
		valueDate = bookingDate
	}

	currency := strings.ToUpper(raw.String(currencyKeys...))
	if currency == "" {
		currency = n.Currency
	}

	return models.Transaction{
		ID:                  id,
		Amount:              amount.Abs(),
		Currency:            currency,
		Indicator:           indicator,
		BookingDate:         bookingDate,
		ValueDate:           valueDate,
		RemittanceInfo:      SanitizeText(raw.String(remittanceKeys...)),
		EndToEndID:          SanitizeText(raw.String(endToEndKeys...)),
		DebtorName:          SanitizeText(raw.String(debtorNameKeys...)),
		DebtorIBAN:          NormalizeIBAN(raw.String(debtorIBANKeys...)),
		CreditorName:        SanitizeText(raw.String(creditorNameKeys...)),
		CreditorIBAN:        NormalizeIBAN(raw.String(creditorIBANKeys...)),
		BankTransactionCode: SanitizeText(raw.String(bankTxCodeKeys...)),
	}, notes, nil
}

// bookingDate derives the local calendar date of the UTC booking timestamp.
// A timestamp just before midnight UTC can fall on the next local day, so the
// provider's own bookingDate is only used when no timestamp is usable.
func (n *TransactionNormalizer) bookingDate(timestamp, bookingDateRaw string, fallback civil.Date) (civil.Date, string) {
	if ts, ok := parseUTCTimestamp(timestamp); ok {
		return LocalDate(ts, n.Location), "timestamp"
	}
	if d, ok := parseDate(bookingDateRaw); ok {
		return d, "bookingDate"
	}
	return fallback, "statement date"
}

// LocalDate returns the calendar date of t in loc
func LocalDate(t time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(t.In(loc))
}

func parseUTCTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseDate(s string) (civil.Date, bool) {
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

func parseIndicator(s string) (models.CreditDebitIndicator, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRDT", "C", "CREDIT":
		return models.Credit, true
	case "DBIT", "D", "DEBIT":
		return models.Debit, true
	}
	return "", false
}

// surrogateID derives a stable id from the record content so that
// regenerating a statement yields the same entry references.
func surrogateID(raw models.RawTransactionRecord) (string, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("failed to derive transaction id: %w", err)
	}
	// 35 characters, the Max35Text limit of TxId
	id := uuid.NewSHA1(transactionNamespace, payload)
	return surrogateIDPrefix + strings.ReplaceAll(id.String(), "-", ""), nil
}
