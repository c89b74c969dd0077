package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// CreditDebitIndicator carries the sign of an amount
type CreditDebitIndicator string

const (
	Credit CreditDebitIndicator = "CRDT"
	Debit  CreditDebitIndicator = "DBIT"
)

// IndicatorFor returns CRDT for amounts >= 0 and DBIT otherwise
func IndicatorFor(amount decimal.Decimal) CreditDebitIndicator {
	if amount.IsNegative() {
		return Debit
	}
	return Credit
}

// Signed re-applies the indicator to a magnitude
func (c CreditDebitIndicator) Signed(magnitude decimal.Decimal) decimal.Decimal {
	if c == Debit {
		return magnitude.Abs().Neg()
	}
	return magnitude.Abs()
}

// BalanceType distinguishes the two balances of a statement
type BalanceType string

const (
	BalanceOpening BalanceType = "opening"
	BalanceClosing BalanceType = "closing"
)

// Code returns the ISO 20022 balance type code
func (b BalanceType) Code() string {
	if b == BalanceOpening {
		return "OPBD"
	}
	return "CLBD"
}

// AccountRef identifies the statement account
type AccountRef struct {
	IBAN     string `json:"iban" validate:"required,iban"`
	Currency string `json:"currency" validate:"required,len=3"`
	Name     string `json:"name"`
}

// Balance is a resolved opening or closing balance
type Balance struct {
	Amount        decimal.Decimal      `json:"amount"` // magnitude, never negative
	Currency      string               `json:"currency"`
	Indicator     CreditDebitIndicator `json:"credit_debit_indicator"`
	ReferenceDate civil.Date           `json:"reference_date"`
	Type          BalanceType          `json:"type"`
}

// SignedAmount returns the balance with its sign applied
func (b Balance) SignedAmount() decimal.Decimal {
	return b.Indicator.Signed(b.Amount)
}

// Transaction is the canonical statement entry
type Transaction struct {
	ID                  string               `json:"id"`
	Amount              decimal.Decimal      `json:"amount"` // magnitude, never negative
	Currency            string               `json:"currency"`
	Indicator           CreditDebitIndicator `json:"credit_debit_indicator"`
	BookingDate         civil.Date           `json:"booking_date"`
	ValueDate           civil.Date           `json:"value_date"`
	RemittanceInfo      string               `json:"remittance_info,omitempty"`
	EndToEndID          string               `json:"end_to_end_id,omitempty"`
	DebtorName          string               `json:"debtor_name,omitempty"`
	DebtorIBAN          string               `json:"debtor_iban,omitempty"`
	CreditorName        string               `json:"creditor_name,omitempty"`
	CreditorIBAN        string               `json:"creditor_iban,omitempty"`
	BankTransactionCode string               `json:"bank_transaction_code,omitempty"`
}

// SignedAmount returns the entry amount with its sign applied
func (t Transaction) SignedAmount() decimal.Decimal {
	return t.Indicator.Signed(t.Amount)
}

// StatementDocument is the fully assembled input of the CAMT.053 builder.
// StatementDate is the last day covered; PeriodStart is set for statements
// spanning more than one day.
type StatementDocument struct {
	MessageID     string        `json:"message_id"`
	StatementID   string        `json:"statement_id"`
	Sequence      int           `json:"sequence"`
	PeriodStart   *civil.Date   `json:"period_start,omitempty"`
	StatementDate civil.Date    `json:"statement_date"`
	CreatedAt     time.Time     `json:"created_at"`
	Account       AccountRef    `json:"account"`
	ServicerBIC   string        `json:"servicer_bic"`
	Opening       Balance       `json:"opening"`
	Closing       Balance       `json:"closing"`
	Transactions  []Transaction `json:"transactions"`
}

// Period returns the first and last day of the statement
func (d StatementDocument) Period() (civil.Date, civil.Date) {
	if d.PeriodStart != nil && d.PeriodStart.IsValid() && d.PeriodStart.Before(d.StatementDate) {
		return *d.PeriodStart, d.StatementDate
	}
	return d.StatementDate, d.StatementDate
}

// Reconciliation is the outcome of the balance continuity check
type Reconciliation struct {
	Difference decimal.Decimal `json:"difference"`
	OK         bool            `json:"ok"`
}
