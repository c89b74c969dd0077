package models

import (
	"time"

	"cloud.google.com/go/civil"
)

// Balance types reported by the bank balances endpoint
const (
	BalanceTypeClosingBooked = "closingBooked"
	BalanceTypeInterimBooked = "interimBooked"
	BalanceTypeExpected      = "expected"
)

// BalanceSnapshot is one balance row as retrieved from the bank
type BalanceSnapshot struct {
	IBAN          string     `json:"iban" db:"iban" validate:"required"`
	Currency      string     `json:"currency" db:"currency" validate:"required,len=3"`
	BalanceType   string     `json:"balanceType" db:"balance_type" validate:"required"`
	AmountRaw     string     `json:"amount" db:"amount" validate:"required"`
	ReferenceDate civil.Date `json:"referenceDate" db:"reference_date"`
	RetrievedAt   time.Time  `json:"retrievedAt" db:"retrieved_at"`
}
