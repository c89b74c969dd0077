package services

import "errors"

// Fatal generation errors. Any of these means no document is produced.
var (
	ErrMissingOpeningBalance = errors.New("opening balance not found")
	ErrMissingClosingBalance = errors.New("closing balance not found")
	ErrCurrencyMismatch      = errors.New("currency mismatch between opening and closing balance")
	ErrInvalidStatementDate  = errors.New("invalid statement date")
)

// ErrAccountNotFound is returned by sources that hold no account details for
// an IBAN. Generation continues with the default owner name.
var ErrAccountNotFound = errors.New("account not found")

// IsFatal reports whether err aborts generation for an account/date
func IsFatal(err error) bool {
	return errors.Is(err, ErrMissingOpeningBalance) ||
		errors.Is(err, ErrMissingClosingBalance) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrInvalidStatementDate)
}
