package models

// Severity of a diagnostic collected during generation
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes
const (
	DiagSkippedRecord          = "SKIPPED_RECORD"
	DiagOutsidePeriod          = "OUTSIDE_PERIOD"
	DiagCurrencyMismatch       = "TRANSACTION_CURRENCY_MISMATCH"
	DiagReconciliationFailed   = "RECONCILIATION_MISMATCH"
	DiagBookingDateFallback    = "BOOKING_DATE_FALLBACK"
	DiagGeneratedTransactionID = "GENERATED_TRANSACTION_ID"
	DiagDuplicateTransaction   = "DUPLICATE_TRANSACTION"
)

// Diagnostic is a non-fatal finding returned alongside a produced statement
type Diagnostic struct {
	Severity      Severity `json:"severity"`
	Code          string   `json:"code"`
	Message       string   `json:"message"`
	TransactionID string   `json:"transaction_id,omitempty"`
}

// Diagnostics collects findings for one generation call
type Diagnostics []Diagnostic

// Add appends a diagnostic
func (d *Diagnostics) Add(sev Severity, code, txID, message string) {
	*d = append(*d, Diagnostic{Severity: sev, Code: code, Message: message, TransactionID: txID})
}

// Warnings returns the warning-level diagnostics
func (d Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, diag := range d {
		if diag.Severity == SeverityWarning {
			out = append(out, diag)
		}
	}
	return out
}

// HasCode reports whether any diagnostic carries code
func (d Diagnostics) HasCode(code string) bool {
	for _, diag := range d {
		if diag.Code == code {
			return true
		}
	}
	return false
}
