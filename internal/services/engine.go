package services

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/logger"
	"github.com/baitool/camt053/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// EngineConfig parameterizes statement assembly. A nil Tolerance means
// DefaultTolerance; zero demands an exact match.
type EngineConfig struct {
	LookbackDays     int
	Tolerance        *decimal.Decimal
	Location         *time.Location
	ServicerBIC      string
	DefaultOwnerName string
}

// MaxPeriodDays bounds the length of a multi-day statement
const MaxPeriodDays = 366

// GenerateInput is everything needed to assemble one statement. StatementDate
// is the last day covered; a valid PeriodStart before it makes a multi-day
// statement.
type GenerateInput struct {
	IBAN          string
	PeriodStart   civil.Date
	StatementDate civil.Date
	Account       models.AccountRef
	Snapshots     []models.BalanceSnapshot
	Records       []models.RawTransactionRecord
	Sequence      int
	CreatedAt     time.Time
}

// Result is a produced statement with its advisory findings
type Result struct {
	Document       models.StatementDocument `json:"document"`
	XML            []byte                   `json:"-"`
	Reconciliation models.Reconciliation    `json:"reconciliation"`
	Diagnostics    models.Diagnostics       `json:"diagnostics"`
}

// Assembly is a validated statement that has not been numbered or rendered
// yet. Every fatal check has passed once an Assembly exists.
type Assembly struct {
	Document       models.StatementDocument
	Reconciliation models.Reconciliation
	Diagnostics    models.Diagnostics
}

// Engine assembles statements from caller supplied data. It performs no I/O
// and keeps no state between calls.
type Engine struct {
	cfg       EngineConfig
	tolerance decimal.Decimal
	builder   StatementBuilder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEngine creates an engine. A nil builder uses the camt.053 builder.
func NewEngine(cfg EngineConfig, builder StatementBuilder, logger zerolog.Logger) *Engine {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	tolerance := DefaultTolerance
	if cfg.Tolerance != nil && !cfg.Tolerance.IsNegative() {
		tolerance = *cfg.Tolerance
	}
	cfg.Tolerance = &tolerance
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ServicerBIC == "" {
		cfg.ServicerBIC = DefaultServicerBIC
	}
	if cfg.DefaultOwnerName == "" {
		cfg.DefaultOwnerName = DefaultOwnerName
	}
	if builder == nil {
		builder = NewCamt053Service()
	}
	return &Engine{cfg: cfg, tolerance: tolerance, builder: builder, logger: logger, now: time.Now}
}

// WithClock returns a copy of the engine reading creation time from now
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

// Config returns the effective engine configuration
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Generate assembles and renders the statement with in.Sequence. A fatal
// error returns no result.
func (e *Engine) Generate(in GenerateInput) (*Result, error) {
	a, err := e.Assemble(in)
	if err != nil {
		return nil, err
	}
	return e.Render(a, in.Sequence)
}

// Assemble resolves balances, normalizes transactions and reconciles. The
// returned Assembly carries no message id until it is rendered.
func (e *Engine) Assemble(in GenerateInput) (*Assembly, error) {
	from, to, err := StatementPeriod(in.PeriodStart, in.StatementDate)
	if err != nil {
		return nil, err
	}
	iban := NormalizeIBAN(in.IBAN)
	if iban == "" {
		iban = NormalizeIBAN(in.Account.IBAN)
	}
	log := logger.ForStatement(e.logger, iban, periodText(from, to))

	opening, closing, err := ResolvePeriodBalances(in.Snapshots, iban, from, to, e.cfg.LookbackDays)
	if err != nil {
		log.Error().Err(err).Msg("statement rejected")
		return nil, err
	}

	currency := closing.Currency
	if in.Account.Currency != "" && !strings.EqualFold(in.Account.Currency, currency) {
		err := fmt.Errorf("%w: account %s, balances %s", ErrCurrencyMismatch, in.Account.Currency, currency)
		log.Error().Err(err).Msg("statement rejected")
		return nil, err
	}

	normalizer := NewTransactionNormalizer(e.cfg.Location, currency, log)
	txns, diags := normalizer.NormalizePeriod(in.Records, from, to)

	reconciliation := Reconcile(opening, closing, txns, e.tolerance)
	if !reconciliation.OK {
		log.Warn().
			Str("difference", reconciliation.Difference.StringFixed(2)).
			Str("opening", opening.SignedAmount().StringFixed(2)).
			Str("closing", closing.SignedAmount().StringFixed(2)).
			Int("entries", len(txns)).
			Msg("balances do not reconcile")
		diags.Add(models.SeverityWarning, models.DiagReconciliationFailed, "",
			fmt.Sprintf("opening %s + entries differs from closing %s by %s",
				opening.SignedAmount().StringFixed(2), closing.SignedAmount().StringFixed(2),
				reconciliation.Difference.StringFixed(2)))
	}

	name := SanitizeText(in.Account.Name)
	if name == "" {
		name = e.cfg.DefaultOwnerName
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = e.now()
	}

	doc := models.StatementDocument{
		StatementID:   PeriodStatementID(iban, from, to),
		StatementDate: to,
		CreatedAt:     createdAt.In(e.cfg.Location),
		Account:       models.AccountRef{IBAN: iban, Currency: currency, Name: name},
		ServicerBIC:   e.cfg.ServicerBIC,
		Opening:       opening,
		Closing:       closing,
		Transactions:  txns,
	}
	if from != to {
		doc.PeriodStart = &from
	}

	return &Assembly{Document: doc, Reconciliation: reconciliation, Diagnostics: diags}, nil
}

// Render numbers an assembled statement with seq and builds its XML
func (e *Engine) Render(a *Assembly, seq int) (*Result, error) {
	if seq < 1 {
		seq = 1
	}
	doc := a.Document
	from, to := doc.Period()
	doc.Sequence = seq
	doc.MessageID = PeriodMessageID(from, to, seq)

	log := logger.ForStatement(e.logger, doc.Account.IBAN, periodText(from, to))

	xmlData, err := e.builder.BuildStatement(doc)
	if err != nil {
		log.Error().Err(err).Msg("statement rejected by builder")
		return nil, err
	}

	log.Info().
		Str("message_id", doc.MessageID).
		Int("entries", len(doc.Transactions)).
		Int("warnings", len(a.Diagnostics.Warnings())).
		Bool("reconciled", a.Reconciliation.OK).
		Msg("statement produced")

	return &Result{
		Document:       doc,
		XML:            xmlData,
		Reconciliation: a.Reconciliation,
		Diagnostics:    a.Diagnostics,
	}, nil
}

// StatementPeriod validates a statement period. An unset from means a single
// day statement for to.
func StatementPeriod(from, to civil.Date) (civil.Date, civil.Date, error) {
	if !to.IsValid() {
		return civil.Date{}, civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidStatementDate, to.String())
	}
	if from.IsZero() {
		return to, to, nil
	}
	if !from.IsValid() {
		return civil.Date{}, civil.Date{}, fmt.Errorf("%w: period start %q", ErrInvalidStatementDate, from.String())
	}
	if from.After(to) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("%w: period starts %s after %s", ErrInvalidStatementDate, from, to)
	}
	if to.DaysSince(from) >= MaxPeriodDays {
		return civil.Date{}, civil.Date{}, fmt.Errorf("%w: period %s to %s exceeds %d days", ErrInvalidStatementDate, from, to, MaxPeriodDays)
	}
	return from, to, nil
}
