package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/models"
	"github.com/baitool/camt053/internal/observability/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StatementSource supplies the raw data of an account. Implementations do the
// boundary deserialization; the engine only sees typed values.
type StatementSource interface {
	BalanceSnapshots(ctx context.Context, iban string, from, to civil.Date) ([]models.BalanceSnapshot, error)
	Transactions(ctx context.Context, iban string, from, to civil.Date) ([]models.RawTransactionRecord, error)
	Account(ctx context.Context, iban string) (models.AccountRef, error)
}

// SequenceAllocator hands out the message sequence of an account and
// statement period. from equals to for single day statements.
type SequenceAllocator interface {
	Next(ctx context.Context, iban string, from, to civil.Date) (int, error)
}

// StaticSequence always allocates 1, so regenerating a statement repeats its message id
type StaticSequence struct{}

func (StaticSequence) Next(context.Context, string, civil.Date, civil.Date) (int, error) {
	return 1, nil
}

// StatementRequest identifies one statement to generate. Date is the last day
// covered; From starts a multi-day statement.
type StatementRequest struct {
	IBAN string      `json:"iban" validate:"required,iban"`
	From *civil.Date `json:"from,omitempty"`
	Date civil.Date  `json:"date"`
}

// PeriodStart returns From, or the zero date for a single day statement
func (r StatementRequest) PeriodStart() civil.Date {
	if r.From == nil {
		return civil.Date{}
	}
	return *r.From
}

// BatchResult is the outcome of one request of a batch
type BatchResult struct {
	IBAN   string      `json:"iban"`
	From   *civil.Date `json:"from,omitempty"`
	Date   civil.Date  `json:"date"`
	Result *Result     `json:"result,omitempty"`
	Err    error       `json:"-"`
}

// StatementService loads account data from a source and runs the engine
type StatementService struct {
	source      StatementSource
	engine      *Engine
	sequence    SequenceAllocator
	concurrency int
	logger      zerolog.Logger
}

func NewStatementService(source StatementSource, engine *Engine, sequence SequenceAllocator, concurrency int, logger zerolog.Logger) *StatementService {
	if sequence == nil {
		sequence = StaticSequence{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &StatementService{
		source:      source,
		engine:      engine,
		sequence:    sequence,
		concurrency: concurrency,
		logger:      logger,
	}
}

// GeneratePeriod produces the statement of iban covering from through to. A
// zero from means a single day statement for to.
func (s *StatementService) GeneratePeriod(ctx context.Context, iban string, from, to civil.Date) (*Result, error) {
	start := time.Now()
	res, err := s.generate(ctx, iban, from, to)

	switch {
	case err == nil:
		metrics.ObserveStatementGenerate(metrics.ResultSuccess, time.Since(start))
		metrics.ObserveEntries(len(res.Document.Transactions))
		if !res.Reconciliation.OK {
			metrics.IncReconciliationMismatch()
		}
		for _, d := range res.Diagnostics {
			metrics.IncDiagnostic(d.Code)
		}
	case IsFatal(err):
		metrics.ObserveStatementGenerate(metrics.ResultRejected, time.Since(start))
	default:
		metrics.ObserveStatementGenerate(metrics.ResultError, time.Since(start))
	}
	return res, err
}

func (s *StatementService) generate(ctx context.Context, iban string, from, to civil.Date) (*Result, error) {
	from, to, err := StatementPeriod(from, to)
	if err != nil {
		return nil, err
	}
	iban = NormalizeIBAN(iban)
	cfg := s.engine.Config()

	snapshots, err := s.source.BalanceSnapshots(ctx, iban, from.AddDays(-cfg.LookbackDays), to)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}

	// Booking timestamps are UTC, so a local day can start or end in the
	// neighbouring UTC date.
	records, err := s.source.Transactions(ctx, iban, from.AddDays(-1), to.AddDays(1))
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	account, err := s.source.Account(ctx, iban)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("failed to load account: %w", err)
		}
		s.logger.Debug().Str("iban", iban).Msg("no account details, using default owner name")
		account = models.AccountRef{IBAN: iban}
	}

	in := GenerateInput{
		IBAN:          iban,
		StatementDate: to,
		Account:       account,
		Snapshots:     snapshots,
		Records:       records,
	}
	if from != to {
		in.PeriodStart = from
	}

	// Rejected statements must not consume a message sequence
	assembly, err := s.engine.Assemble(in)
	if err != nil {
		return nil, err
	}

	seq, err := s.sequence.Next(ctx, iban, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate message sequence: %w", err)
	}

	return s.engine.Render(assembly, seq)
}

// GenerateBatch generates statements concurrently. A failing request does not
// stop the others; its error is reported in its BatchResult. Results keep the
// order of reqs.
func (s *StatementService) GenerateBatch(ctx context.Context, reqs []StatementRequest) ([]BatchResult, error) {
	results := make([]BatchResult, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, req := range reqs {
		results[i] = BatchResult{IBAN: NormalizeIBAN(req.IBAN), From: req.From, Date: req.Date}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.GeneratePeriod(ctx, req.IBAN, req.PeriodStart(), req.Date)
			results[i].Result = res
			results[i].Err = err
			if err != nil {
				s.logger.Warn().Err(err).Str("iban", req.IBAN).Str("statement_date", req.Date.String()).Msg("batch statement failed")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
