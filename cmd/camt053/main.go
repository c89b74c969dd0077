package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/config"
	"github.com/baitool/camt053/internal/database"
	"github.com/baitool/camt053/internal/logger"
	"github.com/baitool/camt053/internal/models"
	"github.com/baitool/camt053/internal/observability/metrics"
	"github.com/baitool/camt053/internal/services"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

// options shared by all commands
type options struct {
	envFile  string
	source   string
	dataDir  string
	outDir   string
	sequence string
	logLevel string
	formats  []string
}

type runtime struct {
	cfg      *config.StatementConfig
	log      zerolog.Logger
	service  *services.StatementService
	exporter *services.ExportService
	closers  []func()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "camt053",
		Short:        "Generate CAMT.053 bank-to-customer statements",
		Long:         `Assemble end-of-day camt.053.001.02 statements from stored balance snapshots and provider transactions`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env", ".env", "Environment file")
	flags.StringVar(&opts.source, "source", "", "Statement source (postgres, file)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Directory of <IBAN>/*.json files for the file source")
	flags.StringVarP(&opts.outDir, "out", "o", "", "Output directory")
	flags.StringVar(&opts.sequence, "sequence", "", "Message sequence allocator (static, redis)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level")
	flags.StringSliceVar(&opts.formats, "format", []string{services.FormatXML}, "Output formats (xml, pdf, xlsx)")

	rootCmd.AddCommand(
		versionCmd(),
		generateCmd(opts),
		batchCmd(opts),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "camt053 v%s (%s)\n", version, services.Camt053MessageType)
		},
	}
}

func generateCmd(opts *options) *cobra.Command {
	var iban, date, from string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the statement of one account for one day or period",
		RunE: func(cmd *cobra.Command, args []string) error {
			periodStart, statementDate, err := parsePeriod(from, date)
			if err != nil {
				return err
			}

			rt, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.close()

			res, err := rt.service.GeneratePeriod(cmd.Context(), iban, periodStart, statementDate)
			if err != nil {
				return err
			}
			return rt.write(cmd, res, opts.formats)
		},
	}

	cmd.Flags().StringVar(&iban, "iban", "", "Account IBAN")
	cmd.Flags().StringVar(&date, "date", "", "Statement date, the last day covered (YYYY-MM-DD)")
	cmd.Flags().StringVar(&from, "from", "", "First day of a multi-day statement (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("iban")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func batchCmd(opts *options) *cobra.Command {
	var (
		date      string
		from      string
		ibanFile  string
		ibanFlags []string
	)

	cmd := &cobra.Command{
		Use:   "batch [IBAN...]",
		Short: "Generate statements of several accounts for one day or period",
		RunE: func(cmd *cobra.Command, args []string) error {
			periodStart, statementDate, err := parsePeriod(from, date)
			if err != nil {
				return err
			}

			ibans := append(append([]string{}, args...), ibanFlags...)
			if ibanFile != "" {
				fromFile, err := readIBANs(ibanFile)
				if err != nil {
					return err
				}
				ibans = append(ibans, fromFile...)
			}
			if len(ibans) == 0 {
				return errors.New("no IBANs given")
			}

			rt, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.close()

			reqs := make([]services.StatementRequest, 0, len(ibans))
			for _, iban := range ibans {
				req := services.StatementRequest{IBAN: iban, Date: statementDate}
				if !periodStart.IsZero() {
					req.From = &periodStart
				}
				reqs = append(reqs, req)
			}

			results, err := rt.service.GenerateBatch(cmd.Context(), reqs)
			if err != nil {
				return err
			}

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", res.IBAN, res.Date, res.Err)
					continue
				}
				if err := rt.write(cmd, res.Result, opts.formats); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d statements generated\n", len(results)-failed, len(results))
			if failed > 0 {
				return fmt.Errorf("%d statements failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Statement date, the last day covered (YYYY-MM-DD)")
	cmd.Flags().StringVar(&from, "from", "", "First day of multi-day statements (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&ibanFlags, "iban", nil, "Account IBAN (repeatable)")
	cmd.Flags().StringVar(&ibanFile, "ibans-file", "", "File with one IBAN per line")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

// parsePeriod parses --from and --date; an empty from yields the zero date
func parsePeriod(from, date string) (civil.Date, civil.Date, error) {
	statementDate, err := civil.ParseDate(date)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid --date %q: %w", date, err)
	}
	if from == "" {
		return civil.Date{}, statementDate, nil
	}
	periodStart, err := civil.ParseDate(from)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid --from %q: %w", from, err)
	}
	if periodStart.After(statementDate) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("--from %s is after --date %s", from, date)
	}
	return periodStart, statementDate, nil
}

func setup(ctx context.Context, opts *options) (*runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := config.Init(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadStatementConfig()
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, opts)

	log := logger.New(cfg.LogLevel)
	metrics.Init()

	source, closeSource, err := database.OpenSource(cfg, log)
	if err != nil {
		return nil, err
	}
	sequence, closeSequence := database.OpenSequence(ctx, cfg, log)

	engine := services.NewEngine(services.EngineConfig{
		LookbackDays:     cfg.LookbackDays,
		Tolerance:        &cfg.Tolerance,
		Location:         cfg.Location,
		ServicerBIC:      cfg.ServicerBIC,
		DefaultOwnerName: cfg.DefaultOwnerName,
	}, nil, log)

	return &runtime{
		cfg:      cfg,
		log:      log,
		service:  services.NewStatementService(source, engine, sequence, cfg.BatchConcurrency, log),
		exporter: services.NewExportService(),
		closers:  []func(){closeSequence, closeSource},
	}, nil
}

func applyFlags(cfg *config.StatementConfig, opts *options) {
	if opts.source != "" {
		cfg.Source = strings.ToLower(opts.source)
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}
	if opts.sequence != "" {
		cfg.Sequence = strings.ToLower(opts.sequence)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
}

func (rt *runtime) close() {
	for _, c := range rt.closers {
		c()
	}
}

// write stores res in every requested format under the output directory
func (rt *runtime) write(cmd *cobra.Command, res *services.Result, formats []string) error {
	if err := os.MkdirAll(rt.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	doc := res.Document
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))

		var data []byte
		switch format {
		case services.FormatXML:
			data = res.XML
		case services.FormatPDF, services.FormatXLSX:
			exported, _, err := rt.exporter.Export(doc, format)
			if err != nil {
				return err
			}
			data = exported
		default:
			return fmt.Errorf("unsupported format %q", format)
		}

		path := filepath.Join(rt.cfg.OutputDir, services.DocumentFileName(doc, format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}

	if !res.Reconciliation.OK {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: balances differ by %s\n", doc.StatementID, res.Reconciliation.Difference.StringFixed(2))
	}
	if res.Diagnostics.HasCode(models.DiagSkippedRecord) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: unreadable transaction records were skipped\n", doc.StatementID)
	}
	for _, d := range res.Diagnostics.Warnings() {
		rt.log.Debug().Str("code", d.Code).Str("transaction_id", d.TransactionID).Msg(d.Message)
	}
	return nil
}

func readIBANs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var ibans []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ibans = append(ibans, line)
	}
	return ibans, scanner.Err()
}
