package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"pos-reconciliation/internal/config"
	"pos-reconciliation/internal/domain"
	"pos-reconciliation/internal/gateway"
	"pos-reconciliation/internal/logging"
	"pos-reconciliation/internal/storage"
	"pos-reconciliation/internal/usecase"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("reconciler", flag.ContinueOnError)

	// Define command-line flags
	invoiceFile := fs.String("invoice", "", "Path to the invoice ledger, CSV or XLSX (required)")
	posFilesStr := fs.String("pos", "", "Comma-separated list of POS export files, CSV or XLSX (required)")
	startDateStr := fs.String("start", "", "Start of the period (YYYY-MM-DD), inclusive")
	endDateStr := fs.String("end", "", "End of the period (YYYY-MM-DD), inclusive")
	modeStr := fs.String("mode", "", "Matching mode: by_sku or by_name (default from config)")
	configPath := fs.String("config", "config.yaml", "Path to the YAML config file")
	format := fs.String("format", "json", "Output format: json or text")
	save := fs.Bool("save", false, "Persist the session to the configured database")
	tolerance := fs.String("tolerance", "", "Absolute amount tolerance, overrides config")
	tolerancePct := fs.String("tolerance-pct", "", "Relative amount tolerance as a fraction, overrides config")
	threshold := fs.Float64("threshold", 0, "Name similarity threshold in [0,1], overrides config")
	window := fs.Int("window", 0, "Date window in days, overrides config")
	policy := fs.String("policy", "", "Malformed record policy: exclude or reject, overrides config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Validate required flags
	if *invoiceFile == "" || *posFilesStr == "" {
		fs.Usage()
		return errors.New("flags -invoice and -pos are required")
	}
	if *format != "json" && *format != "text" {
		return fmt.Errorf("unknown output format %q", *format)
	}

	// Parse dates
	var startDate, endDate time.Time
	var err error
	if *startDateStr != "" {
		if startDate, err = time.Parse(time.DateOnly, *startDateStr); err != nil {
			return fmt.Errorf("parsing start date: %w", err)
		}
	}
	if *endDateStr != "" {
		if endDate, err = time.Parse(time.DateOnly, *endDateStr); err != nil {
			return fmt.Errorf("parsing end date: %w", err)
		}
	}

	// --- Configuration ---
	_ = godotenv.Load()
	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		return err
	}
	logger := logging.NewLoggerWithSystem(cfg.Logging, "cli")

	mode, err := cfg.Reconciliation.ModeValue()
	if err != nil {
		return err
	}
	if *modeStr != "" {
		if mode, err = domain.ParseMode(*modeStr); err != nil {
			return err
		}
	}

	opts, err := cfg.Reconciliation.Options()
	if err != nil {
		return err
	}
	var overrideErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tolerance":
			opts.ToleranceAmount, overrideErr = parseDecimalFlag(f.Name, *tolerance, overrideErr)
		case "tolerance-pct":
			opts.TolerancePercentage, overrideErr = parseDecimalFlag(f.Name, *tolerancePct, overrideErr)
		case "threshold":
			opts.NameSimilarityThreshold = *threshold
		case "window":
			opts.DateWindowDays = *window
		case "policy":
			opts.MalformedPolicy = domain.MalformedPolicy(strings.ToLower(*policy))
		}
	})
	if overrideErr != nil {
		return overrideErr
	}

	// --- Wiring ---
	ledgers := gateway.NewFileLedgerRepository()

	var sessions usecase.SessionRepository
	if *save {
		store, err := storage.Open(cfg.Storage.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening session store: %w", err)
		}
		defer store.Close()
		sessions = store
	}

	reconciliationUseCase := usecase.NewReconciliationUseCase(ledgers, sessions, logger)

	// --- Execute the Usecase ---
	result, err := reconciliationUseCase.Reconcile(context.Background(), *invoiceFile, splitList(*posFilesStr), usecase.Request{
		Mode:    mode,
		Start:   startDate,
		End:     endDate,
		Options: opts,
		Persist: *save,
	})
	if err != nil {
		var malformed *domain.MalformedRecordError
		if errors.As(err, &malformed) {
			for _, rec := range malformed.Records {
				logger.Error("malformed record", "record", rec.String())
			}
		}
		return err
	}

	// --- Present the Output ---
	if *format == "text" {
		return writeTextReport(stdout, result)
	}
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate JSON report: %w", err)
	}
	fmt.Fprintln(stdout, string(output))
	return nil
}

func parseDecimalFlag(name, value string, prev error) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		if prev != nil {
			return d, prev
		}
		return d, fmt.Errorf("invalid -%s %q: %w", name, value, err)
	}
	return d, prev
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
