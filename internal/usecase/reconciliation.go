package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pos-reconciliation/internal/domain"
	"pos-reconciliation/internal/engine"
)

// ErrSessionStoreUnavailable is returned when persistence is requested but no
// SessionRepository was configured.
var ErrSessionStoreUnavailable = errors.New("session store is not configured")

// Request carries the per-run parameters shared by every entry point.
// A zero Start or End leaves that side of the period open.
type Request struct {
	Mode    domain.Mode
	Start   time.Time
	End     time.Time
	Options domain.Options
	Persist bool
}

// ReconciliationUseCase orchestrates the reconciliation process.
type ReconciliationUseCase struct {
	ledgers  LedgerRepository
	sessions SessionRepository
	engine   *engine.Engine
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a ReconciliationUseCase.
type Option func(*ReconciliationUseCase)

// WithEngine replaces the default greedy engine.
func WithEngine(e *engine.Engine) Option {
	return func(uc *ReconciliationUseCase) { uc.engine = e }
}

// WithClock sets the clock used to stamp saved sessions.
func WithClock(now func() time.Time) Option {
	return func(uc *ReconciliationUseCase) { uc.now = now }
}

// NewReconciliationUseCase creates a new instance of the usecase.
// sessions may be nil when runs are never persisted.
func NewReconciliationUseCase(ledgers LedgerRepository, sessions SessionRepository, logger *slog.Logger, opts ...Option) *ReconciliationUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	uc := &ReconciliationUseCase{
		ledgers:  ledgers,
		sessions: sessions,
		engine:   engine.New(nil),
		logger:   logger.With("component", "reconciliation"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Reconcile loads both ledgers from files and reconciles them.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, invoicePath string, posPaths []string, req Request) (*domain.ReconciliationResult, error) {
	// Step 1: Period validation
	if err := validatePeriod(req.Start, req.End); err != nil {
		return nil, err
	}

	// Step 2: Data Ingestion
	invoices, err := uc.ledgers.GetInvoiceItems(ctx, invoicePath, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("could not get invoice items: %w", err)
	}

	records, err := uc.ledgers.GetPOSRecords(ctx, posPaths, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("could not get pos records: %w", err)
	}

	uc.logger.Debug("ledgers loaded",
		"invoice_file", invoicePath,
		"pos_files", len(posPaths),
		"invoice_items", len(invoices),
		"pos_records", len(records))

	return uc.ReconcileRecords(ctx, invoices, records, req)
}

// ReconcileRecords reconciles ledgers already held in memory.
func (uc *ReconciliationUseCase) ReconcileRecords(ctx context.Context, invoices []domain.InvoiceItem, records []domain.POSRecord, req Request) (*domain.ReconciliationResult, error) {
	if err := validatePeriod(req.Start, req.End); err != nil {
		return nil, err
	}
	if req.Persist && uc.sessions == nil {
		return nil, ErrSessionStoreUnavailable
	}

	// Step 3: Timeframe Filtering
	filteredInvoices := filterInvoiceItemsByDate(invoices, req.Start, req.End)
	filteredRecords := filterPOSRecordsByDate(records, req.Start, req.End)

	// Step 4: Matching
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := uc.engine.Reconcile(filteredInvoices, filteredRecords, req.Mode, req.Options)
	if err != nil {
		uc.logger.Warn("reconciliation rejected", "mode", req.Mode, "error", err)
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}
	result.SessionID = uuid.NewString()

	// Step 5: Persistence
	if req.Persist {
		session := &domain.ReconciliationSession{
			ID:          result.SessionID,
			CreatedAt:   uc.now().UTC(),
			Mode:        result.Mode,
			PeriodStart: req.Start,
			PeriodEnd:   req.End,
			Summary:     result.Summary,
			Result:      result,
		}
		if err := uc.sessions.Save(ctx, session); err != nil {
			return nil, fmt.Errorf("could not save reconciliation session: %w", err)
		}
	}

	uc.logResult(result)
	return result, nil
}

// GetSession returns a stored run including its full result.
func (uc *ReconciliationUseCase) GetSession(ctx context.Context, id string) (*domain.ReconciliationSession, error) {
	if uc.sessions == nil {
		return nil, ErrSessionStoreUnavailable
	}
	session, err := uc.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get session %s: %w", id, err)
	}
	return session, nil
}

// ListSessions returns the most recent runs, newest first, without results.
func (uc *ReconciliationUseCase) ListSessions(ctx context.Context, limit int) ([]domain.ReconciliationSession, error) {
	if uc.sessions == nil {
		return nil, ErrSessionStoreUnavailable
	}
	sessions, err := uc.sessions.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("could not list sessions: %w", err)
	}
	return sessions, nil
}

func (uc *ReconciliationUseCase) logResult(result *domain.ReconciliationResult) {
	s := result.Summary
	if s.EmptyInput {
		uc.logger.Warn("nothing to reconcile",
			"session_id", result.SessionID,
			"malformed", len(result.Malformed))
		return
	}
	uc.logger.Info("reconciliation completed",
		"session_id", result.SessionID,
		"mode", result.Mode,
		"matched", s.MatchedCount,
		"invoice_only", s.InvoiceOnlyCount,
		"pos_only", s.POSOnlyCount,
		"malformed", len(result.Malformed),
		"match_rate", s.MatchRate,
		"variance_amount", s.VarianceAmount.StringFixed(2))
}

func validatePeriod(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("%w: end %s is before start %s", domain.ErrInvalidDateRange,
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return nil
}

// inPeriod reports whether a calendar date lies in the inclusive period.
// Undated records pass so the engine can report them as malformed.
func inPeriod(date, start, end time.Time) bool {
	if date.IsZero() {
		return true
	}
	d := domain.CalendarDate(date)
	if !start.IsZero() && d.Before(domain.CalendarDate(start)) {
		return false
	}
	if !end.IsZero() && d.After(domain.CalendarDate(end)) {
		return false
	}
	return true
}

func filterInvoiceItemsByDate(items []domain.InvoiceItem, start, end time.Time) []domain.InvoiceItem {
	filtered := make([]domain.InvoiceItem, 0, len(items))
	for _, item := range items {
		if inPeriod(item.Date, start, end) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func filterPOSRecordsByDate(records []domain.POSRecord, start, end time.Time) []domain.POSRecord {
	filtered := make([]domain.POSRecord, 0, len(records))
	for _, rec := range records {
		if inPeriod(rec.Date, start, end) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
