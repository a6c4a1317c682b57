package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"pos-reconciliation/internal/domain"
	"pos-reconciliation/internal/usecase"
)

// ErrSessionNotFound is returned by Get for unknown ids.
var ErrSessionNotFound = domain.ErrSessionNotFound

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 20

// SessionStore persists reconciliation sessions in SQLite.
type SessionStore struct {
	db *sql.DB
}

// Compile-time check that SessionStore implements SessionRepository
var _ usecase.SessionRepository = (*SessionStore)(nil)

// Open opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func Open(dsn string) (*SessionStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// pragmas are per connection and an in-memory database is per connection too
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SessionStore{db: db}, nil
}

// Close closes the database connection
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reconciliation_sessions (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			period_start TEXT NOT NULL DEFAULT '',
			period_end TEXT NOT NULL DEFAULT '',
			matched_count INTEGER NOT NULL,
			invoice_only_count INTEGER NOT NULL,
			pos_only_count INTEGER NOT NULL,
			malformed_count INTEGER NOT NULL,
			match_rate REAL NOT NULL,
			total_invoice_amount TEXT NOT NULL,
			total_pos_amount TEXT NOT NULL,
			variance_amount TEXT NOT NULL,
			summary_json TEXT NOT NULL,
			result_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON reconciliation_sessions(created_at)`,

		`CREATE TABLE IF NOT EXISTS matched_pairs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES reconciliation_sessions(id) ON DELETE CASCADE,
			invoice_id TEXT NOT NULL,
			pos_id TEXT NOT NULL,
			match_type TEXT NOT NULL,
			confidence REAL NOT NULL,
			amount_diff TEXT NOT NULL,
			quantity_diff INTEGER NOT NULL,
			name_similarity REAL NOT NULL,
			date_diff_days INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matched_pairs_session ON matched_pairs(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matched_pairs_invoice ON matched_pairs(invoice_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save stores a session and one row per matched pair in a single transaction.
func (s *SessionStore) Save(ctx context.Context, session *domain.ReconciliationSession) error {
	summaryJSON, err := json.Marshal(session.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	var resultJSON sql.NullString
	if session.Result != nil {
		b, err := json.Marshal(session.Result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sum := session.Summary
	_, err = tx.ExecContext(ctx, `
	INSERT INTO reconciliation_sessions
	(id, created_at, mode, period_start, period_end,
	 matched_count, invoice_only_count, pos_only_count, malformed_count, match_rate,
	 total_invoice_amount, total_pos_amount, variance_amount, summary_json, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		formatTime(session.CreatedAt),
		string(session.Mode),
		formatTime(session.PeriodStart),
		formatTime(session.PeriodEnd),
		sum.MatchedCount,
		sum.InvoiceOnlyCount,
		sum.POSOnlyCount,
		sum.MalformedInvoiceItems+sum.MalformedPOSRecords,
		sum.MatchRate,
		sum.TotalInvoiceAmount.String(),
		sum.TotalPOSAmount.String(),
		sum.VarianceAmount.String(),
		string(summaryJSON),
		resultJSON,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", session.ID, err)
	}

	if session.Result != nil {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matched_pairs
		(session_id, invoice_id, pos_id, match_type, confidence,
		 amount_diff, quantity_diff, name_similarity, date_diff_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare matched pairs: %w", err)
		}
		defer stmt.Close()

		for _, p := range session.Result.Matched {
			_, err := stmt.ExecContext(ctx,
				session.ID,
				p.Invoice.ID,
				p.POS.ID,
				p.MatchType.String(),
				p.Confidence,
				p.Variance.AmountDiff.String(),
				p.Variance.QuantityDiff,
				p.Variance.NameSimilarity,
				p.Variance.DateDiffDays,
			)
			if err != nil {
				return fmt.Errorf("insert matched pair %s/%s: %w", p.Invoice.ID, p.POS.ID, err)
			}
		}
	}

	return tx.Commit()
}

// Get returns a session with its full result.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.ReconciliationSession, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, created_at, mode, period_start, period_end, summary_json, result_json
	FROM reconciliation_sessions WHERE id = ?`, id)

	session, resultJSON, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if resultJSON.Valid {
		var result domain.ReconciliationResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("decode result of session %s: %w", id, err)
		}
		session.Result = &result
	}
	return session, nil
}

// List returns the most recent sessions, newest first, without their results.
func (s *SessionStore) List(ctx context.Context, limit int) ([]domain.ReconciliationSession, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, created_at, mode, period_start, period_end, summary_json, NULL
	FROM reconciliation_sessions
	ORDER BY created_at DESC, id
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.ReconciliationSession, 0)
	for rows.Next() {
		session, _, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// CountPairsByType reports how many stored pairs of a session have each match type.
func (s *SessionStore) CountPairsByType(ctx context.Context, sessionID string) (map[domain.MatchType]int, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT match_type, COUNT(*) FROM matched_pairs
	WHERE session_id = ? GROUP BY match_type`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count pairs: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.MatchType]int)
	for rows.Next() {
		var (
			name  string
			count int
			mt    domain.MatchType
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		if err := mt.UnmarshalText([]byte(name)); err != nil {
			return nil, err
		}
		counts[mt] = count
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.ReconciliationSession, sql.NullString, error) {
	var (
		session                           domain.ReconciliationSession
		createdAt, periodStart, periodEnd string
		mode, summaryJSON                 string
		resultJSON                        sql.NullString
	)
	if err := row.Scan(&session.ID, &createdAt, &mode, &periodStart, &periodEnd, &summaryJSON, &resultJSON); err != nil {
		return nil, resultJSON, err
	}

	var err error
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, resultJSON, err
	}
	if session.PeriodStart, err = parseTime(periodStart); err != nil {
		return nil, resultJSON, err
	}
	if session.PeriodEnd, err = parseTime(periodEnd); err != nil {
		return nil, resultJSON, err
	}
	session.Mode = domain.Mode(mode)
	if err := json.Unmarshal([]byte(summaryJSON), &session.Summary); err != nil {
		return nil, resultJSON, fmt.Errorf("decode summary of session %s: %w", session.ID, err)
	}
	return &session, resultJSON, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
