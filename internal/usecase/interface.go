package usecase

import (
	"context"

	"pos-reconciliation/internal/domain"
)

// LedgerRepository defines the interface for fetching ledger data.
// The usecase layer depends on this interface, not on a concrete implementation.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go LedgerRepository SessionRepository
type LedgerRepository interface {
	GetInvoiceItems(ctx context.Context, path string, mode domain.Mode) ([]domain.InvoiceItem, error)
	GetPOSRecords(ctx context.Context, paths []string, mode domain.Mode) ([]domain.POSRecord, error)
}

// SessionRepository persists completed reconciliation runs.
type SessionRepository interface {
	Save(ctx context.Context, session *domain.ReconciliationSession) error
	Get(ctx context.Context, id string) (*domain.ReconciliationSession, error)
	List(ctx context.Context, limit int) ([]domain.ReconciliationSession, error)
}
