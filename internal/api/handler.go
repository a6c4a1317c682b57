package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pos-reconciliation/internal/domain"
	"pos-reconciliation/internal/gateway"
	"pos-reconciliation/internal/usecase"
)

// ReconciliationService is the part of the use case the handlers depend on.
type ReconciliationService interface {
	ReconcileRecords(ctx context.Context, invoices []domain.InvoiceItem, records []domain.POSRecord, req usecase.Request) (*domain.ReconciliationResult, error)
	GetSession(ctx context.Context, id string) (*domain.ReconciliationSession, error)
	ListSessions(ctx context.Context, limit int) ([]domain.ReconciliationSession, error)
}

// Defaults are applied to every request before its own overrides.
type Defaults struct {
	Mode    domain.Mode
	Options domain.Options
	// Persist stores runs unless a request opts out.
	Persist bool
}

type ReconciliationHandler struct {
	service  ReconciliationService
	defaults Defaults
	logger   *slog.Logger
}

func NewReconciliationHandler(s ReconciliationService, defaults Defaults, logger *slog.Logger) *ReconciliationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconciliationHandler{service: s, defaults: defaults, logger: logger}
}

// Health reports liveness.
func (h *ReconciliationHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Reconcile runs a reconciliation over records posted as JSON.
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	var payload reconcileRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	req, err := h.buildRequest(payload.Mode, payload.PeriodStart, payload.PeriodEnd, payload.Persist, payload.Options)
	if err != nil {
		h.respondError(c, err)
		return
	}
	invoices, err := payload.invoices()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := payload.posRecords()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.run(c, invoices, records, req)
}

// Upload runs a reconciliation over an uploaded invoice ledger and one or
// more POS exports (CSV or XLSX).
func (h *ReconciliationHandler) Upload(c *gin.Context) {
	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice file and at least one pos file are required"})
		return
	}

	overrides, err := form.overrides()
	if err != nil {
		h.respondError(c, err)
		return
	}
	persist, err := form.persist()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := h.buildRequest(form.Mode, form.PeriodStart, form.PeriodEnd, persist, overrides)
	if err != nil {
		h.respondError(c, err)
		return
	}

	invoices, err := decodeUpload(form.Invoice, req.Mode, gateway.DecodeInvoiceItems)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var records []domain.POSRecord
	for _, fh := range form.POS {
		batch, err := decodeUpload(fh, req.Mode, gateway.DecodePOSRecords)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		records = append(records, batch...)
	}

	h.logger.Debug("ledgers uploaded",
		"invoice_file", form.Invoice.Filename,
		"pos_files", len(form.POS),
		"invoice_items", len(invoices),
		"pos_records", len(records))

	h.run(c, invoices, records, req)
}

// ListSessions returns recent sessions without their results.
func (h *ReconciliationHandler) ListSessions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	sessions, err := h.service.ListSessions(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession returns one stored session with its full result.
func (h *ReconciliationHandler) GetSession(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *ReconciliationHandler) buildRequest(mode, start, end string, persist *bool, overrides optionOverrides) (usecase.Request, error) {
	req := usecase.Request{
		Mode:    h.defaults.Mode,
		Options: overrides.apply(h.defaults.Options),
		Persist: h.defaults.Persist,
	}
	if mode != "" {
		m, err := domain.ParseMode(mode)
		if err != nil {
			return req, err
		}
		req.Mode = m
	}
	if persist != nil {
		req.Persist = *persist
	}

	var err error
	req.Start, req.End, err = parsePeriod(start, end)
	return req, err
}

func (h *ReconciliationHandler) run(c *gin.Context, invoices []domain.InvoiceItem, records []domain.POSRecord, req usecase.Request) {
	result, err := h.service.ReconcileRecords(c.Request.Context(), invoices, records, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	message := "reconciliation completed"
	if result.Summary.EmptyInput {
		message = "nothing to reconcile"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "result": result})
}

// respondError maps use case errors onto HTTP statuses.
func (h *ReconciliationHandler) respondError(c *gin.Context, err error) {
	var malformed *domain.MalformedRecordError
	switch {
	case errors.As(err, &malformed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "malformed": malformed.Records})
	case errors.Is(err, domain.ErrInvalidConfiguration), errors.Is(err, domain.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, usecase.ErrSessionStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func decodeUpload[T any](fh *multipart.FileHeader, mode domain.Mode, decode func(io.Reader, gateway.Format, domain.Mode, string) ([]T, error)) ([]T, error) {
	format, err := gateway.FormatFromPath(fh.Filename)
	if err != nil {
		return nil, err
	}
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer file.Close()

	return decode(file, format, mode, fh.Filename)
}
