package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"filaflow/internal"
	"filaflow/internal/colors"
	"filaflow/internal/config"
	"filaflow/internal/invoice"
	"filaflow/internal/reconcile"
	"filaflow/internal/storage"
)

// ProcessingService turns fetched invoice emails into reconciliation runs
// against the catalog, according to the configured policy.
type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg}
}

type ProcessResult struct {
	InvoiceID int64
	Skipped   bool
	Rows      []internal.ReconcileRow
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	inv, err := s.db.MustInvoiceByProviderMessageID(ctx, provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessInvoice(ctx, inv)
}

func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) ([]ProcessResult, error) {
	pending, err := s.db.ListInvoicesByStatus(ctx, "fetched", limit)
	if err != nil {
		return nil, err
	}

	results := make([]ProcessResult, 0, len(pending))
	for _, inv := range pending {
		if provider != "" && inv.Provider != provider {
			continue
		}
		res, err := s.ProcessInvoice(ctx, inv)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ProcessInvoice extracts line items from the stored raw message and runs one
// reconciliation session over them. Messages that do not look like invoices
// are marked skipped. Every run is recorded with its per-action counts.
func (s *ProcessingService) ProcessInvoice(ctx context.Context, inv internal.InvoiceRow) (ProcessResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(inv.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	items, content, err := invoice.ExtractFromEmailRaw(raw)
	if err != nil {
		return ProcessResult{}, err
	}
	subject := content.Subject
	if subject == "" {
		subject = inv.Subject
	}

	traceID := uuid.NewString()
	detect := DetectInvoice(subject, content.Text, content.HTML, content.AttachmentNames)
	if !detect.IsInvoice || len(items) == 0 {
		_ = s.db.UpdateInvoiceStatus(ctx, inv.ID, "skipped")
		_ = s.db.InsertRun(ctx, traceID, inv.ID,
			map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
			map[string]int{"extracted": len(items)})
		return ProcessResult{InvoiceID: inv.ID, Skipped: true}, nil
	}

	engine := reconcile.NewEngine(s.db)
	sess := reconcile.NewSession()
	rows, err := engine.Run(ctx, items, sess, reconcile.Options{
		ApplyPrices:  s.cfg.AutoUpdatePrices,
		AddUnmatched: s.cfg.AutoAddUnmatched,
	}, colors.Resolve)
	if err != nil {
		return ProcessResult{}, err
	}

	counts := map[string]int{"extracted": len(items)}
	for _, row := range rows {
		counts[string(row.Action)]++
	}

	if err := s.db.UpdateInvoiceStatus(ctx, inv.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}
	_ = s.db.InsertRun(ctx, traceID, inv.ID,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		counts)

	return ProcessResult{InvoiceID: inv.ID, Rows: rows}, nil
}
