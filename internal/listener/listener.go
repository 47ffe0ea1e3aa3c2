package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"filaflow/internal/config"
	"filaflow/internal/connectors"
	gmailconnector "filaflow/internal/connectors/gmail"
	imapconnector "filaflow/internal/connectors/imap"
	"filaflow/internal/pipeline"
	"filaflow/internal/storage"
)

// Service polls a mailbox for store invoices and runs them through the
// reconciliation pipeline unattended.
type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("listener cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg)
	results, err := processor.ProcessPending(ctx, s.cfg.MailListenerBatch, provider)
	if err != nil {
		return err
	}

	processed := 0
	for _, res := range results {
		if res.Skipped {
			continue
		}
		processed++
		if s.cfg.MailListenerAutoExport && len(res.Rows) > 0 {
			filename := fmt.Sprintf("invoice_%d_reconciliation.xlsx", res.InvoiceID)
			outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
			if err := pipeline.ReportToXLSX(res.Rows, outputPath); err != nil {
				return err
			}
			_ = s.db.UpdateInvoiceStatus(ctx, res.InvoiceID, "exported")
		}
	}

	fmt.Printf("listener cycle done provider=%s fetched=%d stored=%d processed=%d\n",
		provider, fetchResult.Fetched, fetchResult.Stored, processed)
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
