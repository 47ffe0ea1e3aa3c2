package connectors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"filaflow/internal"
	"filaflow/internal/storage"
)

type MailStoreService struct {
	db         *storage.DB
	rawMailDir string
}

func NewMailStoreService(db *storage.DB, rawMailDir string) *MailStoreService {
	return &MailStoreService{db: db, rawMailDir: rawMailDir}
}

// Store writes the raw message content-addressed to disk and upserts its
// invoice row in "fetched" state.
func (s *MailStoreService) Store(ctx context.Context, msg internal.FetchedMailMessage) (internal.InvoiceRow, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.InvoiceRow{}, err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.InvoiceRow{}, err
		}
	}

	return s.db.UpsertInvoice(ctx, msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, "fetched")
}
