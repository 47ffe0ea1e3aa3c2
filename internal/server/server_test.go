package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"filaflow/internal"
	"filaflow/internal/config"
	"filaflow/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "filaflow.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	return New(db, cfg), db
}

func TestHandleParseInvoice(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"text": "PLA Basic SKU: A00-K0-1.75-1000-SPL Variant: Black (10101) €10.26",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoice/parse", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp parseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Filaments) != 1 {
		t.Fatalf("resp=%+v", resp)
	}
	if resp.Filaments[0].ArticleNumber != "A00-K0-1.75-1000" {
		t.Fatalf("articleNumber=%s", resp.Filaments[0].ArticleNumber)
	}
}

func TestHandleParseInvoiceNoItems(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"text": "nothing that looks like a filament invoice line"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoice/parse", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp parseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Message == "" {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestHandleVerifySpool(t *testing.T) {
	srv, db := newTestServer(t)
	ctx := context.Background()

	filament, err := db.CreateFilament(ctx, internal.Filament{
		Name: "Black", Material: "PLA", ColorHex: "1a1a1a", WeightGrams: 1000, Density: 1.24, DiameterMm: 1.75,
	})
	if err != nil {
		t.Fatal(err)
	}
	spool, err := db.CreateSpool(ctx, internal.Spool{
		FilamentID: filament.ID, InitialWeightGrams: 1000, RemainingWeightGrams: 1000,
		Extra: internal.SpoolExtra{NeedsVerification: true, Source: internal.SourceInvoice},
	})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/spools/1/verify", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	got, err := db.GetSpool(ctx, spool.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Extra.NeedsVerification {
		t.Fatal("spool still flagged")
	}
}

func TestHandleReconcileAddsEntries(t *testing.T) {
	srv, db := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"text":         "PLA Basic SKU: A00-K0-1.75-1000-SPL Variant: Black (10101) €10.26",
		"addUnmatched": true,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoice/reconcile", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var resp reconcileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.SessionID == "" || len(resp.Rows) != 1 {
		t.Fatalf("resp=%+v", resp)
	}
	if resp.Rows[0].Action != internal.ActionAdded {
		t.Fatalf("action=%s", resp.Rows[0].Action)
	}

	filaments, err := db.ListFilaments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(filaments) != 1 {
		t.Fatalf("filaments=%d", len(filaments))
	}
}

func TestHandleSummaryEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/summary", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	var summary map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary["spoolCount"].(float64) != 0 {
		t.Fatalf("summary=%v", summary)
	}
}
