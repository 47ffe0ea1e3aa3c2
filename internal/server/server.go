// Package server exposes the reconciliation engine and inventory read models
// over HTTP for the presentation layer.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"filaflow/internal"
	"filaflow/internal/colors"
	"filaflow/internal/config"
	"filaflow/internal/inventory"
	"filaflow/internal/invoice"
	"filaflow/internal/labels"
	"filaflow/internal/reconcile"
	"filaflow/internal/storage"
)

type Server struct {
	db     *storage.DB
	cfg    config.Config
	engine *reconcile.Engine
}

func New(db *storage.DB, cfg config.Config) *Server {
	return &Server{db: db, cfg: cfg, engine: reconcile.NewEngine(db)}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/invoice/parse", s.handleParseInvoice).Methods(http.MethodPost)
	api.HandleFunc("/invoice/reconcile", s.handleReconcile).Methods(http.MethodPost)
	api.HandleFunc("/inventory/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/spools", s.handleListSpools).Methods(http.MethodGet)
	api.HandleFunc("/spools/{id:[0-9]+}/verify", s.handleVerifySpool).Methods(http.MethodPost)
	api.HandleFunc("/spools/labels.pdf", s.handleSpoolLabels).Methods(http.MethodGet)

	return r
}

func (s *Server) ListenAndServe() error {
	fmt.Printf("listening on %s\n", s.cfg.ServerAddr)
	return http.ListenAndServe(s.cfg.ServerAddr, s.Router())
}

type parseRequest struct {
	Text string `json:"text"`
}

type parseResponse struct {
	Success   bool                `json:"success"`
	Filaments []internal.LineItem `json:"filaments"`
	Message   string              `json:"message"`
}

func (s *Server) handleParseInvoice(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := invoice.ParseText(req.Text)
	if err != nil {
		var parseErr *invoice.ParseError
		if errors.As(err, &parseErr) {
			writeJSON(w, http.StatusOK, parseResponse{
				Success:   false,
				Filaments: []internal.LineItem{},
				Message:   parseErr.Reason,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, parseResponse{
		Success:   true,
		Filaments: items,
		Message:   fmt.Sprintf("found %d filament(s)", len(items)),
	})
}

type reconcileRequest struct {
	Text         string `json:"text"`
	ApplyPrices  bool   `json:"applyPrices"`
	AddUnmatched bool   `json:"addUnmatched"`
}

type reconcileResponse struct {
	Success   bool                    `json:"success"`
	SessionID string                  `json:"sessionId"`
	Rows      []internal.ReconcileRow `json:"rows"`
	Message   string                  `json:"message,omitempty"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := invoice.ParseText(req.Text)
	if err != nil {
		var parseErr *invoice.ParseError
		if errors.As(err, &parseErr) {
			writeJSON(w, http.StatusOK, reconcileResponse{
				Success: false,
				Rows:    []internal.ReconcileRow{},
				Message: parseErr.Reason,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sess := reconcile.NewSession()
	rows, err := s.engine.Run(r.Context(), items, sess, reconcile.Options{
		ApplyPrices:  req.ApplyPrices,
		AddUnmatched: req.AddUnmatched,
	}, colors.Resolve)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, reconcileResponse{Success: true, SessionID: sess.ID, Rows: rows})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	spools, err := s.db.ListSpoolDetails(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	filaments, err := s.db.ListFilaments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	vendors, err := s.db.ListVendors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, inventory.Summarize(spools, len(filaments), len(vendors)))
}

func (s *Server) handleListSpools(w http.ResponseWriter, r *http.Request) {
	spools, err := s.db.ListSpoolDetails(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, inventory.Filter(spools, r.URL.Query().Get("q")))
}

func (s *Server) handleVerifySpool(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid spool id")
		return
	}

	changed, err := inventory.ConfirmVerified(r.Context(), s.db, id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"verified": true, "changed": changed})
}

func (s *Server) handleSpoolLabels(w http.ResponseWriter, r *http.Request) {
	spools, err := s.db.ListSpoolDetails(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if r.URL.Query().Get("unverified") == "true" {
		filtered := spools[:0]
		for _, sp := range spools {
			if inventory.IsUnverified(sp.Spool) {
				filtered = append(filtered, sp)
			}
		}
		spools = filtered
	}

	blob, err := labels.GenerateSpoolLabelsPDF(spools, labels.DefaultSheetConfig(s.cfg.LabelCols, s.cfg.LabelRows))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(blob)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}
