// Package reconcile matches parsed invoice line items against the filament
// catalog and applies the per-line decisions: update the price of an existing
// entry, or create a new entry plus a pending-verification spool.
package reconcile

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"filaflow/internal"
)

// Fixed catalog defaults for filaments created from an invoice line.
const (
	DefaultDensity    = 1.24
	DefaultDiameterMm = 1.75
)

// Store is the record-store boundary the engine mutates through. Operations
// may fail independently; no multi-operation transactions are assumed.
type Store interface {
	ListFilaments(ctx context.Context) ([]internal.Filament, error)
	CreateFilament(ctx context.Context, f internal.Filament) (internal.Filament, error)
	DeleteFilament(ctx context.Context, id int64) error
	UpdateFilamentPrice(ctx context.Context, id int64, price decimal.Decimal) error
	CreateSpool(ctx context.Context, s internal.Spool) (internal.Spool, error)
	ListVendors(ctx context.Context) ([]internal.Vendor, error)
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Partition is the three-way split of a parsed batch. Each bucket preserves
// input order and every input line lands in exactly one bucket. It is a view
// over current catalog and session state, never a consumption queue, and must
// be recomputed after every catalog or session mutation.
type Partition struct {
	Matched    []internal.LineItem
	Unmatched  []internal.LineItem
	NewlyAdded []internal.LineItem
}

func PartitionLines(lines []internal.LineItem, catalog []internal.Filament, sess *Session) Partition {
	p := Partition{
		Matched:    []internal.LineItem{},
		Unmatched:  []internal.LineItem{},
		NewlyAdded: []internal.LineItem{},
	}
	for _, line := range lines {
		switch {
		case sess.IsAdded(line.ArticleNumber):
			p.NewlyAdded = append(p.NewlyAdded, line)
		case FindMatch(line.ArticleNumber, catalog) != nil:
			p.Matched = append(p.Matched, line)
		default:
			p.Unmatched = append(p.Unmatched, line)
		}
	}
	return p
}

// ApplyPriceUpdate sets the matched catalog entry's price to the line's unit
// price. No other field is touched. On success the article number is marked
// updated in the session before any further partitioning can happen.
func (e *Engine) ApplyPriceUpdate(ctx context.Context, line internal.LineItem, catalog []internal.Filament, sess *Session) (internal.Filament, error) {
	match := FindMatch(line.ArticleNumber, catalog)
	if match == nil {
		return internal.Filament{}, ErrNotFoundInCatalog
	}

	if err := e.store.UpdateFilamentPrice(ctx, match.ID, line.UnitPrice); err != nil {
		return internal.Filament{}, &MutationError{Op: "update", Resource: "filament", Err: err}
	}

	sess.MarkUpdated(line.ArticleNumber)
	updated := *match
	updated.Price = internal.DecimalPtr(line.UnitPrice)
	return updated, nil
}

// ApplyBulkPriceUpdate applies ApplyPriceUpdate to every matched line not yet
// updated in this session. The session is re-checked immediately before each
// call, and a failed line does not stop the rest of the batch.
func (e *Engine) ApplyBulkPriceUpdate(ctx context.Context, lines []internal.LineItem, catalog []internal.Filament, sess *Session) []internal.ReconcileRow {
	rows := make([]internal.ReconcileRow, 0, len(lines))
	for _, line := range lines {
		if sess.IsUpdated(line.ArticleNumber) || sess.IsAdded(line.ArticleNumber) {
			continue
		}
		match := FindMatch(line.ArticleNumber, catalog)
		if match == nil {
			continue
		}

		row := baseRow(line)
		row.FilamentID = internal.Int64Ptr(match.ID)
		row.FilamentName = internal.StringPtr(match.Name)
		row.PreviousPrice = match.Price

		if _, err := e.ApplyPriceUpdate(ctx, line, catalog, sess); err != nil {
			row.Action = internal.ActionFailed
			row.Error = internal.StringPtr(err.Error())
		} else {
			row.Action = internal.ActionPriceUpdated
		}
		rows = append(rows, row)
	}
	return rows
}

// NewEntryOverrides carries optional user edits for a catalog entry created
// from an invoice line. Nil means "use the derived defaults".
type NewEntryOverrides struct {
	Name       *string
	ColorHex   *string
	Density    *float64
	DiameterMm *float64
	VendorID   *int64
	Location   *string
}

// AddNewEntry creates a catalog entry derived from the line plus a dependent
// pending-verification spool. The filament create failing aborts before any
// spool is attempted. The spool create failing triggers a compensating delete
// of the just-created filament; only when that delete also fails does a
// PartialCreateError surface the orphan for manual repair. Only a fully
// successful pair marks the article number as added.
func (e *Engine) AddNewEntry(ctx context.Context, line internal.LineItem, vendors []internal.Vendor, sess *Session, overrides *NewEntryOverrides, resolveColor func(string) string) (internal.Filament, internal.Spool, error) {
	if overrides == nil {
		overrides = &NewEntryOverrides{}
	}

	filament := internal.Filament{
		Name:        line.ColorName,
		Material:    internal.MaterialBase(line.Material),
		ColorHex:    resolveColor(line.ColorName),
		Price:       internal.DecimalPtr(line.UnitPrice),
		WeightGrams: line.NetWeightGrams,
		Density:     DefaultDensity,
		DiameterMm:  DefaultDiameterMm,
	}
	if line.ArticleNumber != "" {
		filament.ArticleNumber = internal.StringPtr(line.ArticleNumber)
	}
	if vendor := DefaultVendor(vendors); vendor != nil {
		filament.VendorID = internal.Int64Ptr(vendor.ID)
	}

	if overrides.Name != nil {
		filament.Name = *overrides.Name
	}
	if overrides.ColorHex != nil {
		filament.ColorHex = *overrides.ColorHex
	}
	if overrides.Density != nil {
		filament.Density = *overrides.Density
	}
	if overrides.DiameterMm != nil {
		filament.DiameterMm = *overrides.DiameterMm
	}
	if overrides.VendorID != nil {
		filament.VendorID = overrides.VendorID
	}

	created, err := e.store.CreateFilament(ctx, filament)
	if err != nil {
		return internal.Filament{}, internal.Spool{}, &MutationError{Op: "create", Resource: "filament", Err: err}
	}

	spool := internal.Spool{
		FilamentID:           created.ID,
		InitialWeightGrams:   line.NetWeightGrams,
		RemainingWeightGrams: line.NetWeightGrams,
		Extra: internal.SpoolExtra{
			NeedsVerification: true,
			Source:            internal.SourceInvoice,
		},
	}
	if overrides.Location != nil {
		spool.Location = *overrides.Location
	}

	createdSpool, err := e.store.CreateSpool(ctx, spool)
	if err != nil {
		if delErr := e.store.DeleteFilament(ctx, created.ID); delErr != nil {
			return created, internal.Spool{}, &PartialCreateError{FilamentID: created.ID, Err: err}
		}
		return internal.Filament{}, internal.Spool{}, &MutationError{Op: "create", Resource: "spool", Err: err}
	}

	sess.MarkAdded(line.ArticleNumber)
	return created, createdSpool, nil
}

// AddAllUnmatched runs AddNewEntry over every currently-unmatched line as a
// sequential pipeline: each line is fully processed, store confirmation
// included, before the next one starts. That removes any timing assumption
// between concurrent creates. Per-line failures are reported in the returned
// rows and do not stop the batch.
func (e *Engine) AddAllUnmatched(ctx context.Context, lines []internal.LineItem, catalog []internal.Filament, vendors []internal.Vendor, sess *Session, resolveColor func(string) string) []internal.ReconcileRow {
	rows := make([]internal.ReconcileRow, 0, len(lines))
	for _, line := range lines {
		if sess.IsAdded(line.ArticleNumber) {
			continue
		}
		if FindMatch(line.ArticleNumber, catalog) != nil {
			continue
		}

		row := baseRow(line)
		row.ColorHex = resolveColor(line.ColorName)

		filament, spool, err := e.AddNewEntry(ctx, line, vendors, sess, nil, resolveColor)
		if err != nil {
			row.Action = internal.ActionFailed
			row.Error = internal.StringPtr(err.Error())
			if filament.ID != 0 {
				row.FilamentID = internal.Int64Ptr(filament.ID)
			}
		} else {
			row.Action = internal.ActionAdded
			row.FilamentID = internal.Int64Ptr(filament.ID)
			row.FilamentName = internal.StringPtr(filament.Name)
			row.SpoolID = internal.Int64Ptr(spool.ID)
		}
		rows = append(rows, row)
	}
	return rows
}

// DefaultVendor picks the vendor for a new entry: a vendor whose name
// contains "bambu" wins, else the first vendor, else none.
func DefaultVendor(vendors []internal.Vendor) *internal.Vendor {
	for i := range vendors {
		if strings.Contains(strings.ToLower(vendors[i].Name), "bambu") {
			return &vendors[i]
		}
	}
	if len(vendors) > 0 {
		return &vendors[0]
	}
	return nil
}

// Options selects which mutations a batch run is allowed to perform.
type Options struct {
	ApplyPrices  bool
	AddUnmatched bool
}

// Run reconciles a parsed batch end to end and returns one report row per
// line. Lines left untouched by the options are reported as MATCHED or
// UNMATCHED so the report is a total view of the batch.
func (e *Engine) Run(ctx context.Context, lines []internal.LineItem, sess *Session, opts Options, resolveColor func(string) string) ([]internal.ReconcileRow, error) {
	catalog, err := e.store.ListFilaments(ctx)
	if err != nil {
		return nil, &MutationError{Op: "list", Resource: "filament", Err: err}
	}
	vendors, err := e.store.ListVendors(ctx)
	if err != nil {
		return nil, &MutationError{Op: "list", Resource: "vendor", Err: err}
	}

	part := PartitionLines(lines, catalog, sess)

	byArticle := map[string]internal.ReconcileRow{}

	if opts.ApplyPrices {
		for _, row := range e.ApplyBulkPriceUpdate(ctx, part.Matched, catalog, sess) {
			byArticle[row.ArticleNumber] = row
		}
	}
	if opts.AddUnmatched {
		for _, row := range e.AddAllUnmatched(ctx, part.Unmatched, catalog, vendors, sess, resolveColor) {
			byArticle[row.ArticleNumber] = row
		}
	}

	rows := make([]internal.ReconcileRow, 0, len(lines))
	for _, line := range lines {
		if row, ok := byArticle[line.ArticleNumber]; ok && row.LineNo == line.LineNo {
			if row.ColorHex == "" {
				row.ColorHex = resolveColor(row.ColorName)
			}
			rows = append(rows, row)
			continue
		}

		row := baseRow(line)
		row.ColorHex = resolveColor(line.ColorName)
		switch {
		case sess.IsAdded(line.ArticleNumber):
			row.Action = internal.ActionAdded
		case sess.IsUpdated(line.ArticleNumber):
			row.Action = internal.ActionPriceUpdated
		default:
			if match := FindMatch(line.ArticleNumber, catalog); match != nil {
				row.Action = internal.ActionMatched
				row.FilamentID = internal.Int64Ptr(match.ID)
				row.FilamentName = internal.StringPtr(match.Name)
				row.PreviousPrice = match.Price
			} else {
				row.Action = internal.ActionUnmatched
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func baseRow(line internal.LineItem) internal.ReconcileRow {
	return internal.ReconcileRow{
		LineNo:        line.LineNo,
		Source:        string(line.Source),
		RawLine:       line.RawLine,
		SKU:           line.SKU,
		ArticleNumber: line.ArticleNumber,
		Material:      line.Material,
		ColorName:     line.ColorName,
		UnitPrice:     line.UnitPrice,
		WeightGrams:   line.NetWeightGrams,
		Action:        internal.ActionUnmatched,
	}
}
