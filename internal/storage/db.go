package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"filaflow/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS vendors (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS filaments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  material TEXT NOT NULL,
  colorHex TEXT NOT NULL,
  price TEXT,
  weight REAL NOT NULL,
  density REAL NOT NULL,
  diameter REAL NOT NULL,
  articleNumber TEXT,
  vendorId INTEGER,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(vendorId) REFERENCES vendors(id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_filaments_articleNumber
  ON filaments(articleNumber) WHERE articleNumber IS NOT NULL;

CREATE TABLE IF NOT EXISTS spools (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  filamentId INTEGER NOT NULL,
  initialWeight REAL NOT NULL,
  remainingWeight REAL NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  comment TEXT NOT NULL DEFAULT '',
  extraJson TEXT NOT NULL DEFAULT '{}',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(filamentId) REFERENCES filaments(id)
);
CREATE INDEX IF NOT EXISTS idx_spools_filamentId ON spools(filamentId);

CREATE TABLE IF NOT EXISTS invoices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS import_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  invoiceId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(invoiceId) REFERENCES invoices(id)
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) ListVendors(ctx context.Context) ([]internal.Vendor, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT id, name FROM vendors ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Vendor
	for rows.Next() {
		var v internal.Vendor
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (d *DB) CreateVendor(ctx context.Context, name string) (internal.Vendor, error) {
	result, err := d.conn.ExecContext(ctx, `INSERT INTO vendors (name) VALUES (?)`, name)
	if err != nil {
		return internal.Vendor{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return internal.Vendor{}, err
	}
	return internal.Vendor{ID: id, Name: name}, nil
}

func (d *DB) ListFilaments(ctx context.Context) ([]internal.Filament, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, name, material, colorHex, price, weight, density, diameter, articleNumber, vendorId
FROM filaments ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Filament
	for rows.Next() {
		f, err := scanFilament(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (d *DB) GetFilament(ctx context.Context, id int64) (internal.Filament, error) {
	row := d.conn.QueryRowContext(ctx, `
SELECT id, name, material, colorHex, price, weight, density, diameter, articleNumber, vendorId
FROM filaments WHERE id = ?`, id)
	f, err := scanFilament(row)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Filament{}, fmt.Errorf("filament not found: id=%d", id)
	}
	return f, err
}

func (d *DB) CreateFilament(ctx context.Context, f internal.Filament) (internal.Filament, error) {
	var price *string
	if f.Price != nil {
		price = internal.StringPtr(f.Price.StringFixed(2))
	}
	result, err := d.conn.ExecContext(ctx, `
INSERT INTO filaments (name, material, colorHex, price, weight, density, diameter, articleNumber, vendorId)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, f.Name, f.Material, f.ColorHex, price, f.WeightGrams, f.Density, f.DiameterMm, f.ArticleNumber, f.VendorID)
	if err != nil {
		return internal.Filament{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return internal.Filament{}, err
	}
	f.ID = id
	return f, nil
}

// DeleteFilament removes a catalog entry. Used as the compensating action
// when the dependent initial-spool create fails.
func (d *DB) DeleteFilament(ctx context.Context, id int64) error {
	result, err := d.conn.ExecContext(ctx, `DELETE FROM filaments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("filament not found: id=%d", id)
	}
	return nil
}

// UpdateFilamentPrice is deliberately a single-field mutation: invoice
// reconciliation never touches any other catalog field.
func (d *DB) UpdateFilamentPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	result, err := d.conn.ExecContext(ctx, `
UPDATE filaments SET price = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, price.StringFixed(2), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("filament not found: id=%d", id)
	}
	return nil
}

func (d *DB) CreateSpool(ctx context.Context, s internal.Spool) (internal.Spool, error) {
	extraJSON, err := json.Marshal(s.Extra)
	if err != nil {
		return internal.Spool{}, err
	}
	result, err := d.conn.ExecContext(ctx, `
INSERT INTO spools (filamentId, initialWeight, remainingWeight, location, comment, extraJson)
VALUES (?, ?, ?, ?, ?, ?)
`, s.FilamentID, s.InitialWeightGrams, s.RemainingWeightGrams, s.Location, s.Comment, string(extraJSON))
	if err != nil {
		return internal.Spool{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return internal.Spool{}, err
	}
	s.ID = id
	return s, nil
}

func (d *DB) GetSpool(ctx context.Context, id int64) (internal.Spool, error) {
	row := d.conn.QueryRowContext(ctx, `
SELECT id, filamentId, initialWeight, remainingWeight, location, comment, extraJson
FROM spools WHERE id = ?`, id)
	s, err := scanSpool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Spool{}, fmt.Errorf("spool not found: id=%d", id)
	}
	return s, err
}

func (d *DB) ListSpools(ctx context.Context) ([]internal.Spool, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, filamentId, initialWeight, remainingWeight, location, comment, extraJson
FROM spools ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Spool
	for rows.Next() {
		s, err := scanSpool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListSpoolDetails joins spools with their filament and vendor for the read
// paths (dashboard, search, labels).
func (d *DB) ListSpoolDetails(ctx context.Context) ([]internal.SpoolDetail, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT
  s.id, s.filamentId, s.initialWeight, s.remainingWeight, s.location, s.comment, s.extraJson,
  f.id, f.name, f.material, f.colorHex, f.price, f.weight, f.density, f.diameter, f.articleNumber, f.vendorId,
  v.name
FROM spools s
JOIN filaments f ON f.id = s.filamentId
LEFT JOIN vendors v ON v.id = f.vendorId
ORDER BY s.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SpoolDetail
	for rows.Next() {
		var detail internal.SpoolDetail
		var extraJSON string
		var price, articleNumber, vendorName sql.NullString
		var vendorID sql.NullInt64
		if err := rows.Scan(
			&detail.ID, &detail.FilamentID, &detail.InitialWeightGrams, &detail.RemainingWeightGrams,
			&detail.Location, &detail.Comment, &extraJSON,
			&detail.Filament.ID, &detail.Filament.Name, &detail.Filament.Material, &detail.Filament.ColorHex,
			&price, &detail.Filament.WeightGrams, &detail.Filament.Density, &detail.Filament.DiameterMm,
			&articleNumber, &vendorID, &vendorName,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(extraJSON), &detail.Extra)
		if price.Valid {
			parsed, err := decimal.NewFromString(price.String)
			if err == nil {
				detail.Filament.Price = internal.DecimalPtr(parsed)
			}
		}
		if articleNumber.Valid {
			detail.Filament.ArticleNumber = internal.StringPtr(articleNumber.String)
		}
		if vendorID.Valid {
			detail.Filament.VendorID = internal.Int64Ptr(vendorID.Int64)
		}
		if vendorName.Valid {
			detail.VendorName = internal.StringPtr(vendorName.String)
		}
		out = append(out, detail)
	}
	return out, rows.Err()
}

// ClearSpoolVerification clears both unverified-marker representations in one
// mutation: the legacy comment token and the structured extra flag. The
// provenance source survives in the extra blob.
func (d *DB) ClearSpoolVerification(ctx context.Context, id int64) error {
	spool, err := d.GetSpool(ctx, id)
	if err != nil {
		return err
	}

	spool.Extra.NeedsVerification = false
	extraJSON, err := json.Marshal(spool.Extra)
	if err != nil {
		return err
	}

	_, err = d.conn.ExecContext(ctx, `
UPDATE spools SET comment = '', extraJson = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, string(extraJSON), id)
	return err
}

func (d *DB) UpsertInvoice(ctx context.Context, provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.InvoiceRow, error) {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO invoices (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.InvoiceRow{}, err
	}

	row, err := d.GetInvoiceByProviderMessageID(ctx, provider, messageID)
	if err != nil {
		return internal.InvoiceRow{}, err
	}
	if row == nil {
		return internal.InvoiceRow{}, errors.New("failed to upsert invoice")
	}
	return *row, nil
}

func (d *DB) GetInvoiceByProviderMessageID(ctx context.Context, provider, messageID string) (*internal.InvoiceRow, error) {
	var row internal.InvoiceRow
	err := d.conn.QueryRowContext(ctx, `
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM invoices WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustInvoiceByProviderMessageID(ctx context.Context, provider, messageID string) (internal.InvoiceRow, error) {
	row, err := d.GetInvoiceByProviderMessageID(ctx, provider, messageID)
	if err != nil {
		return internal.InvoiceRow{}, err
	}
	if row == nil {
		return internal.InvoiceRow{}, fmt.Errorf("invoice not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListInvoicesByStatus(ctx context.Context, status string, limit int) ([]internal.InvoiceRow, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM invoices WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.InvoiceRow
	for rows.Next() {
		var row internal.InvoiceRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateInvoiceStatus(ctx context.Context, invoiceID int64, status string) error {
	_, err := d.conn.ExecContext(ctx, `UPDATE invoices SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, invoiceID)
	return err
}

func (d *DB) InsertRun(ctx context.Context, traceID string, invoiceID int64, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO import_runs (traceId, invoiceId, timingsJson, countsJson) VALUES (?, ?, ?, ?)
`, traceID, invoiceID, string(timingsJSON), string(countsJSON))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFilament(row rowScanner) (internal.Filament, error) {
	var f internal.Filament
	var price, articleNumber sql.NullString
	var vendorID sql.NullInt64
	if err := row.Scan(
		&f.ID, &f.Name, &f.Material, &f.ColorHex, &price,
		&f.WeightGrams, &f.Density, &f.DiameterMm, &articleNumber, &vendorID,
	); err != nil {
		return internal.Filament{}, err
	}
	if price.Valid {
		parsed, err := decimal.NewFromString(price.String)
		if err != nil {
			return internal.Filament{}, fmt.Errorf("filament %d: bad price %q: %w", f.ID, price.String, err)
		}
		f.Price = internal.DecimalPtr(parsed)
	}
	if articleNumber.Valid {
		f.ArticleNumber = internal.StringPtr(articleNumber.String)
	}
	if vendorID.Valid {
		f.VendorID = internal.Int64Ptr(vendorID.Int64)
	}
	return f, nil
}

func scanSpool(row rowScanner) (internal.Spool, error) {
	var s internal.Spool
	var extraJSON string
	if err := row.Scan(
		&s.ID, &s.FilamentID, &s.InitialWeightGrams, &s.RemainingWeightGrams,
		&s.Location, &s.Comment, &extraJSON,
	); err != nil {
		return internal.Spool{}, err
	}
	_ = json.Unmarshal([]byte(extraJSON), &s.Extra)
	return s, nil
}
