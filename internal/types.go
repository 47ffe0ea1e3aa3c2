package internal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UnverifiedCommentMarker is the legacy marker written into a spool comment by
// earlier releases to flag a spool as pending physical confirmation. Readers
// must keep honoring it alongside the structured extra flag.
const UnverifiedCommentMarker = "[PENDIENTE ESCANEAR]"

// SourceInvoice tags spools created by invoice reconciliation.
const SourceInvoice = "invoice"

type LineSource string

const (
	SourceInvoiceText      LineSource = "invoice_text"
	SourceInvoiceHTMLTable LineSource = "invoice_html_table"
	SourceInvoicePDF       LineSource = "invoice_pdf"
)

// LineItem is one parsed invoice line. Immutable once extracted.
type LineItem struct {
	LineNo         int             `json:"lineNo"`
	Source         LineSource      `json:"source"`
	RawLine        string          `json:"rawLine"`
	SKU            string          `json:"sku"`
	ArticleNumber  string          `json:"articleNumber"`
	Material       string          `json:"material"`
	ColorName      string          `json:"color"`
	VariantCode    string          `json:"variantCode"`
	UnitPrice      decimal.Decimal `json:"price"`
	NetWeightGrams float64         `json:"weight"`
}

// Filament is a catalog entry shared by potentially many spools.
type Filament struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Material      string           `json:"material"`
	ColorHex      string           `json:"colorHex"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	WeightGrams   float64          `json:"weight"`
	Density       float64          `json:"density"`
	DiameterMm    float64          `json:"diameter"`
	ArticleNumber *string          `json:"articleNumber,omitempty"`
	VendorID      *int64           `json:"vendorId,omitempty"`
}

type Vendor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SpoolExtra is the structured side of the verification marker.
type SpoolExtra struct {
	NeedsVerification bool   `json:"needs_verification,omitempty"`
	Source            string `json:"source,omitempty"`
}

type Spool struct {
	ID                   int64      `json:"id"`
	FilamentID           int64      `json:"filamentId"`
	InitialWeightGrams   float64    `json:"initialWeight"`
	RemainingWeightGrams float64    `json:"remainingWeight"`
	Location             string     `json:"location,omitempty"`
	Comment              string     `json:"comment,omitempty"`
	Extra                SpoolExtra `json:"extra,omitempty"`
}

// SpoolDetail joins a spool with its filament and vendor for read paths.
type SpoolDetail struct {
	Spool
	Filament   Filament `json:"filament"`
	VendorName *string  `json:"vendorName,omitempty"`
}

// LineAction is the decision the reconciliation engine took for one line.
type LineAction string

const (
	ActionMatched      LineAction = "MATCHED"
	ActionPriceUpdated LineAction = "PRICE_UPDATED"
	ActionUnmatched    LineAction = "UNMATCHED"
	ActionAdded        LineAction = "ADDED"
	ActionFailed       LineAction = "FAILED"
)

// ReconcileRow is one report line for export and API responses.
type ReconcileRow struct {
	LineNo        int              `json:"lineNo"`
	Source        string           `json:"source"`
	RawLine       string           `json:"rawLine"`
	SKU           string           `json:"sku"`
	ArticleNumber string           `json:"articleNumber"`
	Material      string           `json:"material"`
	ColorName     string           `json:"color"`
	ColorHex      string           `json:"colorHex"`
	UnitPrice     decimal.Decimal  `json:"price"`
	WeightGrams   float64          `json:"weight"`
	Action        LineAction       `json:"action"`
	FilamentID    *int64           `json:"filamentId,omitempty"`
	FilamentName  *string          `json:"filamentName,omitempty"`
	PreviousPrice *decimal.Decimal `json:"previousPrice,omitempty"`
	SpoolID       *int64           `json:"spoolId,omitempty"`
	Error         *string          `json:"error,omitempty"`
}

type InvoiceRow struct {
	ID         int64
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// MaterialBase derives the catalog material from an invoice material string by
// keeping the first whitespace-delimited token: "PLA BASIC" becomes "PLA".
// Sub-grade information is dropped on purpose.
func MaterialBase(material string) string {
	fields := strings.Fields(material)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func StringPtr(v string) *string { return &v }

func Int64Ptr(v int64) *int64 { return &v }

func DecimalPtr(v decimal.Decimal) *decimal.Decimal { return &v }
