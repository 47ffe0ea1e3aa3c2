// Package invoice extracts structured filament line items from Bambu Lab
// store invoices (store.bambulab.com), arriving as pasted text, order emails
// or PDF attachments.
package invoice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"filaflow/internal"
)

// ParseError reports a batch-level extraction failure: the input was readable
// but contained no filament line items.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason
}

// Example line:
//
//	PLA Basic SKU: A00-K0-1.75-1000-SPL Variant: Black (10101) / 1kg ... €10.26
var (
	linePattern   = regexp.MustCompile(`(?i)(PLA|PETG|ABS|ASA|TPU|PA|PC|PVA|PAHT|PCTG)\s*(\w*)\s*SKU:\s*([A-Z0-9.\-]+)\s*Variant:\s*(\w+)\s*\((\d+)\).*?[€$]([\d.]+)\s*$`)
	weightPattern = regexp.MustCompile(`-(\d{3,4})-`)
)

// ParseText extracts filament line items from invoice text. It returns a
// *ParseError when the text is too short or yields no items; partially garbled
// input returns whatever parsed.
func ParseText(text string) ([]internal.LineItem, error) {
	if len(strings.TrimSpace(text)) < 10 {
		return nil, &ParseError{Reason: "invoice text is too short"}
	}

	items := parseLines(splitLines(text), internal.SourceInvoiceText)
	if len(items) == 0 {
		return nil, &ParseError{Reason: "no filament items found in invoice; make sure it is a Bambu Lab invoice with filament lines"}
	}
	return items, nil
}

func parseLines(lines []string, source internal.LineSource) []internal.LineItem {
	out := make([]internal.LineItem, 0, len(lines))
	for _, line := range lines {
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		materialType, materialVariant, sku, color, variantCode, priceRaw := m[1], m[2], m[3], m[4], m[5], m[6]

		price, err := decimal.NewFromString(priceRaw)
		if err != nil {
			continue
		}

		// The -SPL suffix marks "spool included"; the article number is the
		// SKU without it.
		articleNumber := strings.ReplaceAll(sku, "-SPL", "")

		weight := 1000.0
		if wm := weightPattern.FindStringSubmatch(sku); wm != nil {
			if parsed, err := strconv.Atoi(wm[1]); err == nil {
				weight = float64(parsed)
			}
		}

		out = append(out, internal.LineItem{
			LineNo:         len(out) + 1,
			Source:         source,
			RawLine:        strings.TrimSpace(line),
			SKU:            sku,
			ArticleNumber:  articleNumber,
			Material:       strings.ToUpper(strings.TrimSpace(materialType + " " + materialVariant)),
			ColorName:      color,
			VariantCode:    variantCode,
			UnitPrice:      price,
			NetWeightGrams: weight,
		})
	}
	return out
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// dedupeItems drops repeated lines when the same invoice arrives through more
// than one representation (text body plus HTML body plus PDF attachment).
func dedupeItems(items []internal.LineItem) []internal.LineItem {
	seen := map[string]struct{}{}
	out := make([]internal.LineItem, 0, len(items))
	for _, item := range items {
		key := fmt.Sprintf("%s|%s|%s", item.SKU, item.UnitPrice.StringFixed(2), item.ColorName)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		item.LineNo = len(out) + 1
		out = append(out, item)
	}
	return out
}
