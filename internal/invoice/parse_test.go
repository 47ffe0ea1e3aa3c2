package invoice

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"filaflow/internal"
)

func mustDecimal(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestParseTextBambuLine(t *testing.T) {
	text := "Order #ES1234\nPLA Basic SKU: A00-K0-1.75-1000-SPL Variant: Black (10101) / 1kg with spool €10.26\nShipping €4.99\n"
	items, err := ParseText(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("len=%d", len(items))
	}

	item := items[0]
	if item.SKU != "A00-K0-1.75-1000-SPL" {
		t.Fatalf("sku=%s", item.SKU)
	}
	if item.ArticleNumber != "A00-K0-1.75-1000" {
		t.Fatalf("articleNumber=%s", item.ArticleNumber)
	}
	if item.Material != "PLA BASIC" {
		t.Fatalf("material=%s", item.Material)
	}
	if internal.MaterialBase(item.Material) != "PLA" {
		t.Fatalf("materialBase=%s", internal.MaterialBase(item.Material))
	}
	if item.ColorName != "Black" || item.VariantCode != "10101" {
		t.Fatalf("color=%s variant=%s", item.ColorName, item.VariantCode)
	}
	if !item.UnitPrice.Equal(mustDecimal(t, "10.26")) {
		t.Fatalf("price=%s", item.UnitPrice)
	}
	if item.NetWeightGrams != 1000 {
		t.Fatalf("weight=%f", item.NetWeightGrams)
	}
}

func TestParseTextWeightFromSKU(t *testing.T) {
	items, err := ParseText("PETG HF SKU: B02-G6-1.75-500-SPL Variant: Green (20300) $13.50")
	if err != nil {
		t.Fatal(err)
	}
	if items[0].NetWeightGrams != 500 {
		t.Fatalf("weight=%f", items[0].NetWeightGrams)
	}
	if items[0].Material != "PETG HF" {
		t.Fatalf("material=%s", items[0].Material)
	}
}

func TestParseTextMultipleLines(t *testing.T) {
	text := "PLA Basic SKU: A00-K0-1.75-1000-SPL Variant: Black (10101) €10.26\n" +
		"PLA Matte SKU: A01-W1-1.75-1000-SPL Variant: White (11100) €11.50\n"
	items, err := ParseText(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("len=%d", len(items))
	}
	if items[0].LineNo != 1 || items[1].LineNo != 2 {
		t.Fatalf("lineNo=%d,%d", items[0].LineNo, items[1].LineNo)
	}
}

func TestParseTextErrors(t *testing.T) {
	var parseErr *ParseError

	_, err := ParseText("short")
	if !errors.As(err, &parseErr) {
		t.Fatalf("want ParseError, got %v", err)
	}

	_, err = ParseText("this is a long enough text but contains no filament lines at all")
	if !errors.As(err, &parseErr) {
		t.Fatalf("want ParseError, got %v", err)
	}
}

func TestDedupeItems(t *testing.T) {
	items, err := ParseText("PLA Basic SKU: A00-K0-1.75-1000-SPL Variant: Black (10101) €10.26")
	if err != nil {
		t.Fatal(err)
	}
	doubled := append(items, items...)
	out := dedupeItems(doubled)
	if len(out) != 1 {
		t.Fatalf("len=%d", len(out))
	}
	if out[0].LineNo != 1 {
		t.Fatalf("lineNo=%d", out[0].LineNo)
	}
}
