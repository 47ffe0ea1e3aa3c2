package pipeline

import (
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"filaflow/internal"
)

// ReportToXLSX writes one reconciliation report row per invoice line.
func ReportToXLSX(rows []internal.ReconcileRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "source", "raw_line", "sku", "article_number",
		"material", "color", "color_hex", "price_eur_kg", "weight_g",
		"action", "filament_id", "filament_name", "previous_price", "spool_id", "error",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.LineNo)
		set(2, row.Source)
		set(3, row.RawLine)
		set(4, row.SKU)
		set(5, row.ArticleNumber)
		set(6, row.Material)
		set(7, row.ColorName)
		set(8, row.ColorHex)
		set(9, row.UnitPrice.StringFixed(2))
		set(10, row.WeightGrams)
		set(11, string(row.Action))
		set(12, derefInt64(row.FilamentID))
		set(13, derefString(row.FilamentName))
		set(14, derefDecimal(row.PreviousPrice))
		set(15, derefInt64(row.SpoolID))
		set(16, derefString(row.Error))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt64(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefDecimal(v *decimal.Decimal) any {
	if v == nil {
		return ""
	}
	return v.StringFixed(2)
}
