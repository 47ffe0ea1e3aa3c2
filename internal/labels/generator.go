// Package labels renders printable QR label sheets for spools, so physical
// rolls can be tagged and scanned during receipt verification.
package labels

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"filaflow/internal"
	"filaflow/internal/inventory"
)

type SheetConfig struct {
	Cols       int
	Rows       int
	MarginTop  float64
	MarginLeft float64
	GapX       float64
	GapY       float64
}

func DefaultSheetConfig(cols, rows int) SheetConfig {
	if cols <= 0 {
		cols = 3
	}
	if rows <= 0 {
		rows = 8
	}
	return SheetConfig{Cols: cols, Rows: rows, MarginTop: 10, MarginLeft: 10, GapX: 2, GapY: 2}
}

// GenerateSpoolLabelsPDF lays out one QR label per spool on A4 pages. The QR
// payload is the spool reference scanned at confirmation time.
func GenerateSpoolLabelsPDF(spools []internal.SpoolDetail, cfg SheetConfig) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 9)

	pageWidth, pageHeight := 210.0, 297.0
	availW := pageWidth - cfg.MarginLeft*2
	availH := pageHeight - cfg.MarginTop*2
	labelW := (availW - float64(cfg.Cols-1)*cfg.GapX) / float64(cfg.Cols)
	labelH := (availH - float64(cfg.Rows-1)*cfg.GapY) / float64(cfg.Rows)

	labelsPerPage := cfg.Cols * cfg.Rows

	for i, spool := range spools {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		indexOnPage := i % labelsPerPage
		col := indexOnPage % cfg.Cols
		row := indexOnPage / cfg.Cols

		x := cfg.MarginLeft + float64(col)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(row)*(labelH+cfg.GapY)

		qrContent := fmt.Sprintf("filaflow://spool/%d", spool.ID)
		qrPng, err := qrcode.Encode(qrContent, qrcode.Medium, 256)
		if err != nil {
			return nil, err
		}

		imgName := fmt.Sprintf("qr_%d", i)
		imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(qrPng))

		qrSize := labelH * 0.6
		if qrSize > labelW {
			qrSize = labelW * 0.9
		}
		qrX := x + (labelW-qrSize)/2
		qrY := y + 2
		pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, imgOptions, 0, "")

		caption := fmt.Sprintf("#%d %s %s", spool.ID, spool.Filament.Material, spool.Filament.Name)
		pdf.SetXY(x, y+qrSize+3)
		pdf.SetFontSize(7)
		pdf.CellFormat(labelW, 3, caption, "", 0, "C", false, 0, "")

		status := fmt.Sprintf("%d%%", inventory.StockPercent(spool.Spool))
		if inventory.IsUnverified(spool.Spool) {
			status = "PENDING"
		}
		pdf.SetXY(x, y+qrSize+7)
		pdf.SetFontSize(6)
		pdf.CellFormat(labelW, 3, status, "", 0, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
