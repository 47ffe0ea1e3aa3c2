package pipeline

import "testing"

func TestDetectInvoicePositive(t *testing.T) {
	res := DetectInvoice(
		"Your Bambu Lab order ES1234 confirmation",
		"PLA Basic SKU: A00-K0-1.75-1000-SPL Variant: Black (10101) €10.26\nPETG HF SKU: B02-G6-1.75-500-SPL Variant: Green (20300) €8.75",
		"", nil)
	if !res.IsInvoice {
		t.Fatalf("score=%f reason=%s", res.Score, res.Reason)
	}
}

func TestDetectInvoiceNegative(t *testing.T) {
	res := DetectInvoice("Weekly newsletter", "New printer announcements and community prints.", "", nil)
	if res.IsInvoice {
		t.Fatalf("score=%f", res.Score)
	}
}

func TestDetectInvoicePDFAttachment(t *testing.T) {
	res := DetectInvoice("Receipt", "Attached.", "", []string{"invoice_es1234.pdf"})
	if !res.IsInvoice {
		t.Fatalf("score=%f", res.Score)
	}
}
