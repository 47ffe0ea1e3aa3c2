package invoice

import (
	"testing"

	"filaflow/internal"
)

func TestParseHTMLTable(t *testing.T) {
	html := `<html><body><table>
<tr><th>Item</th><th>Price</th></tr>
<tr><td>PLA Basic SKU: A00-K0-1.75-1000-SPL Variant: Black (10101)</td><td>€10.26</td></tr>
<tr><td>Shipping</td><td>€4.99</td></tr>
</table></body></html>`

	items := ParseHTML(html)
	if len(items) != 1 {
		t.Fatalf("len=%d", len(items))
	}
	if items[0].Source != internal.SourceInvoiceHTMLTable {
		t.Fatalf("source=%s", items[0].Source)
	}
	if items[0].ArticleNumber != "A00-K0-1.75-1000" {
		t.Fatalf("articleNumber=%s", items[0].ArticleNumber)
	}
}

func TestExtractFromEmailRaw(t *testing.T) {
	raw := []byte("From: store@bambulab.com\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Your Bambu Lab order\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Thanks for your order!\r\n" +
		"PLA Basic SKU: A00-K0-1.75-1000-SPL Variant: Black (10101) €10.26\r\n" +
		"PETG HF SKU: B02-G6-1.75-1000-SPL Variant: Blue (20601) €13.50\r\n")

	items, content, err := ExtractFromEmailRaw(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("len=%d", len(items))
	}
	if content.Subject != "Your Bambu Lab order" {
		t.Fatalf("subject=%s", content.Subject)
	}
	if content.Text == "" {
		t.Fatal("empty text body")
	}
	if items[0].ColorName != "Black" || items[1].ColorName != "Blue" {
		t.Fatalf("colors=%s,%s", items[0].ColorName, items[1].ColorName)
	}
}

func TestExtractFromInputUnsupportedType(t *testing.T) {
	if _, err := ExtractFromInput("docx", "whatever"); err == nil {
		t.Fatal("expected error")
	}
}
