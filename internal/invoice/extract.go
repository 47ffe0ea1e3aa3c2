package invoice

import (
	"bytes"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"

	"filaflow/internal"
)

// EmailContent describes the parts of a message relevant to invoice
// detection.
type EmailContent struct {
	Subject         string
	Text            string
	HTML            string
	AttachmentNames []string
}

// ExtractFromEmailRaw pulls filament line items out of a raw RFC 822 message:
// the plain-text body, HTML order tables, and any PDF attachments. Garbled
// parts are skipped rather than failing the whole message.
func ExtractFromEmailRaw(raw []byte) ([]internal.LineItem, EmailContent, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, EmailContent{}, err
	}

	items := make([]internal.LineItem, 0)
	if env.Text != "" {
		items = append(items, parseLines(splitLines(env.Text), internal.SourceInvoiceText)...)
	}
	if env.HTML != "" {
		items = append(items, ParseHTML(env.HTML)...)
	}

	attachmentNames := make([]string, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		attachmentNames = append(attachmentNames, filename)

		if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
			extra, err := ParsePDF(att.Content)
			if err == nil {
				items = append(items, extra...)
			}
		}
	}

	content := EmailContent{
		Subject:         env.GetHeader("Subject"),
		Text:            env.Text,
		HTML:            env.HTML,
		AttachmentNames: attachmentNames,
	}
	return dedupeItems(items), content, nil
}

// ParseHTML flattens HTML order tables into text lines and runs the line
// parser over them. Rows that do not look like filament lines are ignored.
func ParseHTML(html string) []internal.LineItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	lines := []string{}
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			text := normalizeSpaces(cell.Text())
			if text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " "))
		}
	})

	// Order confirmations sometimes carry the items outside a table.
	if len(lines) == 0 {
		lines = splitLines(doc.Text())
	}

	return parseLines(lines, internal.SourceInvoiceHTMLTable)
}

// ParsePDF extracts plain text from every page of a PDF invoice and runs the
// line parser over it.
func ParsePDF(content []byte) ([]internal.LineItem, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	lines := []string{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		lines = append(lines, splitLines(text)...)
	}

	return parseLines(lines, internal.SourceInvoicePDF), nil
}

// ExtractFromInput handles one-off reconciliation runs from a file or pasted
// text.
func ExtractFromInput(inputType, input string) ([]internal.LineItem, error) {
	switch inputType {
	case "text":
		return ParseText(input)
	case "html":
		items := ParseHTML(input)
		if len(items) == 0 {
			return nil, &ParseError{Reason: "no filament items found in HTML invoice"}
		}
		return items, nil
	case "pdf":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		items, err := ParsePDF(blob)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, &ParseError{Reason: "no filament items found in PDF invoice"}
		}
		return items, nil
	case "email":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		items, _, err := ExtractFromEmailRaw(blob)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, &ParseError{Reason: "no filament items found in email"}
		}
		return items, nil
	default:
		return nil, &ParseError{Reason: "unsupported input type: " + inputType}
	}
}

func normalizeSpaces(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
