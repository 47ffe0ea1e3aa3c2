package pipeline

import "strings"

type DetectResult struct {
	IsInvoice bool
	Score     float64
	Reason    string
}

var detectKeywords = []string{"invoice", "order", "receipt", "bambu", "factura", "pedido", "rechnung"}

// DetectInvoice scores whether a fetched message looks like a store invoice
// before any reconciliation work is spent on it.
func DetectInvoice(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	skuHits := strings.Count(text, "sku:") + strings.Count(html, "sku:")
	if skuHits >= 2 {
		score += 0.4
	} else if skuHits == 1 {
		score += 0.2
	}

	for _, name := range attachmentNames {
		if strings.HasSuffix(strings.ToLower(name), ".pdf") {
			score += 0.25
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.15
	}
	if score > 1 {
		score = 1
	}

	isInvoice := score >= 0.45
	reason := "rules_negative"
	if isInvoice {
		reason = "rules_positive"
	}

	return DetectResult{IsInvoice: isInvoice, Score: score, Reason: reason}
}
