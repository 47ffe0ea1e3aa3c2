package reconcile

import "filaflow/internal"

// FindMatch resolves an invoice line against the catalog by exact article
// number equality, first match in catalog order. An empty article number
// matches nothing: an absent join key is never a wildcard.
//
// Article numbers are expected unique in the catalog; with duplicates the
// first entry wins.
func FindMatch(articleNumber string, catalog []internal.Filament) *internal.Filament {
	if articleNumber == "" {
		return nil
	}
	for i := range catalog {
		if catalog[i].ArticleNumber != nil && *catalog[i].ArticleNumber == articleNumber {
			return &catalog[i]
		}
	}
	return nil
}
