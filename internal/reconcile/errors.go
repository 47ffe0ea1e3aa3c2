package reconcile

import (
	"errors"
	"fmt"
)

// ErrNotFoundInCatalog signals a price update attempted against a line with no
// matching catalog entry. No mutation is issued.
var ErrNotFoundInCatalog = errors.New("no catalog entry matches article number")

// MutationError wraps a store rejection of a single create or update. The
// affected line stays retryable; other lines are unaffected.
type MutationError struct {
	Op       string
	Resource string
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// PartialCreateError reports a filament created without its initial spool
// after the compensating delete of the orphan entry also failed. The filament
// is left in place and the inconsistency is surfaced for manual repair.
type PartialCreateError struct {
	FilamentID int64
	Err        error
}

func (e *PartialCreateError) Error() string {
	return fmt.Sprintf("filament %d created but initial spool create failed: %v", e.FilamentID, e.Err)
}

func (e *PartialCreateError) Unwrap() error { return e.Err }
