package inventory

import (
	"context"
	"strings"

	"filaflow/internal"
)

// Two generations of the unverified marker coexist: a structured extra flag
// and a legacy comment token. Reads must honor both; confirming clears both in
// one mutation and is idempotent.

// VerifyStore is the store slice the verification transition needs.
type VerifyStore interface {
	GetSpool(ctx context.Context, id int64) (internal.Spool, error)
	ClearSpoolVerification(ctx context.Context, id int64) error
}

// IsUnverified reports whether a spool is still pending physical
// confirmation, checking both marker representations.
func IsUnverified(s internal.Spool) bool {
	if s.Extra.NeedsVerification {
		return true
	}
	return strings.Contains(s.Comment, internal.UnverifiedCommentMarker)
}

// ConfirmVerified performs the UNVERIFIED -> VERIFIED transition for a spool.
// A spool with no marker is already VERIFIED and the call is a no-op; the
// returned bool reports whether a mutation was issued.
func ConfirmVerified(ctx context.Context, store VerifyStore, spoolID int64) (bool, error) {
	spool, err := store.GetSpool(ctx, spoolID)
	if err != nil {
		return false, err
	}
	if !IsUnverified(spool) {
		return false, nil
	}
	if err := store.ClearSpoolVerification(ctx, spoolID); err != nil {
		return false, err
	}
	return true, nil
}
