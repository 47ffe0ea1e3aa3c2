package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"filaflow/internal"
)

type fakeVerifyStore struct {
	spools map[int64]internal.Spool
}

func (s *fakeVerifyStore) GetSpool(ctx context.Context, id int64) (internal.Spool, error) {
	spool, ok := s.spools[id]
	if !ok {
		return internal.Spool{}, errors.New("spool not found")
	}
	return spool, nil
}

func (s *fakeVerifyStore) ClearSpoolVerification(ctx context.Context, id int64) error {
	spool := s.spools[id]
	spool.Extra.NeedsVerification = false
	spool.Comment = strings.TrimSpace(strings.ReplaceAll(spool.Comment, internal.UnverifiedCommentMarker, ""))
	s.spools[id] = spool
	return nil
}

func TestIsUnverified(t *testing.T) {
	if IsUnverified(internal.Spool{}) {
		t.Fatal("plain spool should be verified")
	}
	if !IsUnverified(internal.Spool{Extra: internal.SpoolExtra{NeedsVerification: true}}) {
		t.Fatal("extra flag not honored")
	}
	if !IsUnverified(internal.Spool{Comment: "recibido " + internal.UnverifiedCommentMarker}) {
		t.Fatal("legacy comment marker not honored")
	}
}

func TestConfirmVerified(t *testing.T) {
	store := &fakeVerifyStore{spools: map[int64]internal.Spool{
		1: {ID: 1, Extra: internal.SpoolExtra{NeedsVerification: true, Source: internal.SourceInvoice}},
	}}

	changed, err := ConfirmVerified(context.Background(), store, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a mutation")
	}
	if IsUnverified(store.spools[1]) {
		t.Fatal("spool still unverified")
	}

	// Second confirmation is a no-op.
	changed, err = ConfirmVerified(context.Background(), store, 1)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("second confirm must not mutate")
	}
}

func TestConfirmVerifiedLegacyComment(t *testing.T) {
	store := &fakeVerifyStore{spools: map[int64]internal.Spool{
		2: {ID: 2, Comment: internal.UnverifiedCommentMarker},
	}}

	changed, err := ConfirmVerified(context.Background(), store, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a mutation")
	}
	if IsUnverified(store.spools[2]) {
		t.Fatal("comment marker not cleared")
	}
}

func TestConfirmVerifiedMissingSpool(t *testing.T) {
	store := &fakeVerifyStore{spools: map[int64]internal.Spool{}}
	if _, err := ConfirmVerified(context.Background(), store, 99); err == nil {
		t.Fatal("expected error")
	}
}
