package memory

import (
	"context"
	"errors"
	"testing"

	"audit-readiness-service/internal/domain"
)

func TestStateStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore()

	if _, err := store.Load(ctx, "k"); !errors.Is(err, domain.ErrAssessmentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_ = store.Save(ctx, "k", []byte("one"))
	_ = store.Save(ctx, "k", []byte("two"))

	got, err := store.Load(ctx, "k")
	if err != nil || string(got) != "two" {
		t.Fatalf("expected last write, got %q %v", got, err)
	}

	_ = store.Delete(ctx, "k")
	if _, err := store.Load(ctx, "k"); !errors.Is(err, domain.ErrAssessmentNotFound) {
		t.Fatalf("expected deleted, got %v", err)
	}
}
