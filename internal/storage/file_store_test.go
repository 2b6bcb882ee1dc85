package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FSM1/cipher-box-sub011/internal/tee"
)

func TestFileStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStateStore(filepath.Join(t.TempDir(), "epoch.json"))

	if _, err := store.Load(ctx); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound before first save", err)
	}

	prev := uint64(1)
	graceEnd := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	s := tee.State{
		CurrentEpoch:      2,
		CurrentPublicKey:  "02aabb",
		PreviousEpoch:     &prev,
		PreviousPublicKey: "02ccdd",
		GracePeriodEndsAt: &graceEnd,
	}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.CurrentEpoch != 2 || loaded.CurrentPublicKey != "02aabb" {
		t.Fatalf("current state mismatch: %+v", loaded)
	}
	if loaded.PreviousEpoch == nil || *loaded.PreviousEpoch != 1 {
		t.Fatalf("previous epoch mismatch: %+v", loaded)
	}
	if loaded.GracePeriodEndsAt == nil || !loaded.GracePeriodEndsAt.Equal(graceEnd) {
		t.Fatalf("grace period mismatch: %+v", loaded)
	}
}

func TestFileAuditTrailPersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rotations.jsonl")

	trail, err := OpenFileAuditTrail(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rec := tee.RotationRecord{
		FromEpoch:     1,
		ToEpoch:       2,
		FromPublicKey: "02aabb",
		ToPublicKey:   "02ccdd",
		Reason:        "scheduled",
		Timestamp:     time.Now().UTC(),
	}
	if err := trail.Record(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	// Reopening verifies the chain and continues it.
	reopened, err := OpenFileAuditTrail(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := len(reopened.Entries()); got != 1 {
		t.Fatalf("got %d entries, want 1", got)
	}
	rec.FromEpoch, rec.ToEpoch = 2, 3
	if err := reopened.Record(ctx, rec); err != nil {
		t.Fatalf("record after reopen: %v", err)
	}
	if got := len(reopened.Entries()); got != 2 {
		t.Fatalf("got %d entries, want 2", got)
	}
}
