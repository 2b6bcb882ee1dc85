package audit

import (
	"testing"
)

type event struct {
	Name string `json:"name"`
}

func TestAppendAndVerify(t *testing.T) {
	trail := New()
	for _, name := range []string{"first", "second", "third"} {
		if _, err := trail.Append(event{Name: name}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := trail.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(trail.Entries()) != 3 {
		t.Fatalf("got %d entries, want 3", len(trail.Entries()))
	}
}

func TestLoadRejectsTamperedPayload(t *testing.T) {
	trail := New()
	for _, name := range []string{"first", "second"} {
		if _, err := trail.Append(event{Name: name}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries := trail.Entries()
	entries[0].Payload = []byte(`{"name":"forged"}`)
	if _, err := Load(entries); err != ErrChainBroken {
		t.Fatalf("got %v, want ErrChainBroken", err)
	}
}

func TestLoadRejectsDroppedEntry(t *testing.T) {
	trail := New()
	for _, name := range []string{"first", "second", "third"} {
		if _, err := trail.Append(event{Name: name}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries := trail.Entries()
	// Removing a middle entry breaks the link to its successor.
	spliced := append(entries[:1:1], entries[2:]...)
	if _, err := Load(spliced); err != ErrChainBroken {
		t.Fatalf("got %v, want ErrChainBroken", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	trail := New()
	if _, err := trail.Append(event{Name: "only"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	loaded, err := Load(trail.Entries())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.LastHash() != trail.LastHash() {
		t.Fatalf("last hash mismatch after reload")
	}

	// The reloaded trail keeps chaining from where the original left off.
	if _, err := loaded.Append(event{Name: "next"}); err != nil {
		t.Fatalf("append after load: %v", err)
	}
	if err := loaded.Verify(); err != nil {
		t.Fatalf("verify after append: %v", err)
	}
}
