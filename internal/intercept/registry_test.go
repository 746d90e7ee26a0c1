package intercept

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func passInput(_ context.Context, _ InputData, _ *Context) (*InputResult, error) {
	return nil, nil
}

func TestRegistry_Register_GetReturnsLatest(t *testing.T) {
	t.Parallel()

	r := NewRegistry("sess-1", testLogger())
	r.Register(Registration{ID: "a", Name: "first", OnInput: passInput})
	r.Register(Registration{ID: "a", Name: "second", OnInput: passInput})

	reg, ok := r.Get("a")
	if !ok {
		t.Fatal("expected registration for id a")
	}
	if reg.Name != "second" {
		t.Errorf("Name = %q, want %q (last write wins)", reg.Name, "second")
	}
}

func TestRegistry_Get_MissingID(t *testing.T) {
	t.Parallel()

	r := NewRegistry("sess-1", testLogger())
	if _, ok := r.Get("nope"); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestRegistry_Unregister_Idempotent(t *testing.T) {
	t.Parallel()

	r := NewRegistry("sess-1", testLogger())
	r.Register(Registration{ID: "a", OnInput: passInput})

	if !r.Unregister("a") {
		t.Error("first Unregister = false, want true")
	}
	if r.Unregister("a") {
		t.Error("second Unregister = true, want false")
	}
	if r.Unregister("never-existed") {
		t.Error("Unregister of unknown id = true, want false")
	}
}

func TestRegistry_Clear(t *testing.T) {
	t.Parallel()

	r := NewRegistry("sess-1", testLogger())
	r.Register(Registration{ID: "a", OnInput: passInput})
	r.Register(Registration{ID: "b", OnInput: passInput})

	r.Clear()

	if got := r.All(); len(got) != 0 {
		t.Errorf("All() after Clear returned %d entries, want 0", len(got))
	}
}

func TestRegistry_All_SnapshotInRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry("sess-1", testLogger())
	r.Register(Registration{ID: "c", OnInput: passInput})
	r.Register(Registration{ID: "a", OnInput: passInput})
	r.Register(Registration{ID: "b", OnInput: passInput})

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d entries, want 3", len(all))
	}
	want := []string{"c", "a", "b"}
	for i, reg := range all {
		if reg.ID != want[i] {
			t.Errorf("All()[%d].ID = %q, want %q", i, reg.ID, want[i])
		}
	}

	// Mutating the snapshot must not touch the registry.
	all[0] = Registration{ID: "mutated"}
	if _, ok := r.Get("c"); !ok {
		t.Error("mutating the snapshot affected the registry")
	}
}

func TestRegistry_Replace_KeepsOriginalPosition(t *testing.T) {
	t.Parallel()

	r := NewRegistry("sess-1", testLogger())
	r.Register(Registration{ID: "a", OnInput: passInput})
	r.Register(Registration{ID: "b", OnInput: passInput})
	r.Register(Registration{ID: "a", Name: "replaced", OnInput: passInput})

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d entries, want 2", len(all))
	}
	if all[0].ID != "a" || all[0].Name != "replaced" {
		t.Errorf("All()[0] = %q/%q, want replaced entry a in original position", all[0].ID, all[0].Name)
	}
}

func TestRegistry_SessionID(t *testing.T) {
	t.Parallel()

	r := NewRegistry("sess-42", testLogger())
	if r.SessionID() != "sess-42" {
		t.Errorf("SessionID() = %q, want %q", r.SessionID(), "sess-42")
	}
}
