package registry

import "testing"

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := New[string]("shader")
	if err := r.Register("a", "src"); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}
	err := r.Register("a", "other")
	if _, ok := err.(*ErrDuplicateID); !ok {
		t.Fatalf("Register() duplicate error = %v, want *ErrDuplicateID", err)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := New[string]("image")
	_, err := r.Get("missing")
	if _, ok := err.(*ErrNotFound); !ok {
		t.Fatalf("Get() error = %v, want *ErrNotFound", err)
	}
}

func TestRegistry_UnregisterInUse(t *testing.T) {
	r := New[int]("web renderer")
	if err := r.Register("w1", 1); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}
	inUse := func(id string) bool { return id == "w1" }
	err := r.Unregister("w1", inUse)
	if _, ok := err.(*ErrInUse); !ok {
		t.Fatalf("Unregister() error = %v, want *ErrInUse", err)
	}
	if !r.Has("w1") {
		t.Errorf("Has(%q) = false after a rejected unregister, want true", "w1")
	}
}

func TestRegistry_UnregisterSucceedsWhenNotInUse(t *testing.T) {
	r := New[int]("image")
	_ = r.Register("img1", 42)
	inUse := func(string) bool { return false }
	if err := r.Unregister("img1", inUse); err != nil {
		t.Fatalf("Unregister() returned error: %v", err)
	}
	if r.Has("img1") {
		t.Errorf("Has(%q) = true after successful unregister, want false", "img1")
	}
}

func TestRegistry_IDs(t *testing.T) {
	r := New[int]("shader")
	_ = r.Register("a", 1)
	_ = r.Register("b", 2)
	ids := r.IDs()
	if len(ids) != 2 {
		t.Fatalf("IDs() = %v, want 2 entries", ids)
	}
}
