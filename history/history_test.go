package history

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestOpenMissingFile(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "nested", "memory.json"))
	if err != nil {
		t.Fatalf("expected missing file to be fine, got %v", err)
	}
	if len(l.entries) != 0 {
		t.Errorf("expected empty log, got %d users", len(l.entries))
	}
}

func TestAppendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "memory.json")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, msg := range []string{"sushi please", "no shellfish"} {
		if err := l.Append("alice", msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := l.Append("bob", "pizza"); err != nil {
		t.Fatalf("append: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Get("alice"); !reflect.DeepEqual(got, []string{"sushi please", "no shellfish"}) {
		t.Errorf("unexpected alice log %v", got)
	}
	if got := reopened.Get("bob"); !reflect.DeepEqual(got, []string{"pizza"}) {
		t.Errorf("unexpected bob log %v", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the snapshot file, got %d entries", len(entries))
	}
}

func TestGetReturnsCopy(t *testing.T) {
	l, _ := Open(filepath.Join(t.TempDir(), "memory.json"))
	_ = l.Append("alice", "ramen")

	got := l.Get("alice")
	got[0] = "changed"
	if l.Get("alice")[0] != "ramen" {
		t.Error("expected Get to return a copy")
	}
	if len(l.Get("nobody")) != 0 {
		t.Error("expected empty log for unknown user")
	}
}

func TestForget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	l, _ := Open(path)
	_ = l.Append("alice", "a")
	_ = l.Append("bob", "b")
	_ = l.Append("carol", "c")

	if err := l.Forget("alice", "nobody"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	reopened, _ := Open(path)
	if len(reopened.entries) != 2 || len(reopened.Get("alice")) != 0 {
		t.Errorf("expected alice forgotten, got %d users", len(reopened.entries))
	}

	if err := l.Forget("bob", "carol"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	reopened, _ = Open(path)
	if len(reopened.entries) != 0 {
		t.Errorf("expected empty log, got %d users", len(reopened.entries))
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected decode error")
	}
}
