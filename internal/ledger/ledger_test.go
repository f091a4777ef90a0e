package ledger

import (
	"path/filepath"
	"testing"
)

func TestOpenStartsEmptyWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liked.json")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d entries", l.Len())
	}
	if l.HasLiked("conf-1") {
		t.Fatalf("empty ledger should not report likes")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestRecordLikeThenHasLiked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liked.json")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.RecordLike("conf-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.HasLiked("conf-1") {
		t.Fatalf("recorded like should be visible")
	}
	if l.HasLiked("conf-2") {
		t.Fatalf("unrecorded id should not be liked")
	}
}

func TestRecordLikeIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liked.json")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.RecordLike("conf-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.RecordLike("conf-1"); err != nil {
		t.Fatalf("unexpected error on repeat: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("repeat record should not grow membership, got %d", l.Len())
	}
}

func TestLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liked.json")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := l.RecordLike(id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error on reopen: %v", err)
	}
	if reopened.Len() != 3 {
		t.Fatalf("expected 3 entries after reopen, got %d", reopened.Len())
	}
	for _, id := range []string{"a", "b", "c"} {
		if !reopened.HasLiked(id) {
			t.Fatalf("expected %s to survive reopen", id)
		}
	}
}

func TestRecordLikeRequiresID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liked.json")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.RecordLike(""); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
