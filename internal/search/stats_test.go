package search

import (
	"errors"
	"testing"
)

func TestIndexStatsUnknownIndexReturnsNotFound(t *testing.T) {
	ex, _ := newTestExecutor(t)
	_, err := ex.IndexStats("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestIndexStatsReportsDocCountAndFields(t *testing.T) {
	ex, hc := newTestExecutor(t)
	seedBooks(t, hc, ex)

	stats, err := ex.IndexStats("books")
	if err != nil {
		t.Fatalf("IndexStats: %v", err)
	}
	if stats.DocumentCount != 3 {
		t.Errorf("DocumentCount = %d, want 3", stats.DocumentCount)
	}
	if stats.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", stats.SizeBytes)
	}
	// id field plus the two declared fields.
	if len(stats.Fields) != 3 {
		t.Fatalf("len(Fields) = %d, want 3", len(stats.Fields))
	}
	if stats.Fields[0].Name != "id" {
		t.Errorf("Fields[0].Name = %q, want id", stats.Fields[0].Name)
	}
}

func TestEnumerateDocumentsUnknownIndexReturnsNotFound(t *testing.T) {
	ex, _ := newTestExecutor(t)
	_, err := ex.EnumerateDocuments("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEnumerateDocumentsListsAllIDs(t *testing.T) {
	ex, hc := newTestExecutor(t)
	seedBooks(t, hc, ex)

	ids, err := ex.EnumerateDocuments("books")
	if err != nil {
		t.Fatalf("EnumerateDocuments: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("len(ids) = %d, want 3", len(ids))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, want := range []string{"1", "2", "3"} {
		if !seen[want] {
			t.Errorf("expected id %q among enumerated ids %v", want, ids)
		}
	}
}
