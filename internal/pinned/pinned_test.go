package pinned

import (
	"path/filepath"
	"testing"
)

func TestMatchFirstRuleWins(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "pinned.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Add("books", Rule{Queries: []string{"wolf"}, DocumentIDs: []string{"3", "2"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("books", Rule{Queries: []string{"wolf pack"}, DocumentIDs: []string{"9"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got := s.Match("books", "Old Wolf Pack")
	want := []string{"3", "2"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Match = %v, want %v (first matching rule wins)", got, want)
	}
}

func TestMatchCaseInsensitiveSubstring(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "pinned.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Add("books", Rule{Queries: []string{"WoLf"}, DocumentIDs: []string{"1"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.Match("books", "the wolf howls"); len(got) != 1 || got[0] != "1" {
		t.Errorf("Match = %v, want [1]", got)
	}
}

func TestMatchNoRuleMatches(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "pinned.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Add("books", Rule{Queries: []string{"wolf"}, DocumentIDs: []string{"1"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.Match("books", "cat"); got != nil {
		t.Errorf("Match = %v, want nil", got)
	}
}

type stubHit struct{ id string }

func TestReorderPutsPinnedFirstInRuleOrder(t *testing.T) {
	hits := []stubHit{{"a"}, {"b"}, {"c"}, {"d"}}
	idOf := func(h stubHit) string { return h.id }

	got := Reorder(hits, idOf, []string{"c", "a"}, 10)
	want := []string{"c", "a", "b", "d"}
	if len(got) != len(want) {
		t.Fatalf("Reorder length = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].id != id {
			t.Errorf("Reorder[%d] = %q, want %q", i, got[i].id, id)
		}
	}
}

func TestReorderTruncatesToLimit(t *testing.T) {
	hits := []stubHit{{"a"}, {"b"}, {"c"}}
	got := Reorder(hits, func(h stubHit) string { return h.id }, []string{"b"}, 2)
	if len(got) != 2 {
		t.Fatalf("Reorder length = %d, want 2", len(got))
	}
	if got[0].id != "b" {
		t.Errorf("Reorder[0] = %q, want pinned id first", got[0].id)
	}
}

func TestReorderPinnedIDNotInHitsIsSkipped(t *testing.T) {
	hits := []stubHit{{"a"}, {"b"}}
	got := Reorder(hits, func(h stubHit) string { return h.id }, []string{"zzz", "b"}, 10)
	want := []string{"b", "a"}
	for i, id := range want {
		if got[i].id != id {
			t.Errorf("Reorder[%d] = %q, want %q", i, got[i].id, id)
		}
	}
}

func TestReorderNoPinnedIDsJustTruncates(t *testing.T) {
	hits := []stubHit{{"a"}, {"b"}, {"c"}}
	got := Reorder(hits, func(h stubHit) string { return h.id }, nil, 2)
	if len(got) != 2 || got[0].id != "a" || got[1].id != "b" {
		t.Errorf("Reorder with no pinned ids = %+v", got)
	}
}
