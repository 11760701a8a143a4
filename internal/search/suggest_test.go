package search

import (
	"errors"
	"testing"
)

func TestSuggestUnknownIndexReturnsNotFound(t *testing.T) {
	ex, _ := newTestExecutor(t)
	_, err := ex.Suggest("nope", "wo", "", 10)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSuggestReturnsMatchingPrefixedWords(t *testing.T) {
	ex, hc := newTestExecutor(t)
	seedBooks(t, hc, ex)

	res, err := ex.Suggest("books", "wo", "title", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	found := false
	for _, s := range res.Suggestions {
		if s == "wolf" {
			found = true
		}
	}
	if !found {
		t.Errorf("Suggestions = %v, want to contain %q", res.Suggestions, "wolf")
	}
}

func TestSuggestDeduplicatesAndSorts(t *testing.T) {
	ex, hc := newTestExecutor(t)
	seedBooks(t, hc, ex)

	res, err := ex.Suggest("books", "wo", "title", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	seen := make(map[string]int)
	for _, s := range res.Suggestions {
		seen[s]++
	}
	for word, n := range seen {
		if n > 1 {
			t.Errorf("suggestion %q appeared %d times, want 1", word, n)
		}
	}
	for i := 1; i < len(res.Suggestions); i++ {
		if res.Suggestions[i-1] > res.Suggestions[i] {
			t.Errorf("Suggestions not sorted: %v", res.Suggestions)
		}
	}
}

func TestSuggestDefaultLimitIsTen(t *testing.T) {
	ex, hc := newTestExecutor(t)
	seedBooks(t, hc, ex)

	res, err := ex.Suggest("books", "wo", "title", 0)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(res.Suggestions) > 10 {
		t.Errorf("len(Suggestions) = %d, want <= 10", len(res.Suggestions))
	}
}
