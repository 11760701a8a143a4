package querycompile

import (
	"strings"
	"testing"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/antflydb/tinyfinder/internal/schema"
)

func testSchema() schema.Schema {
	return schema.Schema{Fields: []schema.FieldConfig{
		{Name: "title", Type: schema.FieldText, Stored: true, Indexed: true},
		{Name: "content", Type: schema.FieldText, Stored: true, Indexed: true},
		{Name: "v", Type: schema.FieldI64, Stored: true, Indexed: true, Fast: true},
	}}
}

func TestDispatchExists(t *testing.T) {
	cq, err := dispatch("_exists_:title", Options{}, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if cq.Kind != kindExists {
		t.Errorf("Kind = %v, want kindExists", cq.Kind)
	}
	wq, ok := cq.Query.(*query.WildcardQuery)
	if !ok {
		t.Fatalf("Query type = %T, want *query.WildcardQuery", cq.Query)
	}
	if wq.Field() != "title" {
		t.Errorf("field = %q, want %q", wq.Field(), "title")
	}
}

func TestDispatchExistsUnknownFieldErrors(t *testing.T) {
	_, err := dispatch("_exists_:nope", Options{}, testSchema())
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDispatchTermSet(t *testing.T) {
	cq, err := dispatch("v:IN[1, 2,3]", Options{}, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if cq.Kind != kindTermSet {
		t.Errorf("Kind = %v, want kindTermSet", cq.Kind)
	}
	dq, ok := cq.Query.(*query.DisjunctionQuery)
	if !ok {
		t.Fatalf("Query type = %T, want *query.DisjunctionQuery", cq.Query)
	}
	if len(dq.Disjuncts) != 3 {
		t.Errorf("len(Disjuncts) = %d, want 3", len(dq.Disjuncts))
	}
}

func TestDispatchWildcardPhrase(t *testing.T) {
	opts := Options{DefaultFields: []string{"title"}}
	cq, err := dispatch(`"old wol*"`, opts, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if cq.Kind != kindWildcardPhrase {
		t.Errorf("Kind = %v, want kindWildcardPhrase", cq.Kind)
	}
}

func TestDispatchWildcardPhraseRequiresTwoTokens(t *testing.T) {
	// A single-token quoted wildcard expression falls through to the
	// wildcard-term rule instead.
	opts := Options{DefaultFields: []string{"title"}}
	cq, err := dispatch(`"wol*"`, opts, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if cq.Kind != kindWildcard {
		t.Errorf("Kind = %v, want kindWildcard (fallthrough)", cq.Kind)
	}
}

func TestDispatchWildcardTerm(t *testing.T) {
	opts := Options{DefaultFields: []string{"title", "content"}}
	cq, err := dispatch("wol*", opts, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if cq.Kind != kindWildcard {
		t.Errorf("Kind = %v, want kindWildcard", cq.Kind)
	}
	dq, ok := cq.Query.(*query.DisjunctionQuery)
	if !ok {
		t.Fatalf("Query type = %T, want *query.DisjunctionQuery", cq.Query)
	}
	if len(dq.Disjuncts) != 2 {
		t.Errorf("len(Disjuncts) = %d, want 2 (one regex per default field)", len(dq.Disjuncts))
	}
}

func TestDispatchWildcardTermWithFieldPrefix(t *testing.T) {
	opts := Options{DefaultFields: []string{"title", "content"}}
	cq, err := dispatch("title:wol*", opts, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	dq := cq.Query.(*query.DisjunctionQuery)
	if len(dq.Disjuncts) != 1 {
		t.Errorf("len(Disjuncts) = %d, want 1 (single field selected)", len(dq.Disjuncts))
	}
	rq := dq.Disjuncts[0].(*query.RegexpQuery)
	if rq.Field() != "title" {
		t.Errorf("field = %q, want %q", rq.Field(), "title")
	}
}

func TestDispatchWildcardTermUnknownFieldPrefixFallsBack(t *testing.T) {
	opts := Options{DefaultFields: []string{"title", "content"}}
	cq, err := dispatch("nope:wol*", opts, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	dq := cq.Query.(*query.DisjunctionQuery)
	if len(dq.Disjuncts) != 2 {
		t.Errorf("len(Disjuncts) = %d, want 2 (unknown field falls back to defaults)", len(dq.Disjuncts))
	}
	rq := dq.Disjuncts[0].(*query.RegexpQuery)
	if rq.Field() != "title" {
		t.Errorf("field = %q, want default field title", rq.Field())
	}
}

func TestDispatchWildcardTermFuzzyRescue(t *testing.T) {
	opts := Options{DefaultFields: []string{"title"}, Fuzzy: true}
	cq, err := dispatch("wo*", opts, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	dq := cq.Query.(*query.DisjunctionQuery)
	// one regex clause + one fuzzy clause, since the literal prefix "wo" has length >= 2
	if len(dq.Disjuncts) != 2 {
		t.Errorf("len(Disjuncts) = %d, want 2 (regex + fuzzy rescue)", len(dq.Disjuncts))
	}
}

func TestDispatchWildcardTermNoFuzzyRescueForShortPrefix(t *testing.T) {
	opts := Options{DefaultFields: []string{"title"}, Fuzzy: true}
	cq, err := dispatch("w*", opts, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	dq := cq.Query.(*query.DisjunctionQuery)
	if len(dq.Disjuncts) != 1 {
		t.Errorf("len(Disjuncts) = %d, want 1 (prefix too short for fuzzy rescue)", len(dq.Disjuncts))
	}
}

func TestDispatchBareStarIsMatchAll(t *testing.T) {
	cq, err := dispatch("*", Options{}, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, ok := cq.Query.(*query.MatchAllQuery); !ok {
		t.Fatalf("Query type = %T, want *query.MatchAllQuery", cq.Query)
	}
}

func TestDispatchDefault(t *testing.T) {
	opts := Options{DefaultFields: []string{"title"}}
	cq, err := dispatch("wood", opts, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if cq.Kind != kindDefault {
		t.Errorf("Kind = %v, want kindDefault", cq.Kind)
	}
	if _, ok := cq.Query.(*query.QueryStringQuery); !ok {
		t.Fatalf("Query type = %T, want *query.QueryStringQuery", cq.Query)
	}
}

func TestDispatchDefaultFuzzy(t *testing.T) {
	opts := Options{DefaultFields: []string{"title"}, Fuzzy: true}
	cq, err := dispatch("wood", opts, testSchema())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	dq, ok := cq.Query.(*query.DisjunctionQuery)
	if !ok {
		t.Fatalf("Query type = %T, want *query.DisjunctionQuery (parsed OR fuzzy)", cq.Query)
	}
	if len(dq.Disjuncts) != 2 {
		t.Errorf("len(Disjuncts) = %d, want 2 (parsed + fuzzy conjunction)", len(dq.Disjuncts))
	}
}

func TestCompileMinimumShouldMatchWraps(t *testing.T) {
	opts := Options{DefaultFields: []string{"title"}, MinimumShouldMatch: 2}
	q, err := Compile("wood", opts, testSchema())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	bq, ok := q.(*query.BooleanQuery)
	if !ok {
		t.Fatalf("Query type = %T, want *query.BooleanQuery", q)
	}
	if bq.Should == nil {
		t.Fatal("expected a Should clause")
	}
}

func TestExpandFieldGroups(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple group", "title:(wood tre)", "title:wood title:tre"},
		{"boolean operator untouched", "title:(wood AND tre)", "title:wood AND title:tre"},
		{"already field-qualified token untouched", "title:(wood content:tre)", "title:wood content:tre"},
		{"no group present", "wood tre", "wood tre"},
		{"nested parens tracked to matching close", "title:(wood (tre OR gran))", "title:wood title:tre OR title:gran"},
		{"quoted phrase becomes field-qualified phrase", `title:(wood "old wolf")`, `title:wood title:"old wolf"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandFieldGroups(tt.input); got != tt.want {
				t.Errorf("expandFieldGroups(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToRegex(t *testing.T) {
	tests := []struct{ input, want string }{
		{"wol*", "wol.*"},
		{"wo?f", "wo.f"},
		{"a.b", `a\.b`},
		{"WOL*", "wol.*"},
	}
	for _, tt := range tests {
		if got := toRegex(tt.input); got != tt.want {
			t.Errorf("toRegex(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFallbackStripsStopWords(t *testing.T) {
	got, ok := Fallback("hvordan er det med skatt")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got != "skatt" {
		t.Errorf("Fallback = %q, want %q", got, "skatt")
	}
}

func TestFallbackStripsEnglishInterrogatives(t *testing.T) {
	got, ok := Fallback("What taxes apply")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got != "taxes apply" {
		t.Errorf("Fallback = %q, want %q", got, "taxes apply")
	}
}

func TestFallbackAllStopWordsYieldsNoResult(t *testing.T) {
	_, ok := Fallback("hva er det")
	if ok {
		t.Error("expected ok=false when nothing survives stripping")
	}
}

func TestFallbackDropsShortTokens(t *testing.T) {
	got, ok := Fallback("a wood")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if strings.Contains(got, " a ") || got == "a" {
		t.Errorf("Fallback = %q, want single-char token dropped", got)
	}
}

func TestFallbackReplacesPunctuationWithSpaces(t *testing.T) {
	got, ok := Fallback("skatt, mva?")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got != "skatt mva" {
		t.Errorf("Fallback = %q, want %q", got, "skatt mva")
	}
}
