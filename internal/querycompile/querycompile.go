// Package querycompile turns a post-synonym-expansion query string into a
// bleve query tree. The dispatch result is an explicit tagged-variant type
// rather than nested conditionals, so each compiled form carries its own
// parsed operands.
package querycompile

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/antflydb/tinyfinder/internal/schema"
)

// kind tags which rule produced a compiledQuery.
type kind int

const (
	kindExists kind = iota
	kindTermSet
	kindWildcardPhrase
	kindWildcard
	kindDefault
)

// compiledQuery is the tagged-variant result of Compile: Query is always
// populated; Kind records which rule matched, for logging/diagnostics.
type compiledQuery struct {
	Kind  kind
	Query query.Query
}

// Options controls query compilation beyond the raw string + default fields.
type Options struct {
	DefaultFields      []string
	Fuzzy              bool
	MinimumShouldMatch int
}

var fieldGroupPattern = regexp.MustCompile(`(?i)([A-Za-z_][A-Za-z0-9_.]*):\(`)

var existsPattern = regexp.MustCompile(`^_exists_:(\S+)$`)

var termSetPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*):IN\[(.*)\]$`)

var booleanOperators = map[string]struct{}{
	"AND": {}, "OR": {}, "NOT": {}, "TO": {},
}

// Compile builds a query.Query from a query string already passed through
// synonym expansion. sch resolves field names for the exists and
// wildcard-field rules.
func Compile(raw string, opts Options, sch schema.Schema) (query.Query, error) {
	expr := expandFieldGroups(raw)

	cq, err := dispatch(expr, opts, sch)
	if err != nil {
		return nil, err
	}

	if opts.MinimumShouldMatch > 0 {
		bq := bleve.NewBooleanQuery()
		bq.AddShould(cq.Query)
		bq.SetMinShould(float64(opts.MinimumShouldMatch))
		return bq, nil
	}
	return cq.Query, nil
}

func dispatch(expr string, opts Options, sch schema.Schema) (compiledQuery, error) {
	trimmed := strings.TrimSpace(expr)

	if m := existsPattern.FindStringSubmatch(trimmed); m != nil {
		field := m[1]
		if _, ok := sch.FieldByName(field); !ok {
			return compiledQuery{}, fmt.Errorf("_exists_: unknown field %q", field)
		}
		return compiledQuery{Kind: kindExists, Query: existsQuery(field)}, nil
	}

	if m := termSetPattern.FindStringSubmatch(trimmed); m != nil {
		field, rawTerms := m[1], m[2]
		// An unknown field falls through to the remaining rules instead of
		// erroring, matching the wildcard rule's fallback behavior.
		if _, ok := sch.FieldByName(field); ok {
			return compiledQuery{Kind: kindTermSet, Query: termSetQuery(field, rawTerms)}, nil
		}
	}

	// A bare "*" is match-all, not a one-term wildcard.
	if trimmed == "*" {
		return compiledQuery{Kind: kindDefault, Query: bleve.NewMatchAllQuery()}, nil
	}

	if isQuoted(trimmed) && containsWildcard(trimmed) {
		q, err := wildcardPhraseQuery(trimmed, opts.DefaultFields)
		if err == nil {
			return compiledQuery{Kind: kindWildcardPhrase, Query: q}, nil
		}
		// Falls through if fewer than two tokens or no text fields to match.
	}

	if containsWildcard(trimmed) {
		if q := wildcardTermQuery(trimmed, opts, sch); q != nil {
			return compiledQuery{Kind: kindWildcard, Query: q}, nil
		}
		// No eligible target fields: fall through to the standard parser.
	}

	q := defaultQuery(trimmed, opts)
	return compiledQuery{Kind: kindDefault, Query: q}, nil
}

// expandFieldGroups rewrites every "field:(expr)" into a form with "field:"
// prefixed onto each bare term of expr.
func expandFieldGroups(s string) string {
	for {
		loc := fieldGroupPattern.FindStringSubmatchIndex(s)
		if loc == nil {
			return s
		}
		field := s[loc[2]:loc[3]]
		openParen := loc[1] - 1

		depth := 0
		closeParen := -1
		for i := openParen; i < len(s); i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					closeParen = i
				}
			}
			if closeParen != -1 {
				break
			}
		}
		if closeParen == -1 {
			return s // unbalanced parens: leave as-is rather than loop forever
		}

		inner := s[openParen+1 : closeParen]
		rewritten := prefixFieldToTerms(field, inner)
		s = s[:loc[0]] + rewritten + s[closeParen+1:]
	}
}

func prefixFieldToTerms(field, expr string) string {
	tokens := strings.Fields(expr)
	depth := 0
	inQuote := false
	for i, tok := range tokens {
		opens := strings.Count(tok, "(")
		closes := strings.Count(tok, ")")

		// Inside a nested group or quoted phrase the field prefix was already
		// applied to the opening token; pass the rest through untouched.
		if depth > 0 {
			depth += opens - closes
			continue
		}
		if inQuote {
			if strings.HasSuffix(tok, `"`) {
				inQuote = false
			}
			continue
		}

		if strings.HasPrefix(tok, "(") {
			tokens[i] = field + ":" + tok
			depth += opens - closes
			continue
		}
		if strings.HasPrefix(tok, `"`) {
			tokens[i] = field + ":" + tok
			if len(tok) == 1 || !strings.HasSuffix(tok, `"`) {
				inQuote = true
			}
			continue
		}

		upper := strings.ToUpper(strings.Trim(tok, "()"))
		if _, isOp := booleanOperators[upper]; isOp {
			continue
		}
		if strings.Contains(tok, ":") {
			continue
		}
		tokens[i] = field + ":" + tok
	}
	return strings.Join(tokens, " ")
}

func isQuoted(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)
}

func containsWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// toRegex translates a wildcard expression into an anchored, lowercase regex:
// '*' -> ".*", '?' -> ".", other regex metacharacters escaped.
func toRegex(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '.', '+', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func existsQuery(field string) query.Query {
	// bleve has no native "field is present" primitive; a wildcard matching
	// every indexed term in the field is the grounded equivalent.
	q := bleve.NewWildcardQuery("*")
	q.SetField(field)
	return q
}

func termSetQuery(field, rawTerms string) query.Query {
	parts := strings.Split(rawTerms, ",")
	disj := bleve.NewDisjunctionQuery()
	for _, p := range parts {
		term := strings.ToLower(strings.TrimSpace(p))
		if term == "" {
			continue
		}
		tq := bleve.NewTermQuery(term)
		tq.SetField(field)
		disj.AddQuery(tq)
	}
	return disj
}

func wildcardPhraseQuery(quoted string, defaultFields []string) (query.Query, error) {
	inner := quoted[1 : len(quoted)-1]
	tokens := strings.Fields(inner)
	if len(tokens) < 2 {
		return nil, fmt.Errorf("wildcard phrase requires at least two tokens")
	}
	if len(defaultFields) == 0 {
		return nil, fmt.Errorf("wildcard phrase requires at least one text field")
	}

	perField := make([]query.Query, 0, len(defaultFields))
	for _, field := range defaultFields {
		conj := bleve.NewConjunctionQuery()
		for _, tok := range tokens {
			rq := bleve.NewRegexpQuery(toRegex(tok))
			rq.SetField(field)
			conj.AddQuery(rq)
		}
		perField = append(perField, conj)
	}
	return bleve.NewDisjunctionQuery(perField...), nil
}

func wildcardTermQuery(expr string, opts Options, sch schema.Schema) query.Query {
	field, remainder, hasField := splitFieldPrefix(expr)

	// An unknown field prefix falls back to the default fields, still
	// matching only the pattern after the colon.
	fields := opts.DefaultFields
	if hasField {
		if _, known := sch.FieldByName(field); known {
			fields = []string{field}
		}
	}

	var clauses []query.Query
	for _, f := range fields {
		rq := bleve.NewRegexpQuery(toRegex(remainder))
		rq.SetField(f)
		clauses = append(clauses, rq)
	}
	if len(clauses) == 0 {
		return nil
	}

	prefix := wildcardPrefix(remainder)
	if opts.Fuzzy && len(prefix) >= 2 {
		for _, f := range fields {
			fq := bleve.NewFuzzyQuery(prefix)
			fq.SetFuzziness(1)
			fq.SetField(f)
			clauses = append(clauses, fq)
		}
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

// splitFieldPrefix splits "field:rest" into ("field", "rest", true); if expr
// has no recognizable field prefix it returns ("", expr, false).
func splitFieldPrefix(expr string) (field, rest string, ok bool) {
	idx := strings.Index(expr, ":")
	if idx <= 0 {
		return "", expr, false
	}
	return expr[:idx], expr[idx+1:], true
}

// wildcardPrefix returns the literal (non-wildcard) run at the start of a
// wildcard expression, used as the fuzzy-rescue anchor.
func wildcardPrefix(s string) string {
	idx := strings.IndexAny(s, "*?")
	if idx == -1 {
		return s
	}
	return s[:idx]
}

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func defaultQuery(expr string, opts Options) query.Query {
	parsed := bleve.NewQueryStringQuery(expr)
	if !opts.Fuzzy {
		return parsed
	}

	fuzzy := bleve.NewConjunctionQuery()
	any := false
	for _, tok := range strings.Fields(expr) {
		upper := strings.ToUpper(tok)
		if _, isOp := booleanOperators[upper]; isOp {
			continue
		}
		if !tokenPattern.MatchString(tok) {
			continue
		}
		disj := bleve.NewDisjunctionQuery()
		for _, f := range opts.DefaultFields {
			fq := bleve.NewFuzzyQuery(strings.ToLower(tok))
			fq.SetFuzziness(1)
			fq.SetField(f)
			disj.AddQuery(fq)
		}
		fuzzy.AddQuery(disj)
		any = true
	}
	if !any {
		return parsed
	}
	return bleve.NewDisjunctionQuery(parsed, fuzzy)
}

// stopWords is the built-in bilingual (Norwegian interrogatives and function
// words + English interrogatives) list used by the keyword-rescue fallback.
var stopWords = map[string]struct{}{
	"hva": {}, "hvem": {}, "hvor": {}, "hvilken": {}, "hvilke": {}, "hvordan": {}, "når": {}, "hvorfor": {},
	"what": {}, "who": {}, "where": {}, "which": {}, "how": {}, "when": {}, "why": {},
	"er": {}, "var": {}, "bli": {}, "blir": {}, "være": {},
	"og": {}, "eller": {}, "for": {}, "av": {}, "til": {}, "med": {}, "i": {}, "på": {}, "om": {}, "som": {},
	"en": {}, "et": {}, "den": {}, "det": {}, "de": {}, "du": {}, "jeg": {}, "vi": {}, "oss": {},
}

// Fallback builds the stop-word-stripped rescue query: it lowercases the
// query, replaces every rune that is not alphanumeric, '_', or '-' with a
// space, drops tokens that match the stop-word list or are shorter than two
// bytes, and rejoins the rest on single spaces. Returns ok=false if nothing
// survives stripping.
func Fallback(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			return r
		}
		return ' '
	}, strings.ToLower(raw))

	var kept []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) < 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, " "), true
}
