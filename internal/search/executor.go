package search

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	htmlformat "github.com/blevesearch/bleve/v2/search/highlight/format/html"
	simplefrag "github.com/blevesearch/bleve/v2/search/highlight/fragmenter/simple"
	simplehl "github.com/blevesearch/bleve/v2/search/highlight/highlighter/simple"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/antflydb/tinyfinder/internal/handle"
	"github.com/antflydb/tinyfinder/internal/pinned"
	"github.com/antflydb/tinyfinder/internal/querycompile"
	"github.com/antflydb/tinyfinder/internal/schema"
	"github.com/antflydb/tinyfinder/internal/synonym"
)

// Executor runs the search pipeline against handles from a shared
// cache, using the synonym and pinned-rule stores for expansion/reordering.
type Executor struct {
	handles     *handle.Cache
	synonyms    *synonym.Store
	pinnedRules *pinned.Store
	logger      *zap.Logger
}

// NewExecutor wires the executor to its three collaborators.
func NewExecutor(handles *handle.Cache, synonyms *synonym.Store, pinnedRules *pinned.Store, logger *zap.Logger) *Executor {
	return &Executor{handles: handles, synonyms: synonyms, pinnedRules: pinnedRules, logger: logger}
}

// Search runs the full query-compile, execute, rerank, and hydrate pipeline.
func (e *Executor) Search(index string, req Request) (Result, error) {
	start := time.Now()

	h, ok := e.handles.Get(index)
	if !ok {
		return Result{}, fmt.Errorf("%w: index %q", ErrNotFound, index)
	}

	if req.Sort != nil {
		fc, ok := h.Schema.FieldByName(req.Sort.Field)
		if !ok {
			return Result{}, fmt.Errorf("%w: sort field %q", ErrNotFound, req.Sort.Field)
		}
		if !fc.Fast {
			return Result{}, fmt.Errorf("%w: field %q", ErrSortFieldNotFast, req.Sort.Field)
		}
	}

	limit := clampLimit(req.Limit)
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	pinnedIDs := e.pinnedRules.Match(index, req.Query)

	defaultFields := req.Fields
	if len(defaultFields) == 0 {
		defaultFields = h.Schema.TextFields()
	}

	expanded := e.synonyms.Expand(index, req.Query)

	opts := querycompile.Options{
		DefaultFields:      defaultFields,
		Fuzzy:              req.Fuzzy,
		MinimumShouldMatch: req.MinimumShouldMatch,
	}

	q, err := querycompile.Compile(expanded, opts, h.Schema)
	if err != nil {
		return Result{}, fmt.Errorf("compile query: %w", err)
	}

	total, err := count(h.Index, q)
	if err != nil {
		return Result{}, fmt.Errorf("count query: %w", err)
	}

	if total == 0 {
		if fallbackExpr, ok := querycompile.Fallback(expanded); ok {
			if fallbackQ, ferr := querycompile.Compile(fallbackExpr, opts, h.Schema); ferr == nil {
				if fallbackTotal, cerr := count(h.Index, fallbackQ); cerr == nil && fallbackTotal > 0 {
					q = fallbackQ
					total = fallbackTotal
				}
			}
		}
	}

	collectSize := offset + limit + len(pinnedIDs)
	matches, err := collect(h.Index, q, req.Sort, collectSize)
	if err != nil {
		return Result{}, fmt.Errorf("collect hits: %w", err)
	}

	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, hydrate(m))
	}

	if req.Highlight.Enabled {
		highlightFields := req.Highlight.Fields
		if len(highlightFields) == 0 {
			highlightFields = defaultFields
		}
		highlightFields = textSubset(h.Schema, highlightFields)
		if err := applyHighlights(h.Index, q, matches, hits, highlightFields, req.Highlight); err != nil {
			e.logger.Warn("highlight synthesis failed", zap.String("index", index), zap.Error(err))
		}
	}

	// Collection fetched offset+limit+pinned from the top; skip offset now.
	hits = skipOffset(hits, offset)

	hits = pinned.Reorder(hits, func(h Hit) string { return h.ID }, pinnedIDs, limit)

	var aggs map[string]AggregationResult
	if len(req.Aggregations) > 0 {
		aggs = runAggregations(h.Index, q, req.Aggregations, e.logger)
	}

	return Result{
		TookMS:       elapsedMS(start),
		Total:        total,
		Offset:       offset,
		Limit:        limit,
		HasMore:      uint64(offset+len(hits)) < total,
		Hits:         hits,
		Aggregations: aggs,
	}, nil
}

// skipOffset drops the first `offset` hits. Pinned reordering happens after
// this step, so offset applies to the raw collection order.
func skipOffset(hits []Hit, offset int) []Hit {
	if offset <= 0 {
		return hits
	}
	if offset >= len(hits) {
		return nil
	}
	return hits[offset:]
}

// textSubset keeps only the names that resolve to text fields, since snippet
// synthesis is meaningless on numeric or date columns.
func textSubset(sch schema.Schema, fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, name := range fields {
		fc, ok := sch.FieldByName(name)
		if ok && fc.Type == schema.FieldText {
			out = append(out, name)
		}
	}
	return out
}

func clampLimit(limit int) int {
	const maxLimit = 1000
	if limit <= 0 {
		return 10
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func count(idx bleve.Index, q query.Query) (uint64, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = 0
	res, err := idx.Search(req)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

func collect(idx bleve.Index, q query.Query, sortReq *Sort, size int) ([]*search.DocumentMatch, error) {
	if size < 0 {
		size = 0
	}
	req := bleve.NewSearchRequest(q)
	req.Size = size
	req.From = 0
	req.Fields = []string{"*"}
	req.Explain = sortReq != nil

	if sortReq != nil {
		field := sortReq.Field
		if sortReq.Order == SortDesc {
			field = "-" + field
		}
		req.SortBy([]string{field})
	}

	res, err := idx.Search(req)
	if err != nil {
		return nil, err
	}

	if sortReq != nil {
		for _, m := range res.Hits {
			m.Score = scoreFromExplanation(m.Expl)
		}
	}
	return res.Hits, nil
}

// scoreFromExplanation recovers a document's score from its explanation tree
// when collection is fast-field ordered.
func scoreFromExplanation(expl *search.Explanation) float64 {
	if expl == nil {
		return 0
	}
	return expl.Value
}

func hydrate(m *search.DocumentMatch) Hit {
	fields := make(map[string]any, len(m.Fields))
	for k, v := range m.Fields {
		switch t := v.(type) {
		case string, float64, bool:
			fields[k] = t
		default:
			// other stored kinds are dropped
		}
	}
	id := m.ID
	if v, ok := fields[schema.IDField]; ok {
		if s, ok := v.(string); ok {
			id = s
		}
	}
	return Hit{ID: id, Score: m.Score, Fields: fields}
}

const (
	highlightFragmentSize = 200
	highlightSeparator    = "…"
)

// applyHighlights synthesizes snippets with a per-request highlighter built
// from bleve's fragment-formatter hook, so caller tags are applied by the
// library itself instead of rewriting delimiters in emitted HTML (stored
// content may legitimately contain literal angle brackets).
func applyHighlights(idx bleve.Index, q query.Query, matches []*search.DocumentMatch, hits []Hit, fields []string, hl Highlight) error {
	pre, post := hl.PreTag, hl.PostTag
	if pre == "" {
		pre = "<em>"
	}
	if post == "" {
		post = "</em>"
	}

	// Term locations are not retained by the collection search, so run the
	// query once more with locations enabled for the collected window.
	req := bleve.NewSearchRequest(q)
	req.Size = len(matches)
	req.IncludeLocations = true

	res, err := idx.Search(req)
	if err != nil {
		return err
	}

	located := make(map[string]*search.DocumentMatch, len(res.Hits))
	for _, m := range res.Hits {
		located[m.ID] = m
	}

	highlighter := simplehl.NewHighlighter(
		simplefrag.NewFragmenter(highlightFragmentSize),
		htmlformat.NewFragmentFormatter(pre, post),
		highlightSeparator,
	)

	for i := range hits {
		m, ok := located[matches[i].ID]
		if !ok || len(m.Locations) == 0 {
			continue
		}
		doc, err := idx.Document(m.ID)
		if err != nil || doc == nil {
			continue
		}
		out := make(map[string][]string, len(fields))
		for _, field := range fields {
			var nonEmpty []string
			for _, frag := range highlighter.BestFragmentsInField(m, doc, field, 1) {
				if frag != "" {
					nonEmpty = append(nonEmpty, frag)
				}
			}
			if len(nonEmpty) > 0 {
				out[field] = nonEmpty
			}
		}
		if len(out) > 0 {
			hits[i].Highlights = out
		}
	}
	return nil
}
