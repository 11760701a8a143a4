package search

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
)

// SuggestResult is the response of a prefix-suggestion request.
type SuggestResult struct {
	Suggestions []string
	TookMS      float64
}

// Suggest emits "prefix*" against the chosen field (or every
// field), take up to limit*10 hits, extract whitespace-separated words from
// stored text values whose lowercase form begins with the lowercase prefix,
// deduplicate, sort, and truncate to limit.
func (e *Executor) Suggest(index, prefix, field string, limit int) (SuggestResult, error) {
	start := time.Now()

	h, ok := e.handles.Get(index)
	if !ok {
		return SuggestResult{}, fmt.Errorf("%w: index %q", ErrNotFound, index)
	}
	if limit <= 0 {
		limit = 10
	}

	fields := h.Schema.TextFields()
	if field != "" {
		fields = []string{field}
	}

	qs := prefix + "*"
	if field != "" {
		qs = field + ":" + qs
	}
	q := bleve.NewQueryStringQuery(qs)

	req := bleve.NewSearchRequest(q)
	req.Size = limit * 10
	req.Fields = append([]string{}, fields...)

	res, err := h.Index.Search(req)
	if err != nil {
		return SuggestResult{}, fmt.Errorf("suggest search: %w", err)
	}

	lowerPrefix := strings.ToLower(prefix)
	seen := make(map[string]struct{})
	var out []string

	for _, hit := range res.Hits {
		for _, f := range fields {
			v, ok := hit.Fields[f]
			if !ok {
				continue
			}
			text, ok := v.(string)
			if !ok {
				continue
			}
			for _, word := range strings.Fields(text) {
				lower := strings.ToLower(word)
				if !strings.HasPrefix(lower, lowerPrefix) {
					continue
				}
				if _, dup := seen[lower]; dup {
					continue
				}
				seen[lower] = struct{}{}
				out = append(out, lower)
			}
		}
	}

	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}

	return SuggestResult{Suggestions: out, TookMS: elapsedMS(start)}, nil
}
