package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
	"github.com/antflydb/tinyfinder/internal/search"
)

type searchRequest struct {
	Query              string           `json:"query"`
	Fields             []string         `json:"fields,omitempty"`
	Limit              int              `json:"limit,omitempty"`
	Offset             int              `json:"offset,omitempty"`
	Fuzzy              bool             `json:"fuzzy,omitempty"`
	Sort               *sortDTO         `json:"sort,omitempty"`
	Highlight          *highlightDTO    `json:"highlight,omitempty"`
	Aggregations       []aggregationDTO `json:"aggregations,omitempty"`
	MinimumShouldMatch int              `json:"minimum_should_match,omitempty"`
}

type sortDTO struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

type highlightDTO struct {
	Enabled bool     `json:"enabled"`
	Fields  []string `json:"fields,omitempty"`
	PreTag  string   `json:"pre_tag,omitempty"`
	PostTag string   `json:"post_tag,omitempty"`
}

type aggregationDTO struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Field    string     `json:"field"`
	Size     int        `json:"size,omitempty"`
	Interval float64    `json:"interval,omitempty"`
	Ranges   []rangeDTO `json:"ranges,omitempty"`
}

type rangeDTO struct {
	From *float64 `json:"from,omitempty"`
	To   *float64 `json:"to,omitempty"`
	Key  string   `json:"key,omitempty"`
}

func (req searchRequest) toExecutorRequest() search.Request {
	out := search.Request{
		Query:              req.Query,
		Fields:             req.Fields,
		Limit:              req.Limit,
		Offset:             req.Offset,
		Fuzzy:              req.Fuzzy,
		MinimumShouldMatch: req.MinimumShouldMatch,
	}
	if req.Sort != nil {
		order := search.SortAsc
		if req.Sort.Order == "desc" {
			order = search.SortDesc
		}
		out.Sort = &search.Sort{Field: req.Sort.Field, Order: order}
	}
	if req.Highlight != nil {
		out.Highlight = search.Highlight{
			Enabled: req.Highlight.Enabled,
			Fields:  req.Highlight.Fields,
			PreTag:  req.Highlight.PreTag,
			PostTag: req.Highlight.PostTag,
		}
	}
	for _, a := range req.Aggregations {
		ranges := make([]search.Range, 0, len(a.Ranges))
		for _, rg := range a.Ranges {
			ranges = append(ranges, search.Range{From: rg.From, To: rg.To, Key: rg.Key})
		}
		out.Aggregations = append(out.Aggregations, search.Aggregation{
			Name:     a.Name,
			Kind:     a.Kind,
			Field:    a.Field,
			Size:     a.Size,
			Interval: a.Interval,
			Ranges:   ranges,
		})
	}
	return out
}

type hitDTO struct {
	ID         string              `json:"id"`
	Score      float64             `json:"score"`
	Fields     map[string]any      `json:"fields"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

type searchResponse struct {
	TookMS       float64        `json:"took_ms"`
	Total        uint64         `json:"total"`
	Offset       int            `json:"offset"`
	Limit        int            `json:"limit"`
	HasMore      bool           `json:"has_more"`
	Hits         []hitDTO       `json:"hits"`
	Aggregations map[string]any `json:"aggregations,omitempty"`
}

func toSearchResponse(result search.Result) searchResponse {
	hits := make([]hitDTO, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, hitDTO{ID: h.ID, Score: h.Score, Fields: h.Fields, Highlights: h.Highlights})
	}

	var aggs map[string]any
	if result.Aggregations != nil {
		aggs = make(map[string]any, len(result.Aggregations))
		for name, agg := range result.Aggregations {
			if agg.Error != "" {
				aggs[name] = map[string]any{"error": agg.Error}
				continue
			}
			aggs[name] = agg.Value
		}
	}

	return searchResponse{
		TookMS:       result.TookMS,
		Total:        result.Total,
		Offset:       result.Offset,
		Limit:        result.Limit,
		HasMore:      result.HasMore,
		Hits:         hits,
		Aggregations: aggs,
	}
}

// handleSearch implements POST /indices/{name}/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req searchRequest
	if err := jsonutil.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, s.logger, err)
		return
	}

	result, err := s.executor.Search(name, req.toExecutorRequest())
	if err != nil {
		writeError(w, s.logger, searchErrorStatus(err), "search failed", err)
		return
	}

	writeOK(w, toSearchResponse(result))
}

// searchErrorStatus maps an executor.Search error to its HTTP status code:
// an unknown index or sort field is 404; a sort field that exists but isn't
// declared fast is a server-side configuration error (500); anything else
// (compile errors, unknown-field _exists_:, upstream segment-store failures)
// is also 500.
func searchErrorStatus(err error) int {
	switch {
	case errors.Is(err, search.ErrSortFieldNotFast):
		return http.StatusInternalServerError
	case errors.Is(err, search.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// handleSuggest implements POST /indices/{name}/suggest.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req struct {
		Prefix string `json:"prefix"`
		Field  string `json:"field,omitempty"`
		Limit  int    `json:"limit,omitempty"`
	}
	if err := jsonutil.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, s.logger, err)
		return
	}

	result, err := s.executor.Suggest(name, req.Prefix, req.Field, req.Limit)
	if err != nil {
		writeError(w, s.logger, http.StatusNotFound, "suggest failed", err)
		return
	}
	writeOK(w, suggestResponse{Suggestions: result.Suggestions, TookMS: result.TookMS})
}

type suggestResponse struct {
	Suggestions []string `json:"suggestions"`
	TookMS      float64  `json:"took_ms"`
}

type fieldDescriptorDTO struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed"`
	Stored  bool   `json:"stored"`
}

type statsResponse struct {
	Name          string               `json:"name"`
	DocumentCount uint64               `json:"document_count"`
	SizeBytes     int64                `json:"size_bytes"`
	Fields        []fieldDescriptorDTO `json:"fields"`
	CreatedAt     string               `json:"created_at"`
}

// handleStats implements GET /indices/{name}/stats. created_at comes from the
// metadata registry rather than the segment store.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	stats, err := s.executor.IndexStats(name)
	if err != nil {
		writeError(w, s.logger, http.StatusNotFound, "index not found", err)
		return
	}

	ctx, cancel := pingCtx()
	defer cancel()
	var createdAt string
	if row, err := s.metadata.GetIndex(ctx, name); err == nil {
		createdAt = row.CreatedAt.Format(time.RFC3339)
	} else {
		s.logger.Warn("index missing from metadata registry", zap.String("index", name), zap.Error(err))
	}

	fields := make([]fieldDescriptorDTO, 0, len(stats.Fields))
	for _, f := range stats.Fields {
		fields = append(fields, fieldDescriptorDTO{Name: f.Name, Type: string(f.Type), Indexed: f.Indexed, Stored: f.Stored})
	}

	writeOK(w, statsResponse{
		Name:          name,
		DocumentCount: stats.DocumentCount,
		SizeBytes:     stats.SizeBytes,
		Fields:        fields,
		CreatedAt:     createdAt,
	})
}
