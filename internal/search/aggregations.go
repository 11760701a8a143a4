package search

import (
	"fmt"
	"math"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

// runAggregations translates each requested aggregation into a bleve facet
// or a hand-built numeric collector (bleve has no Elasticsearch-shaped
// aggregation DSL), using at most two additional searches: one that loads
// field values for the numeric kinds and one that computes the facets. An
// unknown kind is recorded as that aggregation's error; if either search
// fails, the failure is logged and nil is returned. Neither case fails the
// enclosing search.
func runAggregations(idx bleve.Index, q query.Query, aggs []Aggregation, logger *zap.Logger) map[string]AggregationResult {
	results := make(map[string]AggregationResult, len(aggs))

	facetReq := bleve.NewSearchRequest(q)
	facetReq.Size = 0

	var numericAggs []Aggregation
	for _, a := range aggs {
		if a.Kind == "terms" {
			size := a.Size
			if size <= 0 {
				size = 10
			}
			facetReq.AddFacet(a.Name, bleve.NewFacetRequest(a.Field, size))
		} else {
			numericAggs = append(numericAggs, a)
		}
	}

	var values map[string][]float64
	if len(numericAggs) > 0 {
		var err error
		values, err = collectFieldValues(idx, q, numericAggs)
		if err != nil {
			logger.Warn("aggregation field collection failed", zap.Error(err))
			return nil
		}
	}

	if len(facetReq.Facets) > 0 {
		res, err := idx.Search(facetReq)
		if err != nil {
			logger.Warn("facet search failed", zap.Error(err))
			return nil
		} else {
			for _, a := range aggs {
				if a.Kind != "terms" {
					continue
				}
				fr, ok := res.Facets[a.Name]
				if !ok {
					results[a.Name] = AggregationResult{Name: a.Name, Error: "facet not computed"}
					continue
				}
				var buckets []map[string]any
				if fr.Terms != nil {
					terms := fr.Terms.Terms()
					buckets = make([]map[string]any, 0, len(terms))
					for _, t := range terms {
						buckets = append(buckets, map[string]any{"key": t.Term, "count": t.Count})
					}
				}
				results[a.Name] = AggregationResult{Name: a.Name, Value: buckets}
			}
		}
	}

	for _, a := range numericAggs {
		results[a.Name] = computeNumericAggregation(a, values[a.Field])
	}

	return results
}

// collectFieldValues reads the stored values of the union of fields
// referenced by numeric aggregations from up to the first 10000 matching
// documents, in a single search.
func collectFieldValues(idx bleve.Index, q query.Query, aggs []Aggregation) (map[string][]float64, error) {
	fields := make(map[string]struct{})
	for _, a := range aggs {
		fields[a.Field] = struct{}{}
	}
	fieldList := make([]string, 0, len(fields))
	for f := range fields {
		fieldList = append(fieldList, f)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = 10000 // bounded sample; a dedicated DocValues walk would avoid this cap
	req.Fields = fieldList

	res, err := idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float64, len(fieldList))
	for _, hit := range res.Hits {
		for _, f := range fieldList {
			v, ok := hit.Fields[f]
			if !ok {
				continue
			}
			if n, ok := toFloat(v); ok {
				out[f] = append(out[f], n)
			}
		}
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

func computeNumericAggregation(a Aggregation, values []float64) AggregationResult {
	switch a.Kind {
	case "count":
		return AggregationResult{Name: a.Name, Value: len(values)}

	case "cardinality":
		seen := make(map[float64]struct{}, len(values))
		for _, v := range values {
			seen[v] = struct{}{}
		}
		return AggregationResult{Name: a.Name, Value: len(seen)}

	case "sum":
		return AggregationResult{Name: a.Name, Value: sum(values)}

	case "avg":
		if len(values) == 0 {
			return AggregationResult{Name: a.Name, Value: nil}
		}
		return AggregationResult{Name: a.Name, Value: sum(values) / float64(len(values))}

	case "min":
		if len(values) == 0 {
			return AggregationResult{Name: a.Name, Value: nil}
		}
		return AggregationResult{Name: a.Name, Value: minOf(values)}

	case "max":
		if len(values) == 0 {
			return AggregationResult{Name: a.Name, Value: nil}
		}
		return AggregationResult{Name: a.Name, Value: maxOf(values)}

	case "stats":
		return AggregationResult{Name: a.Name, Value: stats(values)}

	case "extended_stats":
		s := stats(values)
		s["std_deviation"] = stddev(values, s["avg"].(float64))
		return AggregationResult{Name: a.Name, Value: s}

	case "percentiles":
		return AggregationResult{Name: a.Name, Value: percentiles(values, []float64{1, 5, 25, 50, 75, 95, 99})}

	case "histogram":
		interval := a.Interval
		if interval <= 0 {
			interval = 10.0
		}
		return AggregationResult{Name: a.Name, Value: histogram(values, interval)}

	case "range":
		return AggregationResult{Name: a.Name, Value: rangeBuckets(values, a.Ranges)}

	default:
		return AggregationResult{Name: a.Name, Error: fmt.Sprintf("unknown aggregation kind %q", a.Kind)}
	}
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func stats(values []float64) map[string]any {
	if len(values) == 0 {
		return map[string]any{"count": 0, "sum": 0.0, "avg": 0.0, "min": nil, "max": nil}
	}
	return map[string]any{
		"count": len(values),
		"sum":   sum(values),
		"avg":   sum(values) / float64(len(values)),
		"min":   minOf(values),
		"max":   maxOf(values),
	}
}

func stddev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

func percentiles(values []float64, pcts []float64) map[string]float64 {
	out := make(map[string]float64, len(pcts))
	if len(values) == 0 {
		return out
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	for _, p := range pcts {
		idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		out[fmt.Sprintf("%g", p)] = sorted[idx]
	}
	return out
}

func histogram(values []float64, interval float64) []map[string]any {
	buckets := make(map[float64]int)
	for _, v := range values {
		key := math.Floor(v/interval) * interval
		buckets[key]++
	}
	keys := make([]float64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, map[string]any{"key": k, "count": buckets[k]})
	}
	return out
}

func rangeBuckets(values []float64, ranges []Range) []map[string]any {
	out := make([]map[string]any, 0, len(ranges))
	for _, r := range ranges {
		count := 0
		for _, v := range values {
			if r.From != nil && v < *r.From {
				continue
			}
			if r.To != nil && v >= *r.To {
				continue
			}
			count++
		}
		bucket := map[string]any{"count": count}
		if r.Key != "" {
			bucket["key"] = r.Key
		}
		if r.From != nil {
			bucket["from"] = *r.From
		}
		if r.To != nil {
			bucket["to"] = *r.To
		}
		out = append(out, bucket)
	}
	return out
}
