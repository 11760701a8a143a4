package search

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"

	"github.com/antflydb/tinyfinder/internal/schema"
)

// FieldDescriptor is one entry of an index stats response's field list.
type FieldDescriptor struct {
	Name    string
	Type    schema.FieldType
	Indexed bool
	Stored  bool
}

// Stats is the response for GET /indices/:name/stats (created_at comes
// from the metadata registry and is filled in by the caller).
type Stats struct {
	DocumentCount uint64
	SizeBytes     int64
	Fields        []FieldDescriptor
}

// IndexStats computes index stats: live document count from a fresh reader,
// on-disk byte size from a recursive directory walk, and a field descriptor
// for the implicit id field followed by one per declared field.
func (e *Executor) IndexStats(index string) (Stats, error) {
	h, ok := e.handles.Get(index)
	if !ok {
		return Stats{}, fmt.Errorf("%w: index %q", ErrNotFound, index)
	}

	count, err := h.Index.DocCount()
	if err != nil {
		return Stats{}, fmt.Errorf("doc count: %w", err)
	}

	size, err := dirSize(e.handles.Path(index))
	if err != nil {
		return Stats{}, fmt.Errorf("size walk: %w", err)
	}

	fields := make([]FieldDescriptor, 0, len(h.Schema.Fields)+1)
	fields = append(fields, FieldDescriptor{Name: schema.IDField, Type: schema.FieldString, Indexed: true, Stored: true})
	for _, f := range h.Schema.Fields {
		fields = append(fields, FieldDescriptor{Name: f.Name, Type: f.Type, Indexed: f.Indexed, Stored: f.Stored})
	}

	return Stats{DocumentCount: count, SizeBytes: size, Fields: fields}, nil
}

// EnumerateDocuments walks every document in the index via match-all
// pagination and returns its ids, used to rebuild the metadata registry
// after restart.
func (e *Executor) EnumerateDocuments(index string) ([]string, error) {
	h, ok := e.handles.Get(index)
	if !ok {
		return nil, fmt.Errorf("%w: index %q", ErrNotFound, index)
	}

	const pageSize = 1000
	var ids []string

	q := bleve.NewMatchAllQuery()
	from := 0
	for {
		req := bleve.NewSearchRequest(q)
		req.Size = pageSize
		req.From = from
		req.Fields = []string{schema.IDField}

		res, err := h.Index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("enumerate page at offset %d: %w", from, err)
		}
		if len(res.Hits) == 0 {
			break
		}
		for _, hit := range res.Hits {
			id := hit.ID
			if v, ok := hit.Fields[schema.IDField].(string); ok {
				id = v
			}
			ids = append(ids, id)
		}
		from += len(res.Hits)
		if uint64(from) >= res.Total {
			break
		}
	}
	return ids, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
