package search

import (
	"fmt"

	"github.com/antflydb/tinyfinder/internal/document"
)

// AddDocuments indexes a batch of coerced documents and commits before
// returning, so the handle's writer lock makes the mutation
// linearizable from the issuer's viewpoint: any subsequent read on this
// index observes it.
func (e *Executor) AddDocuments(index string, docs []document.Document) error {
	h, ok := e.handles.Get(index)
	if !ok {
		return fmt.Errorf("%w: index %q", ErrNotFound, index)
	}

	h.Lock()
	defer h.Unlock()

	batch := h.Index.NewBatch()
	for _, d := range docs {
		fields := make(map[string]any, len(d.Fields)+1)
		for k, v := range d.Fields {
			fields[k] = v
		}
		fields["id"] = d.ID
		if err := batch.Index(d.ID, fields); err != nil {
			return fmt.Errorf("batch index document %q: %w", d.ID, err)
		}
	}

	if err := h.Index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// DeleteDocument deletes one document by id and commits before returning.
func (e *Executor) DeleteDocument(index, id string) error {
	h, ok := e.handles.Get(index)
	if !ok {
		return fmt.Errorf("%w: index %q", ErrNotFound, index)
	}

	h.Lock()
	defer h.Unlock()

	if err := h.Index.Delete(id); err != nil {
		return fmt.Errorf("delete document %q: %w", id, err)
	}
	return nil
}
