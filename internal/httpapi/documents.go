package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/antflydb/tinyfinder/internal/document"
	"github.com/antflydb/tinyfinder/internal/jsonutil"
)

type addDocumentsRequest struct {
	Documents []rawDocument `json:"documents"`
}

// rawDocument is a document as it arrives over the wire: a flat JSON object
// of declared-field-name -> value, plus an "id" key pulled out of the same
// object rather than nested under a separate envelope.
type rawDocument struct {
	ID     string
	Fields map[string]any
}

func (d *rawDocument) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := jsonutil.Unmarshal(data, &m); err != nil {
		return err
	}
	if v, ok := m["id"]; ok {
		if s, ok := v.(string); ok {
			d.ID = s
		}
		delete(m, "id")
	}
	d.Fields = m
	return nil
}

const maxDocumentsPerRequest = 1000

// handleAddDocuments implements POST /indices/{name}/documents: coerces
// each document against the index's declared schema, indexes the batch, and
// records the ids in the metadata registry so GET /indices's document counts
// stay accurate without touching the segment store.
func (s *Server) handleAddDocuments(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h, ok := s.handles.Get(name)
	if !ok {
		writeError(w, s.logger, http.StatusNotFound, "index not found", nil)
		return
	}

	var req addDocumentsRequest
	if err := jsonutil.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, s.logger, err)
		return
	}
	if len(req.Documents) > maxDocumentsPerRequest {
		writeError(w, s.logger, http.StatusBadRequest, "too many documents in one request", nil)
		return
	}

	docs := make([]document.Document, 0, len(req.Documents))
	for _, raw := range req.Documents {
		id := raw.ID
		if id == "" {
			id = uuid.NewString()
		}
		d, err := document.Coerce(h.Schema, id, raw.Fields)
		if err != nil {
			writeError(w, s.logger, http.StatusBadRequest, "document does not match schema", err)
			return
		}
		docs = append(docs, d)
	}

	if err := s.executor.AddDocuments(name, docs); err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "index documents failed", err)
		return
	}

	ctx, cancel := pingCtx()
	defer cancel()
	now := time.Now()
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
		if err := s.metadata.UpsertDocument(ctx, name, d.ID, now); err != nil {
			writeError(w, s.logger, http.StatusInternalServerError, "record document failed", err)
			return
		}
	}

	writeOK(w, map[string]any{"ids": ids})
}

// handleDeleteDocument implements DELETE /indices/{name}/documents/{id}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id := chi.URLParam(r, "id")

	if err := s.executor.DeleteDocument(name, id); err != nil {
		writeError(w, s.logger, http.StatusNotFound, "delete document failed", err)
		return
	}

	ctx, cancel := pingCtx()
	defer cancel()
	if err := s.metadata.DeleteDocument(ctx, name, id); err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "deregister document failed", err)
		return
	}

	writeOK(w, map[string]string{"id": id})
}

// bulkOperation is one entry of a bulk request: "index" carries Document,
// "delete" carries ID.
type bulkOperation struct {
	Operation string       `json:"operation"`
	Document  *rawDocument `json:"document,omitempty"`
	ID        string       `json:"id,omitempty"`
}

type bulkRequest struct {
	Operations []bulkOperation `json:"operations"`
}

// bulkResult is the aggregated response shape: total operations attempted,
// how many succeeded, how many failed, and a per-failure message list.
type bulkResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

const maxBulkOperations = 1000

// handleBulk implements POST /indices/{name}/bulk: a mixed batch of index and
// delete operations. Every operation is validated in request order first;
// then all deletes run, in request order, and after them all indexing
// operations that passed coercion are committed as a single batch via the
// executor. Per-operation failures are captured into the response's errors
// list rather than aborting the request, so a batch partially succeeds.
func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h, ok := s.handles.Get(name)
	if !ok {
		writeError(w, s.logger, http.StatusNotFound, "index not found", nil)
		return
	}

	var req bulkRequest
	if err := jsonutil.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, s.logger, err)
		return
	}
	if len(req.Operations) > maxBulkOperations {
		writeError(w, s.logger, http.StatusBadRequest, "too many operations in one request", nil)
		return
	}

	ctx, cancel := pingCtx()
	defer cancel()
	now := time.Now()

	result := bulkResult{Total: len(req.Operations)}
	var toIndex []document.Document
	var toIndexIDs []string
	var toDelete []string

	for i, op := range req.Operations {
		switch op.Operation {
		case "delete":
			if op.ID == "" {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("Operation %d failed: missing id", i+1))
				continue
			}
			toDelete = append(toDelete, op.ID)

		case "index":
			if op.Document == nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("Operation %d failed: missing document", i+1))
				continue
			}
			id := op.Document.ID
			if id == "" {
				id = uuid.NewString()
			}
			d, err := document.Coerce(h.Schema, id, op.Document.Fields)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("Operation %d failed: %s", i+1, err))
				continue
			}
			toIndex = append(toIndex, d)
			toIndexIDs = append(toIndexIDs, d.ID)

		default:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Operation %d failed: unknown operation %q", i+1, op.Operation))
		}
	}

	for _, id := range toDelete {
		if err := s.executor.DeleteDocument(name, id); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("delete %q failed: %s", id, err))
			continue
		}
		if err := s.metadata.DeleteDocument(ctx, name, id); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("delete %q failed: %s", id, err))
			continue
		}
		result.Successful++
	}

	if len(toIndex) > 0 {
		if err := s.executor.AddDocuments(name, toIndex); err != nil {
			result.Failed += len(toIndex)
			result.Errors = append(result.Errors, fmt.Sprintf("bulk index failed: %s", err))
		} else {
			for _, id := range toIndexIDs {
				if err := s.metadata.UpsertDocument(ctx, name, id, now); err != nil {
					result.Failed++
					result.Errors = append(result.Errors, fmt.Sprintf("record document %q failed: %s", id, err))
					continue
				}
				result.Successful++
			}
		}
	}

	writeOK(w, result)
}
