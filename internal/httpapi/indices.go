package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
	"github.com/antflydb/tinyfinder/internal/schema"
)

type createIndexRequest struct {
	Name   string               `json:"name"`
	Fields []schema.FieldConfig `json:"fields"`
}

type indexSummary struct {
	Name          string `json:"name"`
	DocumentCount int64  `json:"document_count"`
	CreatedAt     string `json:"created_at"`
}

// handleCreateIndex implements POST /indices: validates the name,
// builds the mapping, opens the bleve index, and registers it in the
// metadata store. The metadata row is written only after the index handle
// is created successfully, so a failed Create never leaves an orphaned row.
func (s *Server) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	var req createIndexRequest
	if err := jsonutil.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, s.logger, err)
		return
	}
	if err := validateIndexName(req.Name); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, err.Error(), nil)
		return
	}
	fields := req.Fields
	if len(fields) == 0 {
		fields = defaultFields
	}

	if _, err := s.handles.Create(req.Name, fields); err != nil {
		writeError(w, s.logger, http.StatusConflict, "create index failed", err)
		return
	}

	ctx, cancel := pingCtx()
	defer cancel()
	now := time.Now()
	if err := s.metadata.CreateIndex(ctx, req.Name, now); err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "register index failed", err)
		return
	}

	writeOK(w, indexSummary{Name: req.Name, DocumentCount: 0, CreatedAt: now.Format(time.RFC3339)})
}

// handleDeleteIndex implements DELETE /indices/{name}.
func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.handles.Delete(name); err != nil {
		writeError(w, s.logger, http.StatusNotFound, "delete index failed", err)
		return
	}

	ctx, cancel := pingCtx()
	defer cancel()
	if err := s.metadata.DeleteIndex(ctx, name); err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "deregister index failed", err)
		return
	}

	writeOK(w, map[string]string{"name": name})
}

// handleListIndices implements GET /indices from the metadata registry, so
// listing never needs to touch the segment store.
func (s *Server) handleListIndices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := pingCtx()
	defer cancel()

	rows, err := s.metadata.ListIndices(ctx)
	if err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "list indices failed", err)
		return
	}

	out := make([]indexSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, indexSummary{
			Name:          row.Name,
			DocumentCount: row.DocumentCount,
			CreatedAt:     row.CreatedAt.Format(time.RFC3339),
		})
	}
	writeOK(w, out)
}

// validateIndexName enforces the name-validation invariant:
// ^[A-Za-z][A-Za-z0-9_-]{0,63}$ and none of "..", "/", "\".
func validateIndexName(name string) error {
	const maxIndexNameLength = 64
	if name == "" || len(name) > maxIndexNameLength {
		return errInvalidIndexName("index name must be 1-64 characters")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return errInvalidIndexName("index name must not contain '..', '/', or '\\'")
	}
	for i, r := range name {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if i == 0 {
			if !isLetter {
				return errInvalidIndexName("index name must start with a letter")
			}
			continue
		}
		if !isLetter && !isDigit && r != '_' && r != '-' {
			return errInvalidIndexName("index name must contain only letters, digits, '_' and '-'")
		}
	}
	return nil
}

type errInvalidIndexName string

func (e errInvalidIndexName) Error() string { return string(e) }
