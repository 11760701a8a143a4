package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
	"github.com/antflydb/tinyfinder/internal/pinned"
)

type pinnedDTO struct {
	Rules []pinned.Rule `json:"rules"`
}

// handleGetPinned implements GET /indices/{name}/pinned: returns the
// same {rules: [...]} shape the POST body accepts.
func (s *Server) handleGetPinned(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	writeOK(w, pinnedDTO{Rules: s.pinned.Get(name)})
}

// handlePostPinned implements POST /indices/{name}/pinned: appends every
// submitted pinned-result rule.
func (s *Server) handlePostPinned(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req pinnedDTO
	if err := jsonutil.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, s.logger, err)
		return
	}
	for _, rule := range req.Rules {
		if len(rule.Queries) == 0 || len(rule.DocumentIDs) == 0 {
			writeError(w, s.logger, http.StatusBadRequest, "a pinned rule needs at least one trigger and one document id", nil)
			return
		}
	}

	for _, rule := range req.Rules {
		if err := s.pinned.Add(name, rule); err != nil {
			writeError(w, s.logger, http.StatusInternalServerError, "persist pinned rule failed", err)
			return
		}
	}
	writeOK(w, pinnedDTO{Rules: s.pinned.Get(name)})
}

// handleDeletePinned implements DELETE /indices/{name}/pinned: clears every
// rule for the index.
func (s *Server) handleDeletePinned(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.pinned.Clear(name); err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "clear pinned rules failed", err)
		return
	}
	writeOK(w, pinnedDTO{Rules: []pinned.Rule{}})
}
