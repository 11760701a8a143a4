package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
	"github.com/antflydb/tinyfinder/internal/synonym"
)

type synonymsDTO struct {
	Synonyms []synonym.Group `json:"synonyms"`
}

// handleGetSynonyms implements GET /indices/{name}/synonyms: returns
// the same {synonyms: [...]} shape the POST body accepts.
func (s *Server) handleGetSynonyms(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	writeOK(w, synonymsDTO{Synonyms: s.synonyms.Get(name)})
}

// handlePostSynonyms implements POST /indices/{name}/synonyms: appends every
// submitted synonym group.
func (s *Server) handlePostSynonyms(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req synonymsDTO
	if err := jsonutil.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, s.logger, err)
		return
	}
	for _, group := range req.Synonyms {
		if len(group.Terms) < 2 {
			writeError(w, s.logger, http.StatusBadRequest, "a synonym group needs at least two terms", nil)
			return
		}
	}

	for _, group := range req.Synonyms {
		if err := s.synonyms.Add(name, group); err != nil {
			writeError(w, s.logger, http.StatusInternalServerError, "persist synonym group failed", err)
			return
		}
	}
	writeOK(w, synonymsDTO{Synonyms: s.synonyms.Get(name)})
}

// handleDeleteSynonyms implements DELETE /indices/{name}/synonyms: clears
// every group for the index.
func (s *Server) handleDeleteSynonyms(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.synonyms.Clear(name); err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "clear synonyms failed", err)
		return
	}
	writeOK(w, synonymsDTO{Synonyms: []synonym.Group{}})
}
