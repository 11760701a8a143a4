// Package httpapi is the JSON/HTTP boundary: routing, CORS,
// bearer-token auth, request validation, and the generative-answer proxy
// wiring. It never implements search semantics itself — every handler is a
// thin adapter onto internal/search, internal/handle, internal/synonym,
// internal/pinned, and internal/metadata.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/antflydb/tinyfinder/internal/handle"
	"github.com/antflydb/tinyfinder/internal/llmproxy"
	"github.com/antflydb/tinyfinder/internal/metadata"
	"github.com/antflydb/tinyfinder/internal/pinned"
	"github.com/antflydb/tinyfinder/internal/schema"
	"github.com/antflydb/tinyfinder/internal/search"
	"github.com/antflydb/tinyfinder/internal/synonym"
)

// Server holds every collaborator a handler needs.
type Server struct {
	logger   *zap.Logger
	handles  *handle.Cache
	metadata *metadata.Store
	executor *search.Executor
	synonyms *synonym.Store
	pinned   *pinned.Store
	llm      *llmproxy.Client // nil when no provider is configured

	apiTokens   []string
	corsOrigins []string
}

// Config carries the collaborators and auth/CORS policy needed to build a Server.
type Config struct {
	Logger      *zap.Logger
	Handles     *handle.Cache
	Metadata    *metadata.Store
	Executor    *search.Executor
	Synonyms    *synonym.Store
	Pinned      *pinned.Store
	LLM         *llmproxy.Client
	APITokens   []string
	CORSOrigins []string
}

// NewServer builds a Server from its collaborators.
func NewServer(c Config) *Server {
	return &Server{
		logger:      c.Logger,
		handles:     c.Handles,
		metadata:    c.Metadata,
		executor:    c.Executor,
		synonyms:    c.Synonyms,
		pinned:      c.Pinned,
		llm:         c.LLM,
		apiTokens:   c.APITokens,
		corsOrigins: c.CORSOrigins,
	}
}

// Router builds the full chi router for the service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(bodyLimit)
	r.Use(cors(s.corsOrigins))

	// Public, unauthenticated surface.
	r.Get("/health", s.handleHealth)
	r.Get("/indices", s.handleListIndices)
	r.Post("/indices/{name}/search", s.handleSearch)
	r.Post("/indices/{name}/suggest", s.handleSuggest)
	r.Get("/indices/{name}/stats", s.handleStats)
	r.Post("/indices/{name}/answer", s.handleAnswer)

	// Protected, bearer-token-gated surface.
	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(s.apiTokens))

		r.Post("/indices", s.handleCreateIndex)
		r.Delete("/indices/{name}", s.handleDeleteIndex)

		r.Post("/indices/{name}/documents", s.handleAddDocuments)
		r.Delete("/indices/{name}/documents/{id}", s.handleDeleteDocument)
		r.Post("/indices/{name}/bulk", s.handleBulk)

		r.Get("/indices/{name}/synonyms", s.handleGetSynonyms)
		r.Post("/indices/{name}/synonyms", s.handlePostSynonyms)
		r.Delete("/indices/{name}/synonyms", s.handleDeleteSynonyms)

		r.Get("/indices/{name}/pinned", s.handleGetPinned)
		r.Post("/indices/{name}/pinned", s.handlePostPinned)
		r.Delete("/indices/{name}/pinned", s.handleDeletePinned)
	})

	return r
}

var defaultFields = []schema.FieldConfig{
	{Name: "title", Type: schema.FieldText, Stored: true, Indexed: true},
	{Name: "content", Type: schema.FieldText, Stored: true, Indexed: true},
}

func pingCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
