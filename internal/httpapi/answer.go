package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
	"github.com/antflydb/tinyfinder/internal/llmproxy"
	"github.com/antflydb/tinyfinder/internal/search"
)

const defaultAnswerSearchLimit = 5

const defaultSystemPrompt = "Answer only from the provided sources. " +
	"Say you don't know if the sources don't contain the answer. " +
	"Reply in the question's language."

type answerRequest struct {
	Query        string   `json:"query"`
	Fields       []string `json:"fields,omitempty"`
	Fuzzy        bool     `json:"fuzzy,omitempty"`
	SearchLimit  int      `json:"search_limit,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Temperature  *float32 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	Stream       bool     `json:"stream,omitempty"`
}

type answerSource struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

type answerResponse struct {
	Answer       string         `json:"answer"`
	Model        string         `json:"model"`
	SearchTookMS float64        `json:"search_took_ms"`
	LLMTookMS    float64        `json:"llm_took_ms"`
	TotalTookMS  float64        `json:"total_took_ms"`
	Sources      []answerSource `json:"sources"`
}

// handleAnswer implements POST /indices/{name}/answer: it runs the
// same search path as a plain search (minus highlighting and aggregations;
// pinned rules still reorder the hits), formats the hits as numbered sources,
// and forwards a two-message
// chat-completion request to the configured provider — non-streaming as a
// plain JSON body, or as Server-Sent Events when the caller asks to stream.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		writeError(w, s.logger, http.StatusNotImplemented, "generative answers not configured", nil)
		return
	}

	name := chi.URLParam(r, "name")

	var req answerRequest
	if err := jsonutil.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, s.logger, err)
		return
	}
	searchLimit := req.SearchLimit
	if searchLimit <= 0 {
		searchLimit = defaultAnswerSearchLimit
	}

	totalStart := time.Now()
	result, err := s.executor.Search(name, search.Request{
		Query:  req.Query,
		Fields: req.Fields,
		Limit:  searchLimit,
		Fuzzy:  req.Fuzzy,
	})
	if err != nil {
		writeError(w, s.logger, http.StatusNotFound, "search failed", err)
		return
	}

	sources := make([]answerSource, 0, len(result.Hits))
	for _, h := range result.Hits {
		sources = append(sources, answerSource{ID: h.ID, Score: h.Score, Fields: h.Fields})
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	completionReq := llmproxy.Request{
		Model: s.llm.Model(),
		Messages: []llmproxy.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: renderAnswerPrompt(req.Query, sources)},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	if req.Stream {
		s.streamAnswer(w, r, completionReq, result.TookMS, sources)
		return
	}

	llmStart := time.Now()
	resp, err := s.llm.Complete(r.Context(), completionReq)
	if err != nil {
		writeError(w, s.logger, http.StatusBadGateway, "generative answer request failed", err)
		return
	}
	llmTook := elapsedMS(llmStart)

	var answer string
	if len(resp.Choices) > 0 {
		answer = resp.Choices[0].Message.Content
	}

	writeOK(w, answerResponse{
		Answer:       answer,
		Model:        s.llm.Model(),
		SearchTookMS: result.TookMS,
		LLMTookMS:    llmTook,
		TotalTookMS:  elapsedMS(totalStart),
		Sources:      sources,
	})
}

func (s *Server) streamAnswer(w http.ResponseWriter, r *http.Request, req llmproxy.Request, searchTookMS float64, sources []answerSource) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, s.logger, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, "meta", map[string]any{
		"model":          s.llm.Model(),
		"search_took_ms": searchTookMS,
		"sources":        sources,
	})
	flusher.Flush()

	err := s.llm.Stream(r.Context(), req, func(ev llmproxy.StreamEvent) {
		switch ev.Event {
		case "done":
			writeSSE(w, "done", map[string]any{})
		case "error":
			writeSSE(w, "error", map[string]string{"message": ev.Data})
		default:
			writeSSE(w, "", map[string]string{"content": ev.Data})
		}
		flusher.Flush()
	})
	if err != nil {
		s.logger.Warn("generative answer stream ended with error", zap.Error(err))
	}
}

func renderAnswerPrompt(query string, sources []answerSource) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nSources:\n")
	for i, src := range sources {
		b.WriteString(fmt.Sprintf("[%d] id=%s score=%.4f fields=%v\n", i+1, src.ID, src.Score, src.Fields))
	}
	return b.String()
}

func writeSSE(w http.ResponseWriter, event string, data any) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	payload, err := jsonutil.Marshal(data)
	if err != nil {
		payload = []byte(`{}`)
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
