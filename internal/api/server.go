package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Rul1an/Gsearch/internal/extract"
	"github.com/Rul1an/Gsearch/internal/scraper"
	"github.com/Rul1an/Gsearch/internal/storage"
)

const (
	defaultNumResults = 10
	maxNumResults     = 20
)

// Searcher is the orchestrator surface the API depends on.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) (*scraper.Outcome, error)
}

// SearchResponse is the success payload of GET /search.
type SearchResponse struct {
	Query   string           `json:"query"`
	Results []extract.Result `json:"results"`
}

// ErrorResponse is the payload of every non-2xx answer.
type ErrorResponse struct {
	Query  string `json:"query,omitempty"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Server is the HTTP boundary: it validates parameters, runs searches, maps
// outcomes to status codes, and records history. Every failure mode except a
// blocked search degrades to a well-formed response with fewer results.
type Server struct {
	searcher Searcher
	backend  storage.Backend // nil disables persistence
	logger   *slog.Logger
}

// New creates the API server. backend may be nil when history persistence is
// disabled.
func New(searcher Searcher, backend storage.Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		searcher: searcher,
		backend:  backend,
		logger:   logger,
	}
}

// Handler returns the route table for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /search", s.handleSearch)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "query parameter is required"})
		return
	}

	numResults := defaultNumResults
	if raw := r.URL.Query().Get("num_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxNumResults {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Query: query,
				Error: "num_results must be an integer between 1 and 20",
			})
			return
		}
		numResults = n
	}

	outcome, err := s.searcher.Search(r.Context(), query, numResults)
	if err != nil {
		s.logger.Error("search failed", "query", query, "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Query: query, Error: "search failed"})
		return
	}

	s.persist(r.Context(), numResults, outcome)

	if outcome.Status == scraper.StatusBlocked {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Query:  query,
			Error:  "captcha_detected",
			Detail: "the target returned a CAPTCHA/consent challenge; automated access was blocked",
		})
		return
	}

	results := outcome.Results
	if results == nil {
		results = []extract.Result{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: query, Results: results})
}

// persist saves the outcome to the history backend. Persistence failures are
// logged, never surfaced: the caller already has their answer.
func (s *Server) persist(ctx context.Context, numRequested int, outcome *scraper.Outcome) {
	if s.backend == nil {
		return
	}

	record := &storage.SearchRecord{
		ID:           outcome.ID,
		Query:        outcome.Query,
		NumRequested: numRequested,
		Status:       string(outcome.Status),
		Results:      outcome.Results,
		Attempts:     len(outcome.Attempts),
		Blocked:      outcome.Status == scraper.StatusBlocked,
		Family:       string(outcome.Family),
		Duration:     outcome.Duration,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.backend.Save(ctx, record); err != nil {
		s.logger.Error("failed to save search record", "query", outcome.Query, "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
