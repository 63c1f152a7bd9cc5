package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Rul1an/Gsearch/internal/detect"
	"github.com/Rul1an/Gsearch/internal/extract"
	"github.com/Rul1an/Gsearch/internal/scraper"
	"github.com/Rul1an/Gsearch/internal/storage"
)

type fakeSearcher struct {
	outcome *scraper.Outcome
	err     error

	gotQuery string
	gotNum   int
}

func (f *fakeSearcher) Search(_ context.Context, query string, numResults int) (*scraper.Outcome, error) {
	f.gotQuery = query
	f.gotNum = numResults
	return f.outcome, f.err
}

type memoryBackend struct {
	mu      sync.Mutex
	records []*storage.SearchRecord
	err     error
}

func (m *memoryBackend) Save(_ context.Context, record *storage.SearchRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryBackend) Query(_ context.Context, _ storage.Filter) ([]*storage.SearchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*storage.SearchRecord(nil), m.records...), nil
}

func (m *memoryBackend) Close() error { return nil }

func okOutcome(query string) *scraper.Outcome {
	return &scraper.Outcome{
		ID:     "abc123",
		Query:  query,
		Status: scraper.StatusOK,
		Results: []extract.Result{
			{Title: "Go", Link: "https://go.dev", Snippet: "The Go programming language."},
		},
		Attempts: []scraper.Attempt{{Number: 1, Outcome: scraper.AttemptSuccess}},
	}
}

func TestHealth(t *testing.T) {
	srv := New(&fakeSearcher{}, nil, slog.Default())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestSearchSuccess(t *testing.T) {
	searcher := &fakeSearcher{outcome: okOutcome("golang")}
	backend := &memoryBackend{}
	srv := New(searcher, backend, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/search?query=golang&num_results=5", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if searcher.gotQuery != "golang" || searcher.gotNum != 5 {
		t.Errorf("searcher called with (%q, %d), want (golang, 5)", searcher.gotQuery, searcher.gotNum)
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Query != "golang" {
		t.Errorf("query = %q, want %q", resp.Query, "golang")
	}
	if len(resp.Results) != 1 || resp.Results[0].Link != "https://go.dev" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}

	if len(backend.records) != 1 {
		t.Fatalf("saved %d records, want 1", len(backend.records))
	}
	saved := backend.records[0]
	if saved.Query != "golang" || saved.NumRequested != 5 || saved.Blocked {
		t.Errorf("unexpected record: %+v", saved)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	srv := New(&fakeSearcher{}, nil, slog.Default())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/search", nil)

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected a non-empty error field")
	}
}

func TestSearchNumResultsValidation(t *testing.T) {
	for _, raw := range []string{"0", "21", "-3", "ten", "3.5"} {
		searcher := &fakeSearcher{outcome: okOutcome("q")}
		srv := New(searcher, nil, slog.Default())
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/search?query=q&num_results="+raw, nil)

		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != 400 {
			t.Errorf("num_results=%q: status = %d, want 400", raw, rec.Code)
		}
		if searcher.gotQuery != "" {
			t.Errorf("num_results=%q: searcher should not have been called", raw)
		}
	}
}

func TestSearchNumResultsDefault(t *testing.T) {
	searcher := &fakeSearcher{outcome: okOutcome("q")}
	srv := New(searcher, nil, slog.Default())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/search?query=q", nil)

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if searcher.gotNum != 10 {
		t.Errorf("num_results defaulted to %d, want 10", searcher.gotNum)
	}
}

func TestSearchBlocked(t *testing.T) {
	outcome := &scraper.Outcome{
		ID:     "blocked1",
		Query:  "q",
		Status: scraper.StatusBlocked,
		Family: detect.FamilyCaptcha,
	}
	backend := &memoryBackend{}
	srv := New(&fakeSearcher{outcome: outcome}, backend, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/search?query=q", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 503 {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Error != "captcha_detected" {
		t.Errorf("error = %q, want %q", resp.Error, "captcha_detected")
	}
	if resp.Query != "q" {
		t.Errorf("query = %q, want %q", resp.Query, "q")
	}

	if len(backend.records) != 1 {
		t.Fatalf("saved %d records, want 1", len(backend.records))
	}
	if !backend.records[0].Blocked || backend.records[0].Family != string(detect.FamilyCaptcha) {
		t.Errorf("unexpected record: %+v", backend.records[0])
	}
}

func TestSearchExhaustedReturnsEmptyResults(t *testing.T) {
	outcome := &scraper.Outcome{
		ID:     "exh1",
		Query:  "q",
		Status: scraper.StatusExhausted,
	}
	srv := New(&fakeSearcher{outcome: outcome}, nil, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/search?query=q", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("results = %v, want empty non-nil slice", resp.Results)
	}
}

func TestSearchInternalError(t *testing.T) {
	srv := New(&fakeSearcher{err: errors.New("boom")}, nil, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/search?query=q", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 500 {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestSaveFailureIsNotSurfaced(t *testing.T) {
	backend := &memoryBackend{err: errors.New("disk full")}
	srv := New(&fakeSearcher{outcome: okOutcome("q")}, backend, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/search?query=q", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200 despite save failure", rec.Code)
	}
}
