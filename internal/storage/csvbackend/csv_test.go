package csvbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rul1an/Gsearch/internal/extract"
	"github.com/Rul1an/Gsearch/internal/storage"
)

func TestCSVBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searches.csv")
	b, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create CSV backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	rec := &storage.SearchRecord{
		ID:           "csv1",
		Query:        "wbso, subsidie", // comma must survive CSV quoting
		NumRequested: 3,
		Status:       "ok",
		Results: []extract.Result{
			{Title: "A", Link: "https://example.com/a", Snippet: "first"},
			{Title: "B", Link: "https://example.com/b", Snippet: "second"},
		},
		Attempts:  1,
		Duration:  30 * time.Millisecond,
		CreatedAt: now,
	}

	if err := b.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	records, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	got := records[0]
	if got.Query != rec.Query || got.Status != "ok" || got.NumRequested != 3 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if len(got.Results) != 2 || got.Results[1].Title != "B" {
		t.Errorf("results not preserved: %+v", got.Results)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created_at mismatch: %v vs %v", got.CreatedAt, now)
	}

	// Query filter matches substrings
	records, err = b.Query(ctx, storage.Filter{Query: "wbso"})
	if err != nil {
		t.Fatalf("Failed to query by substring: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record for substring filter, got %d", len(records))
	}
	records, err = b.Query(ctx, storage.Filter{Query: "elders"})
	if err != nil {
		t.Fatalf("Failed to query by substring: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records for non-matching filter, got %d", len(records))
	}

	// Reopening the same file must keep the existing rows and header
	if err := b.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
	reopened, err := New(path)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	defer reopened.Close()

	records, err = reopened.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query after reopen: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record after reopen, got %d", len(records))
	}
}
