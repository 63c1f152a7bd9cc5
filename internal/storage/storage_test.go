package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Rul1an/Gsearch/internal/extract"
)

// ensure SearchRecord compiles and has the fields expected
func TestSearchRecord_Types(t *testing.T) {
	_ = SearchRecord{
		ID:           "test1234",
		Query:        "wbso subsidie",
		NumRequested: 10,
		Status:       "ok",
		Results: []extract.Result{
			{Title: "t", Link: "https://example.com", Snippet: "s"},
		},
		Attempts:  1,
		Blocked:   false,
		Family:    "",
		Duration:  10 * time.Millisecond,
		CreatedAt: time.Now(),
		Error:     "",
	}

	boolTrue := true
	now := time.Now()
	_ = Filter{
		Query:   "wbso subsidie",
		Blocked: &boolTrue,
		Since:   &now,
		Limit:   10,
		Offset:  0,
	}
}

// Ensure Backend interface exists and is implementable
type mockBackend struct{}

func (m *mockBackend) Save(ctx context.Context, record *SearchRecord) error { return nil }
func (m *mockBackend) Query(ctx context.Context, filter Filter) ([]*SearchRecord, error) {
	return nil, nil
}
func (m *mockBackend) Close() error { return nil }

func TestBackendInterface(t *testing.T) {
	var b Backend = &mockBackend{}
	_ = b
}
