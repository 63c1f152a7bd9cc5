package storage

import (
	"context"
	"time"

	"github.com/Rul1an/Gsearch/internal/extract"
)

// SearchRecord is the persisted outcome of one search call: what was asked,
// what came back, and how hard the engine had to work for it.
type SearchRecord struct {
	ID           string           `json:"id"`
	Query        string           `json:"query"`
	NumRequested int              `json:"num_requested"`
	Status       string           `json:"status"` // "ok", "exhausted", "blocked"
	Results      []extract.Result `json:"results"`
	Attempts     int              `json:"attempts"`
	Blocked      bool             `json:"blocked"`
	Family       string           `json:"family,omitempty"` // indicator family when blocked
	Duration     time.Duration    `json:"duration"`
	CreatedAt    time.Time        `json:"created_at"`
	Error        string           `json:"error,omitempty"`
}

// Filter allows querying for specific SearchRecords. Query matches any
// record whose query contains it as a substring.
type Filter struct {
	Query   string
	Blocked *bool
	Since   *time.Time
	Limit   int
	Offset  int
}

// Backend defines the interface for storing and querying search history.
type Backend interface {
	Save(ctx context.Context, record *SearchRecord) error
	Query(ctx context.Context, filter Filter) ([]*SearchRecord, error)
	Close() error
}
