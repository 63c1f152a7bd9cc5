package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Rul1an/Gsearch/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New creates a new NDJSON-backed storage.Backend. Records are appended one
// JSON object per line.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening ndjson file: %w", err)
	}

	return &jsonBackend{file: f}, nil
}

func (b *jsonBackend) Save(ctx context.Context, record *storage.SearchRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending record: %w", err)
	}

	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to start: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)

	// NDJSON has no query engine: read everything, filter in memory, then
	// order and slice.
	var filtered []*storage.SearchRecord

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r storage.SearchRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}

		if filter.Query != "" && !strings.Contains(r.Query, filter.Query) {
			continue
		}
		if filter.Blocked != nil && r.Blocked != *filter.Blocked {
			continue
		}
		if filter.Since != nil && r.CreatedAt.Before(*filter.Since) {
			continue
		}

		filtered = append(filtered, &r)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ndjson file: %w", err)
	}

	// Order by created_at DESC (append order is oldest first)
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(filtered) {
			return []*storage.SearchRecord{}, nil
		}
		filtered = filtered[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(filtered) {
		filtered = filtered[:filter.Limit]
	}

	return filtered, nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
