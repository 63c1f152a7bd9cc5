package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Rul1an/Gsearch/internal/extract"
	"github.com/Rul1an/Gsearch/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// columns defines the CSV column order
var columns = []string{
	"id",
	"query",
	"num_requested",
	"status",
	"results_json",
	"attempts",
	"blocked",
	"family",
	"duration_ms",
	"created_at",
	"error",
}

// New creates a new CSV-backed storage.Backend. A header row is written when
// the file is empty.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening csv file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stating csv file: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing csv header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flushing csv header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, record *storage.SearchRecord) error {
	resultsJSON, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	row := []string{
		record.ID,
		record.Query,
		strconv.Itoa(record.NumRequested),
		record.Status,
		string(resultsJSON),
		strconv.Itoa(record.Attempts),
		strconv.FormatBool(record.Blocked),
		record.Family,
		strconv.FormatInt(record.Duration.Milliseconds(), 10),
		record.CreatedAt.Format(time.RFC3339Nano),
		record.Error,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seeking to end: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing record: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to start: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	// Skip the header row
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.SearchRecord{}, nil
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	var filtered []*storage.SearchRecord

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}

		if len(row) != len(columns) {
			continue // skip malformed rows
		}

		numRequested, _ := strconv.Atoi(row[2])
		var results []extract.Result
		if err := json.Unmarshal([]byte(row[4]), &results); err != nil {
			results = nil
		}
		attempts, _ := strconv.Atoi(row[5])
		blocked, _ := strconv.ParseBool(row[6])
		durationMs, _ := strconv.ParseInt(row[8], 10, 64)
		createdAt, _ := time.Parse(time.RFC3339Nano, row[9])

		rec := &storage.SearchRecord{
			ID:           row[0],
			Query:        row[1],
			NumRequested: numRequested,
			Status:       row[3],
			Results:      results,
			Attempts:     attempts,
			Blocked:      blocked,
			Family:       row[7],
			Duration:     time.Duration(durationMs) * time.Millisecond,
			CreatedAt:    createdAt,
			Error:        row[10],
		}

		if filter.Query != "" && !strings.Contains(rec.Query, filter.Query) {
			continue
		}
		if filter.Blocked != nil && rec.Blocked != *filter.Blocked {
			continue
		}
		if filter.Since != nil && rec.CreatedAt.Before(*filter.Since) {
			continue
		}

		filtered = append(filtered, rec)
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

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
