package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/Rul1an/Gsearch/internal/storage"
)

// Summary contains aggregated metrics about stored search history.
type Summary struct {
	TotalSearches  int
	TotalResults   int
	TotalBlocked   int
	TotalErrors    int
	TotalAttempts  int
	ByStatus       map[string]int
	BlocksByFamily map[string]int
	AvgResults     float64
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// GenerateSummary processes a slice of search records to generate summary metrics.
func GenerateSummary(records []*storage.SearchRecord) Summary {
	s := Summary{
		ByStatus:       make(map[string]int),
		BlocksByFamily: make(map[string]int),
	}

	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt

	for _, r := range records {
		s.TotalSearches++
		s.TotalResults += len(r.Results)
		s.TotalAttempts += r.Attempts
		if r.Blocked {
			s.TotalBlocked++
			s.BlocksByFamily[r.Family]++
		}
		if r.Error != "" {
			s.TotalErrors++
		}
		s.ByStatus[r.Status]++

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.AvgResults = float64(s.TotalResults) / float64(s.TotalSearches)
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Gsearch History Summary
-----------------------
Time:           {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:       {{.Duration}}
Total Searches: {{.TotalSearches}}
Total Results:  {{.TotalResults}} (avg {{printf "%.1f" .AvgResults}} per search)
Total Attempts: {{.TotalAttempts}}
Total Errors:   {{.TotalErrors}}

Status:
{{- range $status, $count := .ByStatus}}
  {{$status}}: {{$count}}
{{- else}}
  None
{{- end}}

Blocked: {{.TotalBlocked}}
{{- range $family, $count := .BlocksByFamily}}
  {{$family}}: {{$count}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("rendering summary: %w", err)
	}

	return nil
}
