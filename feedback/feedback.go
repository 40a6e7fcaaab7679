// Package feedback appends user ratings of optimizer runs to a JSON log.
//
// Each append reads the whole array, adds one record and rewrites the file.
// A mutex serializes appends inside one process; nothing guards against a
// second process writing the same file.
package feedback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/teilomillet/ipometa/config"
	"github.com/teilomillet/ipometa/internal/logging"
	"github.com/teilomillet/ipometa/internal/timestamp"
	"github.com/teilomillet/ipometa/llm"
)

const (
	RatingDown = 0
	RatingUp   = 1

	StatusLogged = "Feedback Logged successfully! Thank you."
	errorPrefix  = "ERROR: Could not log feedback to JSON file. Details: "
)

// Record is one logged interaction with its rating.
type Record struct {
	Timestamp       timestamp.Time `json:"timestamp"`
	SessionID       string         `json:"session_id,omitempty" validate:"omitempty,uuid"`
	OriginalPrompt  string         `json:"original_prompt"`
	OptimizedPrompt string         `json:"optimized_prompt"`
	FinalResponse   string         `json:"final_response"`
	Rating          int            `json:"rating" validate:"oneof=0 1" jsonschema:"enum=0,enum=1"`
}

// Summary aggregates the ratings in the log.
type Summary struct {
	Total        int     `json:"total"`
	Positive     int     `json:"positive"`
	Negative     int     `json:"negative"`
	PositiveRate float64 `json:"positive_rate"`
}

// Sink owns the feedback log at Path.
type Sink struct {
	Path   string
	logger logging.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func New(path string, logger logging.Logger) *Sink {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Sink{Path: path, logger: logger, now: time.Now}
}

// NewFromConfig uses cfg.FeedbackLogPath.
func NewFromConfig(cfg *config.Config) *Sink {
	return New(cfg.FeedbackLogPath, cfg.GetLogger())
}

// Append logs one rated interaction and returns a status line for display.
// Failures are reported in the returned string, never as an error.
func (s *Sink) Append(original, optimized, response string, rating int) string {
	return s.AppendRecord(Record{
		OriginalPrompt:  original,
		OptimizedPrompt: optimized,
		FinalResponse:   response,
		Rating:          rating,
	})
}

// AppendRecord is Append for a prebuilt record. A zero timestamp is filled in.
func (s *Sink) AppendRecord(rec Record) string {
	if err := s.append(rec); err != nil {
		s.logger.Error("Failed to log feedback", "path", s.Path, "error", err)
		return errorPrefix + err.Error()
	}
	s.logger.Info("Feedback logged", "path", s.Path, "rating", rec.Rating, "session", rec.SessionID)
	return StatusLogged
}

func (s *Sink) append(rec Record) error {
	if err := llm.Validate(&rec); err != nil {
		return fmt.Errorf("invalid feedback record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stamped under the lock so file order and timestamp order agree.
	if rec.Timestamp.IsZero() {
		rec.Timestamp = timestamp.From(s.now())
	}
	entry, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback record: %w", err)
	}

	entries, err := s.read(true)
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal feedback log: %w", err)
	}
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Path, err)
	}
	return nil
}

// read loads the log entries undecoded, so entries this version cannot parse
// survive a rewrite. Missing or blank files are empty logs. With lenient set,
// content that is not a JSON array is also treated as empty.
func (s *Sink) read(lenient bool) ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		if !lenient {
			return nil, fmt.Errorf("failed to parse %s: %w", s.Path, err)
		}
		s.logger.Warn("Feedback log is not a JSON array, starting a new list", "path", s.Path, "error", err)
		return nil, nil
	}
	return entries, nil
}

// Records returns the logged records in insertion order. Entries that do not
// decode as a Record are skipped with a warning; they stay in the file.
func (s *Sink) Records() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(false)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(entries))
	for i, entry := range entries {
		var rec Record
		if err := json.Unmarshal(entry, &rec); err != nil {
			s.logger.Warn("Skipping unreadable feedback record", "path", s.Path, "index", i, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Summarize counts ratings across the log.
func (s *Sink) Summarize() (Summary, error) {
	records, err := s.Records()
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	for _, r := range records {
		sum.Total++
		if r.Rating == RatingUp {
			sum.Positive++
		} else {
			sum.Negative++
		}
	}
	if sum.Total > 0 {
		sum.PositiveRate = float64(sum.Positive) / float64(sum.Total)
	}
	return sum, nil
}
