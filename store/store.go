// Package store persists the master prompt configuration.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teilomillet/ipometa/config"
	"github.com/teilomillet/ipometa/internal/logging"
	"github.com/teilomillet/ipometa/internal/timestamp"
	"github.com/teilomillet/ipometa/llm"
)

const (
	// DefaultSystemMessage is written on first use; it tells the operator
	// the file still needs a real instruction.
	DefaultSystemMessage = "Error: Master prompt file not found."
	DefaultVersion       = "0.0.0"

	criticalErrorPrefix = "CRITICAL ERROR: "
)

// MasterPromptConfig is the system instruction combined with every request.
type MasterPromptConfig struct {
	SystemMessage string         `json:"system_message" validate:"required"`
	ModelName     string         `json:"model_name" jsonschema:"example=x-ai/grok-4-fast"`
	Version       string         `json:"version" validate:"required"`
	LastUpdated   timestamp.Time `json:"last_updated"`
}

// Degraded reports whether the record stands in for an unreadable file.
func (m MasterPromptConfig) Degraded() bool {
	return strings.HasPrefix(m.SystemMessage, criticalErrorPrefix)
}

// Store reads and writes the master prompt document at Path.
type Store struct {
	Path         string
	DefaultModel string
	logger       logging.Logger
	now          func() time.Time
}

func New(path, defaultModel string, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if defaultModel == "" {
		defaultModel = config.DefaultModel
	}
	return &Store{Path: path, DefaultModel: defaultModel, logger: logger, now: time.Now}
}

// NewFromConfig uses cfg.MasterPromptPath and cfg.Model.
func NewFromConfig(cfg *config.Config) *Store {
	return New(cfg.MasterPromptPath, cfg.Model, cfg.GetLogger())
}

// Load returns the stored record and never fails. A missing file is replaced
// by a persisted default; any other failure yields a degraded in-memory record
// whose system message carries the error text.
func (s *Store) Load() MasterPromptConfig {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.createDefault()
	}
	if err != nil {
		return s.degraded(err)
	}

	var cfg MasterPromptConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return s.degraded(fmt.Errorf("parse %s: %w", s.Path, err))
	}
	if err := llm.Validate(&cfg); err != nil {
		s.logger.Warn("Master prompt failed validation", "path", s.Path, "error", err)
	}
	s.logger.Debug("Master prompt loaded", "path", s.Path, "version", cfg.Version)
	return cfg
}

func (s *Store) createDefault() MasterPromptConfig {
	cfg := MasterPromptConfig{
		SystemMessage: DefaultSystemMessage,
		ModelName:     s.DefaultModel,
		Version:       DefaultVersion,
		LastUpdated:   timestamp.From(s.now()),
	}
	if err := s.Save(cfg); err != nil {
		s.logger.Warn("Failed to persist default master prompt", "path", s.Path, "error", err)
	} else {
		s.logger.Info("Created default master prompt", "path", s.Path)
	}
	return cfg
}

func (s *Store) degraded(err error) MasterPromptConfig {
	s.logger.Error("Error loading master prompt", "path", s.Path, "error", err)
	return MasterPromptConfig{SystemMessage: criticalErrorPrefix + err.Error()}
}

// Save writes cfg as indented JSON, creating parent directories.
func (s *Store) Save(cfg MasterPromptConfig) error {
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal master prompt: %w", err)
	}
	return writeFile(s.Path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
