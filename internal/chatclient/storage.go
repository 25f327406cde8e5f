package chatclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tommylisiak/portfolio-chat/internal/model"
)

// Storage persists the local conversation between sessions.
type Storage interface {
	Load() ([]model.Message, error)
	Save(messages []model.Message) error
	Clear() error
}

// MemoryStorage keeps messages in memory only.
type MemoryStorage struct {
	messages []model.Message
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns the stored messages.
func (s *MemoryStorage) Load() ([]model.Message, error) {
	return append([]model.Message(nil), s.messages...), nil
}

// Save replaces the stored messages.
func (s *MemoryStorage) Save(messages []model.Message) error {
	s.messages = append([]model.Message(nil), messages...)
	return nil
}

// Clear discards the stored messages.
func (s *MemoryStorage) Clear() error {
	s.messages = nil
	return nil
}

// FileStorage persists messages as a JSON file, the terminal equivalent of
// the browser's session storage.
type FileStorage struct {
	path string
}

// NewFileStorage creates storage at path, creating parent directories.
func NewFileStorage(path string) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{path: path}, nil
}

// Load reads the stored messages, empty if the file does not exist.
func (s *FileStorage) Load() ([]model.Message, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var messages []model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		// A corrupted history file is treated as absent.
		return nil, nil
	}
	return messages, nil
}

// Save writes the messages to the file.
func (s *FileStorage) Save(messages []model.Message) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// Clear removes the history file.
func (s *FileStorage) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove history file: %w", err)
	}
	return nil
}

// LoadOrCreateVisitorID returns the stable visitor identifier stored at
// path, generating and persisting one on first use.
func LoadOrCreateVisitorID(path string) (string, error) {
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return string(data), nil
	}

	id := "visitor-" + uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create visitor ID directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("failed to persist visitor ID: %w", err)
	}
	return id, nil
}
