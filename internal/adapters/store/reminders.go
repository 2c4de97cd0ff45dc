package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/usamitakanari/discord-bot/internal/domain"
)

// ReminderFile persists reminders as a JSON object keyed by guild ID.
type ReminderFile struct {
	path string
}

var _ domain.ReminderStore = (*ReminderFile)(nil)

// NewReminderFile creates a store at path.
func NewReminderFile(path string) *ReminderFile {
	return &ReminderFile{path: path}
}

// Load reads all reminders. A missing file yields an empty map.
func (s *ReminderFile) Load() (map[string][]domain.Reminder, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]domain.Reminder{}, nil
		}
		return nil, fmt.Errorf("read reminders: %w", err)
	}
	out := map[string][]domain.Reminder{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode reminders: %w", err)
	}
	return out, nil
}

// Save rewrites the reminder file atomically.
func (s *ReminderFile) Save(reminders map[string][]domain.Reminder) error {
	raw, err := json.MarshalIndent(reminders, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reminders: %w", err)
	}
	return writeAtomic(s.path, raw)
}
