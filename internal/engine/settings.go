package engine

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trax/internal/models"
	"github.com/desertthunder/trax/internal/storage"
)

// SettingsStore persists runtime-mutable payment presentation state (UPI ID,
// QR photo reference) edited by admin commands.
type SettingsStore struct {
	mu       sync.Mutex
	path     string
	settings models.Settings
}

// OpenSettings loads the settings document at path; absent or malformed
// content yields empty settings.
func OpenSettings(path string, logger *log.Logger) (*SettingsStore, error) {
	s := &SettingsStore{path: path}
	if err := storage.Load(path, &s.settings, logger); err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	return s, nil
}

// Get returns the current settings.
func (s *SettingsStore) Get() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetUPI updates the UPI ID used in payment instructions.
func (s *SettingsStore) SetUPI(upiID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.settings
	s.settings.UPIID = upiID
	if err := storage.Save(s.path, s.settings); err != nil {
		s.settings = prev
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}

// SetQRPhoto updates the stored QR photo file reference.
func (s *SettingsStore) SetQRPhoto(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.settings
	s.settings.QRPhotoFileID = fileID
	if err := storage.Save(s.path, s.settings); err != nil {
		s.settings = prev
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}
