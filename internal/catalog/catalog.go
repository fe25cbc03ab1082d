// Package catalog implements the track store: an ordered, reference-keyed
// collection searched by linear scan with the fuzzy predicate.
package catalog

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trax/internal/models"
	"github.com/desertthunder/trax/internal/search"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/storage"
)

// Store holds all track metadata, keyed by reference ID, preserving insertion
// order. Reads take a shared lock since searches vastly outnumber
// announcements; every successful mutation is written through to disk.
type Store struct {
	mu     sync.RWMutex
	path   string
	tracks []models.Track
	byRef  map[string]int
	logger *log.Logger
}

// Open loads the catalog document at path. An absent or malformed document
// yields an empty catalog.
func Open(path string, logger *log.Logger) (*Store, error) {
	s := &Store{path: path, byRef: make(map[string]int), logger: logger}

	if err := storage.Load(path, &s.tracks, logger); err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	for i, t := range s.tracks {
		s.byRef[t.ReferenceID] = i
	}

	return s, nil
}

// Upsert stores the track under ref, replacing the existing entry in place if
// ref is already known. Returns true when a new entry was appended.
func (s *Store) Upsert(ref string, track models.Track) (bool, error) {
	if ref == "" {
		return false, fmt.Errorf("%w: empty reference id", shared.ErrInvalidInput)
	}
	track.ReferenceID = ref

	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.byRef[ref]
	if exists {
		prev := s.tracks[i]
		s.tracks[i] = track
		if err := storage.Save(s.path, s.tracks); err != nil {
			s.tracks[i] = prev
			return false, fmt.Errorf("failed to persist catalog: %w", err)
		}
		return false, nil
	}

	s.tracks = append(s.tracks, track)
	s.byRef[ref] = len(s.tracks) - 1
	if err := storage.Save(s.path, s.tracks); err != nil {
		s.tracks = s.tracks[:len(s.tracks)-1]
		delete(s.byRef, ref)
		return false, fmt.Errorf("failed to persist catalog: %w", err)
	}
	return true, nil
}

// FindAll returns every track matching query, in storage order. The first
// returned track is what callers treat as the best match. An empty query
// yields no results.
func (s *Store) FindAll(query string) []models.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []models.Track
	for _, t := range s.tracks {
		if search.Match(query, t) {
			found = append(found, t)
		}
	}
	return found
}

// Get returns the track stored under ref.
func (s *Store) Get(ref string) (models.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byRef[ref]
	if !ok {
		return models.Track{}, fmt.Errorf("%w: track %s", shared.ErrNotFound, ref)
	}
	return s.tracks[i], nil
}

// All returns a copy of every stored track in insertion order.
func (s *Store) All() []models.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// Len returns the number of stored tracks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}
