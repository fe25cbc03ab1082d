// Package requests implements the unmet-request tracker: unresolved search
// queries recorded per user until the catalog fulfills them.
//
// Entries are append-only; the only removals are the all-or-nothing drain of
// a fulfilled subject and the explicit clear. Tally groups queries
// case-sensitively while the drain matches case-insensitively; the asymmetry
// is deliberate and pinned by tests.
package requests

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trax/internal/models"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/storage"
)

// TallyEntry is one aggregated pending request.
type TallyEntry struct {
	Query string
	Count int
}

// Store holds every pending missing request. A single mutex suffices:
// record, tally, and drain are whole-store operations.
type Store struct {
	mu      sync.Mutex
	path    string
	entries []models.MissingRequest
	logger  *log.Logger
}

// Open loads the requests document at path. An absent or malformed document
// yields an empty tracker.
func Open(path string, logger *log.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}

	var doc models.RequestsDocument
	if err := storage.Load(path, &doc, logger); err != nil {
		return nil, fmt.Errorf("failed to open request tracker: %w", err)
	}
	s.entries = doc.Requests

	return s, nil
}

func (s *Store) save() error {
	if err := storage.Save(s.path, models.RequestsDocument{Requests: s.entries}); err != nil {
		return fmt.Errorf("failed to persist requests: %w", err)
	}
	return nil
}

// Record appends an entry unconditionally; duplicates are allowed and
// callers decide whether to de-duplicate.
func (s *Store) Record(userID, query string) error {
	if userID == "" || query == "" {
		return fmt.Errorf("%w: user id and query are required", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, models.MissingRequest{
		UserID:      userID,
		Query:       query,
		RequestedAt: time.Now(),
	})
	if err := s.save(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return err
	}
	return nil
}

// Tally groups current entries by exact query text and returns them sorted
// by count descending, ties in first-encounter order.
func (s *Store) Tally() []TallyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	var order []string
	for _, e := range s.entries {
		if _, seen := counts[e.Query]; !seen {
			order = append(order, e.Query)
		}
		counts[e.Query]++
	}

	tally := make([]TallyEntry, 0, len(order))
	for _, q := range order {
		tally = append(tally, TallyEntry{Query: q, Count: counts[q]})
	}
	sort.SliceStable(tally, func(i, j int) bool {
		return tally[i].Count > tally[j].Count
	})
	return tally
}

// DrainMatching removes every entry whose query equals subject
// (case-insensitive) and returns the distinct user IDs that had requested
// it, in first-encounter order. Nothing is removed when nothing matches.
func (s *Store) DrainMatching(subject string) ([]string, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var users []string
	seen := make(map[string]struct{})
	remaining := s.entries[:0:0]
	for _, e := range s.entries {
		if !e.Matches(subject) {
			remaining = append(remaining, e)
			continue
		}
		if _, dup := seen[e.UserID]; !dup {
			seen[e.UserID] = struct{}{}
			users = append(users, e.UserID)
		}
	}

	if len(users) == 0 {
		return nil, nil
	}

	prev := s.entries
	s.entries = remaining
	if err := s.save(); err != nil {
		s.entries = prev
		return nil, err
	}
	return users, nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.entries
	s.entries = nil
	if err := s.save(); err != nil {
		s.entries = prev
		return err
	}
	return nil
}

// Len returns the number of pending entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// All returns a copy of every pending entry in append order.
func (s *Store) All() []models.MissingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.MissingRequest, len(s.entries))
	copy(out, s.entries)
	return out
}
