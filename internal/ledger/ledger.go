// Package ledger implements the per-user points store: balances, usage
// counters, and the cooldown-gated free grant.
//
// Mutations on the same user are serialized by a per-user lock held across
// the mutate-and-persist critical section, so two debits racing on one
// account can never underflow the balance or expose intermediate state.
// Mutations on different users proceed independently.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trax/internal/models"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/storage"
)

// Delta describes one atomic ledger adjustment. All fields apply together or
// not at all.
type Delta struct {
	Balance    int
	Downloaded int
	Purchased  int
	Spent      float64
}

// Store holds every user record plus a lowercased display-name index. The
// index is a cache rebuilt from the user map on load, never trusted from
// disk.
type Store struct {
	mu              sync.RWMutex
	path            string
	users           map[string]*models.User
	nameIndex       map[string]string
	startingBalance int
	logger          *log.Logger

	locksMu   sync.Mutex
	userLocks map[string]*sync.Mutex
	saveMu    sync.Mutex
}

// Open loads the ledger document at path. An absent or malformed document
// yields an empty ledger. New users created later start with
// startingBalance points.
func Open(path string, startingBalance int, logger *log.Logger) (*Store, error) {
	s := &Store{
		path:            path,
		users:           make(map[string]*models.User),
		nameIndex:       make(map[string]string),
		startingBalance: startingBalance,
		logger:          logger,
		userLocks:       make(map[string]*sync.Mutex),
	}

	var doc models.LedgerDocument
	if err := storage.Load(path, &doc, logger); err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if doc.Users != nil {
		s.users = doc.Users
	}
	for id, u := range s.users {
		u.ID = id
		if u.DisplayName != "" {
			s.nameIndex[strings.ToLower(u.DisplayName)] = id
		}
	}

	return s, nil
}

// userLock returns the mutex serializing mutations for the given user.
func (s *Store) userLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.userLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[id] = lock
	}
	return lock
}

// save persists the full ledger document. Callers hold the relevant user
// lock; the store lock is taken only long enough to snapshot. saveMu orders
// whole snapshot-and-write cycles so an older snapshot can never clobber a
// newer one on disk.
func (s *Store) save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	doc := models.LedgerDocument{Users: s.users, NameIndex: s.nameIndex}
	data := snapshot(doc)
	s.mu.RUnlock()

	if err := storage.Save(s.path, data); err != nil {
		return fmt.Errorf("failed to persist ledger: %w", err)
	}
	return nil
}

// snapshot deep-copies the document so marshaling happens outside the lock.
func snapshot(doc models.LedgerDocument) models.LedgerDocument {
	out := models.LedgerDocument{
		Users:     make(map[string]*models.User, len(doc.Users)),
		NameIndex: make(map[string]string, len(doc.NameIndex)),
	}
	for id, u := range doc.Users {
		copied := *u
		if u.LastGrantAt != nil {
			ts := *u.LastGrantAt
			copied.LastGrantAt = &ts
		}
		out.Users[id] = &copied
	}
	for name, id := range doc.NameIndex {
		out.NameIndex[name] = id
	}
	return out
}

// GetOrCreate returns the user record for id, creating it with the starting
// balance on first contact. A non-empty displayName refreshes the record and
// the name index. Idempotent and safe to call on every inbound event.
func (s *Store) GetOrCreate(id, displayName string) (*models.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty user id", shared.ErrInvalidInput)
	}

	lock := s.userLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	u, ok := s.users[id]
	var prev models.User
	if ok {
		prev = *u
	} else {
		u = &models.User{
			ID:          id,
			Balance:     s.startingBalance,
			JoinedAt:    time.Now(),
			DisplayName: displayName,
		}
		s.users[id] = u
	}
	changed := !ok
	if displayName != "" && u.DisplayName != displayName {
		if old := strings.ToLower(u.DisplayName); old != "" {
			delete(s.nameIndex, old)
		}
		u.DisplayName = displayName
		changed = true
	}
	if u.DisplayName != "" {
		s.nameIndex[strings.ToLower(u.DisplayName)] = id
	}
	out := *u
	s.mu.Unlock()

	if changed {
		if err := s.save(); err != nil {
			s.mu.Lock()
			if name := strings.ToLower(u.DisplayName); name != "" && s.nameIndex[name] == id {
				delete(s.nameIndex, name)
			}
			if ok {
				*u = prev
				if name := strings.ToLower(prev.DisplayName); name != "" {
					s.nameIndex[name] = id
				}
			} else {
				delete(s.users, id)
			}
			s.mu.Unlock()
			return nil, err
		}
	}
	return &out, nil
}

// Adjust applies every delta atomically. A delta that would take the balance
// negative fails with [shared.ErrInsufficientBalance] and leaves the record
// unchanged.
func (s *Store) Adjust(id string, d Delta) (*models.User, error) {
	lock := s.userLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	if u.Balance+d.Balance < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: balance %d, delta %d", shared.ErrInsufficientBalance, u.Balance, d.Balance)
	}

	prev := *u
	u.Balance += d.Balance
	u.TotalDownloaded += d.Downloaded
	u.TotalPurchased += d.Purchased
	u.TotalSpent += d.Spent
	out := *u
	s.mu.Unlock()

	if err := s.save(); err != nil {
		s.mu.Lock()
		*u = prev
		s.mu.Unlock()
		return nil, err
	}
	return &out, nil
}

// ClaimGrant credits amount to the user once per interval. While the
// cooldown holds it fails with a [shared.GrantWaitError] carrying the
// remaining wait.
func (s *Store) ClaimGrant(id string, now time.Time, interval time.Duration, amount int) (*models.User, error) {
	lock := s.userLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}

	if u.LastGrantAt != nil {
		if elapsed := now.Sub(*u.LastGrantAt); elapsed < interval {
			s.mu.Unlock()
			return nil, &shared.GrantWaitError{Remaining: interval - elapsed}
		}
	}

	prev := *u
	u.Balance += amount
	ts := now
	u.LastGrantAt = &ts
	out := *u
	s.mu.Unlock()

	if err := s.save(); err != nil {
		s.mu.Lock()
		*u = prev
		s.mu.Unlock()
		return nil, err
	}
	return &out, nil
}

// Get returns a copy of the user record for id.
func (s *Store) Get(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	out := *u
	return &out, nil
}

// Resolve maps a display name (case-insensitive) to a user ID via the index.
func (s *Store) Resolve(displayName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.nameIndex[strings.ToLower(displayName)]
	if !ok {
		return "", fmt.Errorf("%w: user %q", shared.ErrNotFound, displayName)
	}
	return id, nil
}

// IDs returns every known user ID, sorted for deterministic fan-out.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of known users.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// TotalRevenue sums total_spent across all users.
func (s *Store) TotalRevenue() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, u := range s.users {
		total += u.TotalSpent
	}
	return total
}
