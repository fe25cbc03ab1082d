// Package journal records every ledger balance movement in an append-only
// sqlite table for audit and history queries.
//
// The JSON ledger document remains the source of truth; journal writes are
// best-effort and their failures are logged by callers rather than unwinding
// a committed ledger mutation.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/trax/internal/shared"
)

// Entry kinds, one per ledger mutation source.
const (
	KindDownload = "download"
	KindPurchase = "purchase"
	KindGrant    = "grant"
	KindAdjust   = "adjust"
)

// Entry is one recorded balance movement. Points is the signed points delta;
// Amount is the money involved, zero except for purchases.
type Entry struct {
	ID        string
	UserID    string
	Kind      string
	Points    int
	Amount    float64
	CreatedAt time.Time
}

// Journal provides access to the journal_entries table.
type Journal struct {
	db *sql.DB
}

// New creates a Journal over an open database connection. The schema is
// managed by [shared.RunMigrations].
func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Open opens (or creates) the journal database at path and applies pending
// migrations.
func Open(path string) (*Journal, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return New(db), nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts an entry with a generated ID and timestamp, returning the
// stored entry.
func (j *Journal) Record(userID, kind string, points int, amount float64) (*Entry, error) {
	if userID == "" || kind == "" {
		return nil, fmt.Errorf("%w: user id and kind are required", shared.ErrInvalidInput)
	}

	e := Entry{
		ID:        shared.GenerateID(),
		UserID:    userID,
		Kind:      kind,
		Points:    points,
		Amount:    amount,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO journal_entries (id, user_id, kind, points, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := j.db.Exec(query, e.ID, e.UserID, e.Kind, e.Points, e.Amount, e.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert journal entry: %w", err)
	}

	return &e, nil
}

// ListByUser returns the most recent entries for a user, newest first.
func (j *Journal) ListByUser(userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, kind, points, amount, created_at
		FROM journal_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`
	rows, err := j.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Points, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal rows: %w", err)
	}

	return entries, nil
}

// KindTotal aggregates one entry kind.
type KindTotal struct {
	Kind   string
	Count  int
	Points int
	Amount float64
}

// TotalsByKind aggregates entry counts, points, and amounts per kind.
func (j *Journal) TotalsByKind() ([]KindTotal, error) {
	query := `
		SELECT kind, COUNT(*), COALESCE(SUM(points), 0), COALESCE(SUM(amount), 0)
		FROM journal_entries
		GROUP BY kind
		ORDER BY kind
	`
	rows, err := j.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal totals: %w", err)
	}
	defer rows.Close()

	var totals []KindTotal
	for rows.Next() {
		var t KindTotal
		if err := rows.Scan(&t.Kind, &t.Count, &t.Points, &t.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan journal total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal totals: %w", err)
	}

	return totals, nil
}
