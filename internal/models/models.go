// package models defines the data model for the trax catalog & ledger engine
package models

import (
	"strings"
	"time"
)

// Track represents one indexed media item. ReferenceID is the stable external
// identifier assigned by the ingestion feed and is the catalog's unique key.
type Track struct {
	ReferenceID      string  `json:"reference_id"`
	Title            string  `json:"song_title"`
	Artist           string  `json:"artist"`
	Format           string  `json:"format"`
	SizeMB           float64 `json:"size_mb"`
	OriginalFilename string  `json:"original_filename"`
}

// Display returns the "Artist - Title" rendering used in logs and listings.
func (t Track) Display() string {
	return t.Artist + " - " + t.Title
}

// User represents a ledger account. Balance never goes negative; LastGrantAt
// is nil until the first free grant is claimed.
type User struct {
	ID              string     `json:"id"`
	Balance         int        `json:"points"`
	JoinedAt        time.Time  `json:"joined_at"`
	DisplayName     string     `json:"display_name,omitempty"`
	TotalDownloaded int        `json:"total_downloaded"`
	TotalPurchased  int        `json:"total_purchased"`
	TotalSpent      float64    `json:"total_spent"`
	LastGrantAt     *time.Time `json:"last_grant_at,omitempty"`
}

// MissingRequest records one unresolved search query awaiting catalog
// fulfillment. Entries are append-only until drained in bulk.
type MissingRequest struct {
	UserID      string    `json:"user_id"`
	Query       string    `json:"query"`
	RequestedAt time.Time `json:"requested_at"`
}

// Matches reports whether the request's query equals subject, ignoring case.
func (r MissingRequest) Matches(subject string) bool {
	return strings.EqualFold(r.Query, subject)
}

// Settings holds runtime-mutable payment presentation state, persisted as its
// own document and edited by admin commands.
type Settings struct {
	UPIID         string `json:"upi_id,omitempty"`
	QRPhotoFileID string `json:"qr_photo_file_id,omitempty"`
}

// LedgerDocument is the on-disk shape of the ledger store: the primary user
// map plus a lowercased display-name index. The index is a rebuildable cache,
// not a source of truth.
type LedgerDocument struct {
	Users     map[string]*User  `json:"users"`
	NameIndex map[string]string `json:"username_map"`
}

// RequestsDocument is the on-disk shape of the missing-request tracker.
type RequestsDocument struct {
	Requests []MissingRequest `json:"requests"`
}
