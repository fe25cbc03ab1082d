// Package engine orchestrates the catalog, ledger, and request stores behind
// the data-level operations the transports consume.
//
// The engine receives plain values and returns typed results and errors; all
// message phrasing and delivery belongs to the callers. No engine operation
// blocks on network I/O.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trax/internal/catalog"
	"github.com/desertthunder/trax/internal/journal"
	"github.com/desertthunder/trax/internal/ledger"
	"github.com/desertthunder/trax/internal/models"
	"github.com/desertthunder/trax/internal/parser"
	"github.com/desertthunder/trax/internal/requests"
	"github.com/desertthunder/trax/internal/shared"
)

// Engine owns the three stores and the economy configuration. Construct with
// [New]; the zero value is not usable.
type Engine struct {
	catalog  *catalog.Store
	ledger   *ledger.Store
	requests *requests.Store
	settings *SettingsStore
	journal  *journal.Journal
	economy  shared.EconomyConfig
	logger   *log.Logger
}

// Opts carries the collaborators for [New]. Journal is optional; a nil
// journal disables history recording.
type Opts struct {
	Catalog  *catalog.Store
	Ledger   *ledger.Store
	Requests *requests.Store
	Settings *SettingsStore
	Journal  *journal.Journal
	Economy  shared.EconomyConfig
	Logger   *log.Logger
}

// New creates an Engine from the provided collaborators.
func New(opts Opts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Engine{
		catalog:  opts.Catalog,
		ledger:   opts.Ledger,
		requests: opts.Requests,
		settings: opts.Settings,
		journal:  opts.Journal,
		economy:  opts.Economy,
		logger:   opts.Logger,
	}
}

// Open constructs an Engine by opening every store at the paths in config.
// The journal is skipped when its path is empty.
func Open(config *shared.Config, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	cat, err := catalog.Open(config.Storage.CatalogPath, logger)
	if err != nil {
		return nil, err
	}
	led, err := ledger.Open(config.Storage.LedgerPath, config.Economy.StartingBalance, logger)
	if err != nil {
		return nil, err
	}
	req, err := requests.Open(config.Storage.RequestsPath, logger)
	if err != nil {
		return nil, err
	}
	settings, err := OpenSettings(config.Storage.SettingsPath, logger)
	if err != nil {
		return nil, err
	}

	var jnl *journal.Journal
	if config.Storage.JournalPath != "" {
		jnl, err = journal.Open(config.Storage.JournalPath)
		if err != nil {
			return nil, err
		}
	}

	return New(Opts{
		Catalog:  cat,
		Ledger:   led,
		Requests: req,
		Settings: settings,
		Journal:  jnl,
		Economy:  config.Economy,
		Logger:   logger,
	}), nil
}

// Close releases the journal database, if any.
func (e *Engine) Close() error {
	if e.journal != nil {
		return e.journal.Close()
	}
	return nil
}

// journalEntry records a balance movement, logging rather than failing: the
// ledger document is the source of truth.
func (e *Engine) journalEntry(userID, kind string, points int, amount float64) {
	if e.journal == nil {
		return
	}
	if _, err := e.journal.Record(userID, kind, points, amount); err != nil {
		e.logger.Error("failed to journal ledger movement", "user", userID, "kind", kind, "err", err)
	}
}

// Ingest parses an announced filename and upserts the result under ref.
// Returns the stored track and whether a new catalog entry was created.
func (e *Engine) Ingest(ref, filename string, sizeBytes int64) (models.Track, bool, error) {
	if ref == "" || filename == "" {
		return models.Track{}, false, fmt.Errorf("%w: reference id and filename are required", shared.ErrInvalidInput)
	}
	if sizeBytes < 0 {
		return models.Track{}, false, fmt.Errorf("%w: negative size", shared.ErrInvalidInput)
	}

	track := parser.Parse(filename, sizeBytes)
	created, err := e.catalog.Upsert(ref, track)
	if err != nil {
		return models.Track{}, false, err
	}
	track.ReferenceID = ref

	if created {
		e.logger.Info("saved track", "track", track.Display())
	} else {
		e.logger.Info("updated track", "track", track.Display())
	}
	return track, created, nil
}

// SearchResult is a successful search: the matches in catalog order (first
// is best) plus the searching user's current record.
type SearchResult struct {
	Matches []models.Track
	User    *models.User
}

// Search resolves a free-text query for a user. The user is created on first
// contact. Fails with [shared.ErrInsufficientBalance] before searching when
// the balance cannot cover a download, and with [shared.ErrNotFound] on a
// miss, in which case the query has been recorded as a missing request.
func (e *Engine) Search(userID, displayName, query string) (*SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", shared.ErrInvalidInput)
	}

	user, err := e.ledger.GetOrCreate(userID, displayName)
	if err != nil {
		return nil, err
	}
	if user.Balance < e.economy.DownloadCost {
		return nil, fmt.Errorf("%w: balance %d, download costs %d",
			shared.ErrInsufficientBalance, user.Balance, e.economy.DownloadCost)
	}

	matches := e.catalog.FindAll(query)
	if len(matches) == 0 {
		if err := e.requests.Record(userID, query); err != nil {
			return nil, err
		}
		e.logger.Info("recorded missing request", "user", userID, "query", query)
		return nil, fmt.Errorf("%w: no track matches %q", shared.ErrNotFound, query)
	}

	return &SearchResult{Matches: matches, User: user}, nil
}

// Download debits the download cost and increments the download counter for
// the chosen track. The debit is atomic; a user who cannot afford it gets
// [shared.ErrInsufficientBalance] with nothing changed.
func (e *Engine) Download(userID, ref string) (models.Track, *models.User, error) {
	track, err := e.catalog.Get(ref)
	if err != nil {
		return models.Track{}, nil, err
	}

	user, err := e.ledger.Adjust(userID, ledger.Delta{Balance: -e.economy.DownloadCost, Downloaded: 1})
	if err != nil {
		return models.Track{}, nil, err
	}
	e.journalEntry(userID, journal.KindDownload, -e.economy.DownloadCost, 0)

	e.logger.Info("download fulfilled", "user", userID, "track", track.Display(), "balance", user.Balance)
	return track, user, nil
}

// RefundDownload reverses a download debit after the caller failed to
// deliver the file. Engine state returns to the pre-download values.
func (e *Engine) RefundDownload(userID string) (*models.User, error) {
	user, err := e.ledger.Adjust(userID, ledger.Delta{Balance: e.economy.DownloadCost, Downloaded: -1})
	if err != nil {
		return nil, err
	}
	e.journalEntry(userID, journal.KindAdjust, e.economy.DownloadCost, 0)
	return user, nil
}

// RecordRequest logs an explicit song request for a user.
func (e *Engine) RecordRequest(userID, query string) error {
	return e.requests.Record(userID, query)
}

// ApprovePurchase credits points to a user after an external payment
// approval. The spent amount is taken from the matching plan; an off-plan
// points value credits with zero revenue, as the approval is trusted.
func (e *Engine) ApprovePurchase(userID string, points int) (*models.User, error) {
	if points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", shared.ErrInvalidInput)
	}

	if _, err := e.ledger.GetOrCreate(userID, ""); err != nil {
		return nil, err
	}

	var amount float64
	if plan, ok := e.economy.PlanForPoints(points); ok {
		amount = plan.Price
	}

	user, err := e.ledger.Adjust(userID, ledger.Delta{Balance: points, Purchased: points, Spent: amount})
	if err != nil {
		return nil, err
	}
	e.journalEntry(userID, journal.KindPurchase, points, amount)

	e.logger.Info("purchase approved", "user", userID, "points", points, "amount", amount)
	return user, nil
}

// ClaimDaily claims the periodic free grant for a user, creating the user on
// first contact. While the cooldown holds the error unwraps to
// [shared.ErrGrantNotAvailable] and carries the remaining wait.
func (e *Engine) ClaimDaily(userID, displayName string, now time.Time) (*models.User, error) {
	if _, err := e.ledger.GetOrCreate(userID, displayName); err != nil {
		return nil, err
	}

	user, err := e.ledger.ClaimGrant(userID, now, e.economy.GrantInterval(), e.economy.GrantAmount)
	if err != nil {
		return nil, err
	}
	e.journalEntry(userID, journal.KindGrant, e.economy.GrantAmount, 0)

	e.logger.Info("daily grant claimed", "user", userID, "balance", user.Balance)
	return user, nil
}

// NotifyAvailable drains every pending request matching subject and returns
// the distinct user IDs to notify. Delivery is the caller's job; a partial
// delivery failure does not affect the drain, which has already committed.
func (e *Engine) NotifyAvailable(subject string) ([]string, error) {
	users, err := e.requests.DrainMatching(subject)
	if err != nil {
		return nil, err
	}
	if len(users) > 0 {
		e.logger.Info("drained missing requests", "subject", subject, "recipients", len(users))
	}
	return users, nil
}

// MissingTally returns pending requests grouped by exact query text.
func (e *Engine) MissingTally() []requests.TallyEntry {
	return e.requests.Tally()
}

// ClearMissing removes every pending request.
func (e *Engine) ClearMissing() error {
	return e.requests.Clear()
}

// User returns the ledger record for a user, creating it on first contact.
func (e *Engine) User(userID, displayName string) (*models.User, error) {
	return e.ledger.GetOrCreate(userID, displayName)
}

// Lookup returns the ledger record for a known user without creating one.
func (e *Engine) Lookup(userID string) (*models.User, error) {
	return e.ledger.Get(userID)
}

// ResolveUser maps a display name to a user ID.
func (e *Engine) ResolveUser(displayName string) (string, error) {
	return e.ledger.Resolve(displayName)
}

// BroadcastTargets returns every known user ID for fan-out.
func (e *Engine) BroadcastTargets() []string {
	return e.ledger.IDs()
}

// History returns the most recent journal entries for a user, newest first.
// Returns nil when no journal is configured.
func (e *Engine) History(userID string, limit int) ([]journal.Entry, error) {
	if e.journal == nil {
		return nil, nil
	}
	return e.journal.ListByUser(userID, limit)
}

// Stats summarizes the system for the admin surface.
type Stats struct {
	Users           int
	Tracks          int
	PendingRequests int
	Revenue         float64
}

// Summary returns current system statistics.
func (e *Engine) Summary() Stats {
	return Stats{
		Users:           e.ledger.Count(),
		Tracks:          e.catalog.Len(),
		PendingRequests: e.requests.Len(),
		Revenue:         e.ledger.TotalRevenue(),
	}
}

// Tracks returns every catalog entry in storage order.
func (e *Engine) Tracks() []models.Track {
	return e.catalog.All()
}

// Track returns the catalog entry stored under ref.
func (e *Engine) Track(ref string) (models.Track, error) {
	return e.catalog.Get(ref)
}

// Economy exposes the configured points economy.
func (e *Engine) Economy() shared.EconomyConfig {
	return e.economy
}

// Settings returns the runtime settings store.
func (e *Engine) Settings() *SettingsStore {
	return e.settings
}

// IsMissingGrant reports whether err is the grant cooldown and extracts the
// remaining wait when it is.
func IsMissingGrant(err error) (time.Duration, bool) {
	var wait *shared.GrantWaitError
	if errors.As(err, &wait) {
		return wait.Remaining, true
	}
	return 0, false
}
