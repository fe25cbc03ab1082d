package engine

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/trax/internal/shared"
)

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Storage = shared.StorageConfig{
		CatalogPath:  filepath.Join(dir, "catalog.json"),
		LedgerPath:   filepath.Join(dir, "ledger.json"),
		RequestsPath: filepath.Join(dir, "requests.json"),
		SettingsPath: filepath.Join(dir, "settings.json"),
		JournalPath:  ":memory:",
	}
	return config
}

func openEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestIngest(t *testing.T) {
	t.Run("ParsesAndStores", func(t *testing.T) {
		e := openEngine(t)

		track, created, err := e.Ingest("1001", "01 - Arijit Singh - Tum Hi Ho.mp3", 4_194_304)
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if !created {
			t.Error("expected new catalog entry")
		}
		if track.Title != "Tum Hi Ho" || track.Artist != "Arijit Singh" {
			t.Errorf("unexpected parse: %+v", track)
		}

		got, err := e.Track("1001")
		if err != nil {
			t.Fatalf("Track failed: %v", err)
		}
		if got.Format != "mp3" || got.SizeMB != 4.0 {
			t.Errorf("unexpected stored track: %+v", got)
		}
	})

	t.Run("ReannouncementOverwrites", func(t *testing.T) {
		e := openEngine(t)

		if _, _, err := e.Ingest("1001", "old name.mp3", 0); err != nil {
			t.Fatal(err)
		}
		_, created, err := e.Ingest("1001", "Imagine Dragons - Believer.flac", 0)
		if err != nil {
			t.Fatal(err)
		}
		if created {
			t.Error("expected overwrite, not a new entry")
		}
		if len(e.Tracks()) != 1 {
			t.Errorf("expected one entry, got %d", len(e.Tracks()))
		}
	})

	t.Run("RejectsBadInput", func(t *testing.T) {
		e := openEngine(t)

		if _, _, err := e.Ingest("", "x.mp3", 0); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for empty ref, got %v", err)
		}
		if _, _, err := e.Ingest("1", "", 0); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for empty filename, got %v", err)
		}
		if _, _, err := e.Ingest("1", "x.mp3", -5); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for negative size, got %v", err)
		}
	})
}

func TestSearch(t *testing.T) {
	t.Run("FirstMatchIsBest", func(t *testing.T) {
		e := openEngine(t)
		if _, _, err := e.Ingest("1", "Arijit Singh - Tum Hi Ho.mp3", 0); err != nil {
			t.Fatal(err)
		}
		if _, _, err := e.Ingest("2", "Arijit Singh - Channa Mereya.mp3", 0); err != nil {
			t.Fatal(err)
		}

		result, err := e.Search("42", "river", "arijit singh")
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(result.Matches) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(result.Matches))
		}
		if result.Matches[0].ReferenceID != "1" {
			t.Errorf("expected catalog order, got %+v", result.Matches[0])
		}
		if result.User.Balance != 10 {
			t.Errorf("expected default starting balance, got %d", result.User.Balance)
		}
	})

	t.Run("MissRecordsRequest", func(t *testing.T) {
		e := openEngine(t)

		_, err := e.Search("42", "", "unknown song title")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		tally := e.MissingTally()
		if len(tally) != 1 || tally[0].Query != "unknown song title" {
			t.Errorf("expected recorded missing request, got %+v", tally)
		}
	})

	t.Run("EmptyQueryRejected", func(t *testing.T) {
		e := openEngine(t)

		if _, err := e.Search("42", "", ""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("BrokeUserBlockedBeforeSearch", func(t *testing.T) {
		e := openEngine(t)
		if _, _, err := e.Ingest("1", "Halo - Beyonce.mp3", 0); err != nil {
			t.Fatal(err)
		}

		// Drain the starting balance.
		if _, err := e.User("42", ""); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 10; i++ {
			if _, _, err := e.Download("42", "1"); err != nil {
				t.Fatal(err)
			}
		}

		_, err := e.Search("42", "", "halo")
		if !errors.Is(err, shared.ErrInsufficientBalance) {
			t.Fatalf("expected ErrInsufficientBalance, got %v", err)
		}
		if len(e.MissingTally()) != 0 {
			t.Error("expected no missing request recorded for a blocked search")
		}
	})
}

func TestDownload(t *testing.T) {
	t.Run("DebitsAndCounts", func(t *testing.T) {
		e := openEngine(t)
		if _, _, err := e.Ingest("1", "Halo - Beyonce.mp3", 0); err != nil {
			t.Fatal(err)
		}
		if _, err := e.User("42", "river"); err != nil {
			t.Fatal(err)
		}

		track, user, err := e.Download("42", "1")
		if err != nil {
			t.Fatalf("Download failed: %v", err)
		}
		if track.ReferenceID != "1" {
			t.Errorf("unexpected track: %+v", track)
		}
		if user.Balance != 9 || user.TotalDownloaded != 1 {
			t.Errorf("unexpected user after download: %+v", user)
		}

		history, err := e.History("42", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(history) != 1 || history[0].Kind != "download" {
			t.Errorf("expected journaled download, got %+v", history)
		}
	})

	t.Run("UnknownTrack", func(t *testing.T) {
		e := openEngine(t)
		if _, err := e.User("42", ""); err != nil {
			t.Fatal(err)
		}

		if _, _, err := e.Download("42", "404"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RefundRestoresBalance", func(t *testing.T) {
		e := openEngine(t)
		if _, _, err := e.Ingest("1", "Halo - Beyonce.mp3", 0); err != nil {
			t.Fatal(err)
		}
		if _, err := e.User("42", ""); err != nil {
			t.Fatal(err)
		}
		if _, _, err := e.Download("42", "1"); err != nil {
			t.Fatal(err)
		}

		user, err := e.RefundDownload("42")
		if err != nil {
			t.Fatalf("RefundDownload failed: %v", err)
		}
		if user.Balance != 10 || user.TotalDownloaded != 0 {
			t.Errorf("expected pre-download state, got %+v", user)
		}
	})
}

func TestPurchaseAndGrant(t *testing.T) {
	t.Run("ApprovePurchaseUsesPlanPrice", func(t *testing.T) {
		e := openEngine(t)

		user, err := e.ApprovePurchase("42", 10)
		if err != nil {
			t.Fatalf("ApprovePurchase failed: %v", err)
		}
		if user.Balance != 20 || user.TotalPurchased != 10 {
			t.Errorf("unexpected user: %+v", user)
		}
		if user.TotalSpent != 35.0 {
			t.Errorf("expected plan price 35.0 recorded, got %v", user.TotalSpent)
		}
	})

	t.Run("OffPlanPointsCreditWithZeroRevenue", func(t *testing.T) {
		e := openEngine(t)

		user, err := e.ApprovePurchase("42", 7)
		if err != nil {
			t.Fatalf("ApprovePurchase failed: %v", err)
		}
		if user.Balance != 17 || user.TotalSpent != 0 {
			t.Errorf("unexpected user: %+v", user)
		}
	})

	t.Run("DailyGrantCooldown", func(t *testing.T) {
		e := openEngine(t)
		now := time.Now()

		user, err := e.ClaimDaily("42", "river", now)
		if err != nil {
			t.Fatalf("ClaimDaily failed: %v", err)
		}
		if user.Balance != 11 {
			t.Errorf("expected starting balance + grant, got %d", user.Balance)
		}

		_, err = e.ClaimDaily("42", "river", now.Add(time.Hour))
		remaining, ok := IsMissingGrant(err)
		if !ok {
			t.Fatalf("expected grant wait error, got %v", err)
		}
		if remaining != 23*time.Hour {
			t.Errorf("expected 23h remaining, got %v", remaining)
		}
	})
}

func TestNotifyAvailable(t *testing.T) {
	e := openEngine(t)
	if err := e.RecordRequest("1", "Kesariya"); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordRequest("2", "KESARIYA"); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordRequest("3", "Believer"); err != nil {
		t.Fatal(err)
	}

	users, err := e.NotifyAvailable("kesariya")
	if err != nil {
		t.Fatalf("NotifyAvailable failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 recipients, got %v", users)
	}

	tally := e.MissingTally()
	if len(tally) != 1 || tally[0].Query != "Believer" {
		t.Errorf("expected only Believer to remain, got %+v", tally)
	}
}

func TestSummary(t *testing.T) {
	e := openEngine(t)
	if _, _, err := e.Ingest("1", "Halo - Beyonce.mp3", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ApprovePurchase("42", 5); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordRequest("42", "Kesariya"); err != nil {
		t.Fatal(err)
	}

	stats := e.Summary()
	if stats.Users != 1 || stats.Tracks != 1 || stats.PendingRequests != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Revenue != 20.0 {
		t.Errorf("expected revenue 20.0 from the 5-point plan, got %v", stats.Revenue)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	e := openEngine(t)

	if err := e.Settings().SetUPI("trax@upi"); err != nil {
		t.Fatalf("SetUPI failed: %v", err)
	}
	if err := e.Settings().SetQRPhoto("file-123"); err != nil {
		t.Fatalf("SetQRPhoto failed: %v", err)
	}

	settings := e.Settings().Get()
	if settings.UPIID != "trax@upi" || settings.QRPhotoFileID != "file-123" {
		t.Errorf("unexpected settings: %+v", settings)
	}
}
