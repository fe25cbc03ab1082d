package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/desertthunder/trax/internal/engine"
	"github.com/desertthunder/trax/internal/shared"
)

const (
	adminID   = int64(1000)
	userID    = int64(2000)
	channelID = int64(-100500)
)

type fakeSender struct {
	sent    []tgbotapi.Chattable
	copied  []tgbotapi.CopyMessageConfig
	copyErr error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) CopyMessage(config tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error) {
	if f.copyErr != nil {
		return tgbotapi.MessageID{}, f.copyErr
	}
	f.copied = append(f.copied, config)
	return tgbotapi.MessageID{MessageID: 1}, nil
}

// lastText extracts the text of the most recent outbound message.
func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	switch m := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.EditMessageTextConfig:
		return m.Text
	case tgbotapi.PhotoConfig:
		return m.Caption
	default:
		t.Fatalf("unexpected message type %T", m)
		return ""
	}
}

func newTestBot(t *testing.T) (*Bot, *fakeSender, *engine.Engine) {
	t.Helper()
	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Telegram = shared.TelegramConfig{
		Token:     "test-token",
		ChannelID: channelID,
		AdminIDs:  []int64{adminID},
	}
	config.Storage = shared.StorageConfig{
		CatalogPath:  filepath.Join(dir, "catalog.json"),
		LedgerPath:   filepath.Join(dir, "ledger.json"),
		RequestsPath: filepath.Join(dir, "requests.json"),
		SettingsPath: filepath.Join(dir, "settings.json"),
		JournalPath:  ":memory:",
	}

	eng, err := engine.Open(config, nil)
	if err != nil {
		t.Fatalf("engine.Open failed: %v", err)
	}
	t.Cleanup(func() { eng.Close() })

	api := &fakeSender{}
	return New(api, eng, config.Telegram, nil), api, eng
}

func commandUpdate(from int64, text string) tgbotapi.Update {
	length := strings.IndexByte(text, ' ')
	if length < 0 {
		length = len(text)
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, UserName: "tester", FirstName: "Test"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}}
}

func plainUpdate(from int64, text string, photo []tgbotapi.PhotoSize) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: from, UserName: "tester"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
		Photo:     photo,
	}}
}

func channelAudioUpdate(messageID int, filename string, size int) tgbotapi.Update {
	return tgbotapi.Update{ChannelPost: &tgbotapi.Message{
		MessageID: messageID,
		Chat:      &tgbotapi.Chat{ID: channelID},
		Audio:     &tgbotapi.Audio{FileName: filename, FileSize: size},
	}}
}

func callbackUpdate(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: from, UserName: "tester"},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 10,
			Chat:      &tgbotapi.Chat{ID: from},
		},
	}}
}

func TestChannelPostIngest(t *testing.T) {
	t.Run("AudioAddsTrack", func(t *testing.T) {
		b, _, eng := newTestBot(t)

		b.Dispatch(context.Background(), channelAudioUpdate(501, "Arijit Singh - Tum Hi Ho.mp3", 4_194_304))

		track, err := eng.Track("501")
		if err != nil {
			t.Fatalf("track not ingested: %v", err)
		}
		if track.Title != "Tum Hi Ho" || track.Artist != "Arijit Singh" {
			t.Errorf("unexpected track: %+v", track)
		}
	})

	t.Run("OtherChannelsIgnored", func(t *testing.T) {
		b, _, eng := newTestBot(t)

		update := channelAudioUpdate(502, "song.mp3", 1024)
		update.ChannelPost.Chat.ID = channelID + 1
		b.Dispatch(context.Background(), update)

		if _, err := eng.Track("502"); err == nil {
			t.Error("post from unrelated channel should not be ingested")
		}
	})
}

func TestSearchCommand(t *testing.T) {
	t.Run("FoundOffersDownload", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.Dispatch(context.Background(), channelAudioUpdate(501, "Arijit Singh - Tum Hi Ho.mp3", 4_194_304))

		b.Dispatch(context.Background(), commandUpdate(userID, "/search tum hi ho"))

		msg, ok := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
		if !ok {
			t.Fatalf("expected MessageConfig, got %T", api.sent[len(api.sent)-1])
		}
		if !strings.Contains(msg.Text, "Tum Hi Ho") {
			t.Errorf("result text missing title: %q", msg.Text)
		}
		markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		if !ok {
			t.Fatalf("expected inline keyboard, got %T", msg.ReplyMarkup)
		}
		if got := *markup.InlineKeyboard[0][0].CallbackData; got != "download_501" {
			t.Errorf("unexpected callback data %q", got)
		}
	})

	t.Run("MissRecordsRequest", func(t *testing.T) {
		b, api, eng := newTestBot(t)

		b.Dispatch(context.Background(), commandUpdate(userID, "/search Kesariya"))

		if !strings.Contains(api.lastText(t), "not found") {
			t.Errorf("expected miss message, got %q", api.lastText(t))
		}
		tally := eng.MissingTally()
		if len(tally) != 1 || tally[0].Query != "Kesariya" {
			t.Errorf("miss not recorded: %+v", tally)
		}
	})

	t.Run("EmptyQueryShowsUsage", func(t *testing.T) {
		b, api, _ := newTestBot(t)

		b.Dispatch(context.Background(), commandUpdate(userID, "/search"))

		if !strings.Contains(api.lastText(t), "/search") {
			t.Errorf("expected usage hint, got %q", api.lastText(t))
		}
	})
}

func TestDownloadCallback(t *testing.T) {
	t.Run("CopiesAndDebits", func(t *testing.T) {
		b, api, eng := newTestBot(t)
		b.Dispatch(context.Background(), channelAudioUpdate(501, "Arijit Singh - Tum Hi Ho.mp3", 4_194_304))

		b.Dispatch(context.Background(), callbackUpdate(userID, "download_501"))

		if len(api.copied) != 1 {
			t.Fatalf("expected one copy, got %d", len(api.copied))
		}
		if api.copied[0].FromChatID != channelID || api.copied[0].MessageID != 501 {
			t.Errorf("copy targeted wrong source: %+v", api.copied[0])
		}

		user, err := eng.User("2000", "tester")
		if err != nil {
			t.Fatalf("User failed: %v", err)
		}
		if user.Balance != 9 || user.TotalDownloaded != 1 {
			t.Errorf("debit not applied: balance=%d downloaded=%d", user.Balance, user.TotalDownloaded)
		}
	})

	t.Run("CopyFailureRefunds", func(t *testing.T) {
		b, api, eng := newTestBot(t)
		b.Dispatch(context.Background(), channelAudioUpdate(501, "Arijit Singh - Tum Hi Ho.mp3", 4_194_304))
		api.copyErr = context.DeadlineExceeded

		b.Dispatch(context.Background(), callbackUpdate(userID, "download_501"))

		user, err := eng.User("2000", "tester")
		if err != nil {
			t.Fatalf("User failed: %v", err)
		}
		if user.Balance != 10 || user.TotalDownloaded != 0 {
			t.Errorf("failed delivery should refund: balance=%d downloaded=%d", user.Balance, user.TotalDownloaded)
		}
	})

	t.Run("UnknownTrack", func(t *testing.T) {
		b, api, _ := newTestBot(t)

		b.Dispatch(context.Background(), callbackUpdate(userID, "download_999"))

		if !strings.Contains(api.lastText(t), "no longer available") {
			t.Errorf("unexpected reply %q", api.lastText(t))
		}
	})
}

func TestWrongSongCallback(t *testing.T) {
	b, _, eng := newTestBot(t)

	b.Dispatch(context.Background(), callbackUpdate(userID, "wrong_song_Kesariya"))

	tally := eng.MissingTally()
	if len(tally) != 1 || tally[0].Query != "Kesariya" {
		t.Errorf("feedback not recorded: %+v", tally)
	}
}

func TestPaymentFlow(t *testing.T) {
	t.Run("BuypointListsPlans", func(t *testing.T) {
		b, api, _ := newTestBot(t)

		b.Dispatch(context.Background(), commandUpdate(userID, "/buypoint"))

		msg := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
		markup := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		if len(markup.InlineKeyboard) != len(b.engine.Economy().Plans) {
			t.Errorf("expected %d plan rows, got %d", len(b.engine.Economy().Plans), len(markup.InlineKeyboard))
		}
		if got := *markup.InlineKeyboard[0][0].CallbackData; got != "show_pay_2_10" {
			t.Errorf("unexpected callback data %q", got)
		}
	})

	t.Run("ShowPayRequiresSettings", func(t *testing.T) {
		b, api, _ := newTestBot(t)

		b.Dispatch(context.Background(), callbackUpdate(userID, "show_pay_10_35"))

		if !strings.Contains(api.lastText(t), "offline") {
			t.Errorf("expected offline warning, got %q", api.lastText(t))
		}
	})

	t.Run("ShowPaySendsQR", func(t *testing.T) {
		b, api, eng := newTestBot(t)
		if err := eng.Settings().SetUPI("music@upi"); err != nil {
			t.Fatal(err)
		}
		if err := eng.Settings().SetQRPhoto("qr-file-id"); err != nil {
			t.Fatal(err)
		}

		b.Dispatch(context.Background(), callbackUpdate(userID, "show_pay_10_35"))

		photo, ok := api.sent[len(api.sent)-1].(tgbotapi.PhotoConfig)
		if !ok {
			t.Fatalf("expected photo, got %T", api.sent[len(api.sent)-1])
		}
		if !strings.Contains(photo.Caption, "music@upi") || !strings.Contains(photo.Caption, "35") {
			t.Errorf("caption missing payment details: %q", photo.Caption)
		}
	})

	t.Run("SubmitNotifiesAdmins", func(t *testing.T) {
		b, api, _ := newTestBot(t)

		b.Dispatch(context.Background(), commandUpdate(userID, "/submit 123456789 35"))

		var adminMsg tgbotapi.MessageConfig
		for _, c := range api.sent {
			if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == adminID {
				adminMsg = m
			}
		}
		if !strings.Contains(adminMsg.Text, "/admingive 2000 10") {
			t.Errorf("admin notification missing approval hint: %q", adminMsg.Text)
		}
	})

	t.Run("SubmitRejectsOffPlanAmount", func(t *testing.T) {
		b, api, _ := newTestBot(t)

		b.Dispatch(context.Background(), commandUpdate(userID, "/submit 123456789 7"))

		if !strings.Contains(api.lastText(t), "Invalid amount") {
			t.Errorf("expected rejection, got %q", api.lastText(t))
		}
	})
}

func TestAdminGiveCommand(t *testing.T) {
	t.Run("CreditsUser", func(t *testing.T) {
		b, _, eng := newTestBot(t)

		b.Dispatch(context.Background(), commandUpdate(adminID, "/admingive 2000 10"))

		user, err := eng.User("2000", "")
		if err != nil {
			t.Fatalf("User failed: %v", err)
		}
		if user.Balance != 20 || user.TotalPurchased != 10 {
			t.Errorf("credit not applied: %+v", user)
		}
	})

	t.Run("RejectSkipsCredit", func(t *testing.T) {
		b, _, eng := newTestBot(t)

		b.Dispatch(context.Background(), commandUpdate(adminID, "/admingive 2000 reject"))

		user, err := eng.User("2000", "")
		if err != nil {
			t.Fatalf("User failed: %v", err)
		}
		if user.Balance != 10 {
			t.Errorf("reject must not credit: %+v", user)
		}
	})

	t.Run("NonAdminIgnored", func(t *testing.T) {
		b, api, _ := newTestBot(t)

		b.Dispatch(context.Background(), commandUpdate(userID, "/admingive 2000 10"))

		if len(api.sent) != 0 {
			t.Errorf("non-admin should get no response, got %d messages", len(api.sent))
		}
	})
}

func TestNotifyCommand(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.Dispatch(context.Background(), commandUpdate(userID, "/request Kesariya"))
	api.sent = nil

	b.Dispatch(context.Background(), commandUpdate(adminID, "/notify kesariya"))

	var toRequester bool
	for _, c := range api.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == userID {
			toRequester = strings.Contains(m.Text, "now available")
		}
	}
	if !toRequester {
		t.Error("requester was not notified")
	}
	if !strings.Contains(api.lastText(t), "1 user") {
		t.Errorf("expected delivery summary, got %q", api.lastText(t))
	}
}

func TestPendingFlows(t *testing.T) {
	t.Run("SetQRStoresLargestPhoto", func(t *testing.T) {
		b, _, eng := newTestBot(t)

		b.Dispatch(context.Background(), commandUpdate(adminID, "/setqr"))
		photos := []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90},
			{FileID: "large", Width: 800},
		}
		b.Dispatch(context.Background(), plainUpdate(adminID, "", photos))

		if got := eng.Settings().Get().QRPhotoFileID; got != "large" {
			t.Errorf("expected largest rendition, got %q", got)
		}
	})

	t.Run("CancelAbortsPending", func(t *testing.T) {
		b, _, eng := newTestBot(t)

		b.Dispatch(context.Background(), commandUpdate(adminID, "/setqr"))
		b.Dispatch(context.Background(), commandUpdate(adminID, "/cancel"))
		b.Dispatch(context.Background(), plainUpdate(adminID, "", []tgbotapi.PhotoSize{{FileID: "late"}}))

		if got := eng.Settings().Get().QRPhotoFileID; got != "" {
			t.Errorf("cancelled flow must not store photo, got %q", got)
		}
	})

	t.Run("BroadcastFansOut", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.Dispatch(context.Background(), commandUpdate(userID, "/start"))
		b.Dispatch(context.Background(), commandUpdate(userID+1, "/start"))
		api.sent = nil

		b.Dispatch(context.Background(), commandUpdate(adminID, "/broadcast"))
		b.Dispatch(context.Background(), plainUpdate(adminID, "New songs every Friday!", nil))

		delivered := map[int64]bool{}
		for _, c := range api.sent {
			if m, ok := c.(tgbotapi.MessageConfig); ok && m.Text == "New songs every Friday!" {
				delivered[m.ChatID] = true
			}
		}
		if !delivered[userID] || !delivered[userID+1] {
			t.Errorf("broadcast missed recipients: %v", delivered)
		}
		if !strings.Contains(api.lastText(t), "Sent: 2") {
			t.Errorf("expected completion summary, got %q", api.lastText(t))
		}
	})
}

func TestDailyCommand(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.Dispatch(context.Background(), commandUpdate(userID, "/daily"))
	if !strings.Contains(api.lastText(t), "claimed") {
		t.Errorf("expected grant confirmation, got %q", api.lastText(t))
	}

	b.Dispatch(context.Background(), commandUpdate(userID, "/daily"))
	if !strings.Contains(api.lastText(t), "try again in") {
		t.Errorf("expected cooldown message, got %q", api.lastText(t))
	}
}

func TestStatsCommand(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.Dispatch(context.Background(), channelAudioUpdate(501, "song.mp3", 1024))

	b.Dispatch(context.Background(), commandUpdate(adminID, "/stats"))

	text := api.lastText(t)
	if !strings.Contains(text, "Tracks: 1") {
		t.Errorf("stats missing track count: %q", text)
	}
}
