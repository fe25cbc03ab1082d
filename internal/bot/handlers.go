package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/desertthunder/trax/internal/shared"
)

// handleChannelPost ingests audio announcements from the configured channel.
func (b *Bot) handleChannelPost(post *tgbotapi.Message) {
	if post.Chat == nil || post.Chat.ID != b.config.ChannelID {
		return
	}

	var filename string
	var size int64
	switch {
	case post.Audio != nil && post.Audio.FileName != "":
		filename = post.Audio.FileName
		size = int64(post.Audio.FileSize)
	case post.Document != nil && post.Document.FileName != "":
		filename = post.Document.FileName
		size = int64(post.Document.FileSize)
	default:
		return
	}

	ref := strconv.Itoa(post.MessageID)
	if _, _, err := b.engine.Ingest(ref, filename, size); err != nil {
		b.logger.Error("failed to ingest channel post", "ref", ref, "err", err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if state := b.pendingFor(msg.Chat.ID); state != pendingNone {
		if msg.IsCommand() && msg.Command() == "cancel" {
			b.clearPending(msg.Chat.ID)
			b.reply(msg.Chat.ID, "Operation cancelled.")
			return
		}
		switch state {
		case pendingQRPhoto:
			b.receiveQRPhoto(msg)
		case pendingBroadcast:
			b.receiveBroadcast(ctx, msg)
		}
		return
	}

	if !msg.IsCommand() {
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		b.startCommand(msg)
	case "balance":
		b.balanceCommand(msg)
	case "search":
		b.searchCommand(msg, args)
	case "buypoint":
		b.buypointCommand(msg)
	case "submit":
		b.submitCommand(msg, args)
	case "daily":
		b.dailyCommand(msg)
	case "request":
		b.requestCommand(msg, args)
	case "admingive":
		b.adminGiveCommand(msg, args)
	case "mail":
		b.mailCommand(msg, args)
	case "stats":
		b.statsCommand(msg)
	case "missing":
		b.missingCommand(msg)
	case "clearmissing":
		b.clearMissingCommand(msg)
	case "notify":
		b.notifyCommand(ctx, msg, args)
	case "setupi":
		b.setUPICommand(msg, args)
	case "setqr":
		b.setQRCommand(msg)
	case "broadcast":
		b.broadcastCommand(msg)
	}
}

func (b *Bot) pendingFor(chatID int64) pendingState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending[chatID]
}

func (b *Bot) setPending(chatID int64, state pendingState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[chatID] = state
}

func (b *Bot) clearPending(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, chatID)
}

const commandGuide = "*Here are the commands you can use:*\n" +
	"• `/search <song name>` - find a song\n" +
	"• `/balance` - see your points\n" +
	"• `/buypoint` - buy more points\n" +
	"• `/submit <ref> <amount>` - confirm a payment\n" +
	"• `/daily` - claim your daily free points\n" +
	"• `/request <song name>` - request a missing song\n" +
	"• `/help` - show this guide again"

func (b *Bot) startCommand(msg *tgbotapi.Message) {
	user, err := b.engine.User(userKey(msg.From.ID), msg.From.UserName)
	if err != nil {
		b.logger.Error("failed to load user", "user", msg.From.ID, "err", err)
		return
	}

	name := msg.From.FirstName
	if name == "" {
		name = "there"
	}

	if user.TotalDownloaded == 0 {
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"*Welcome, %s!*\n\nYou've received *%d free points*.\n_1 point = 1 song download._\n\n%s",
			escapeMarkdown(name), b.engine.Economy().StartingBalance, commandGuide))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"*Welcome back, %s!*\n\nYou have *%d points*.\n\n%s",
		escapeMarkdown(name), user.Balance, commandGuide))
}

func (b *Bot) balanceCommand(msg *tgbotapi.Message) {
	user, err := b.engine.User(userKey(msg.From.ID), msg.From.UserName)
	if err != nil {
		b.logger.Error("failed to load user", "user", msg.From.ID, "err", err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"*Your Account Balance*\n\nAvailable points: *%d*\nSongs downloaded: *%d*\n\nNeed more? Use /buypoint to recharge.",
		user.Balance, user.TotalDownloaded))
}

func (b *Bot) searchCommand(msg *tgbotapi.Message, query string) {
	if query == "" {
		b.reply(msg.Chat.ID, "Please provide a song name. Example: `/search Tum Hi Ho`")
		return
	}

	result, err := b.engine.Search(userKey(msg.From.ID), msg.From.UserName, query)
	switch {
	case errors.Is(err, shared.ErrInsufficientBalance):
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"*Out of points!*\n\nYou need at least %d point(s). Use /buypoint to get more.",
			b.engine.Economy().DownloadCost))
		return
	case errors.Is(err, shared.ErrNotFound):
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"*Song not found*\n\nWe couldn't find `%s`. Your request has been recorded.",
			escapeMarkdown(query)))
		return
	case err != nil:
		b.logger.Error("search failed", "query", query, "err", err)
		b.reply(msg.Chat.ID, "An error occurred. Please try again.")
		return
	}

	best := result.Matches[0]
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes, Download", "download_"+best.ReferenceID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ No, Wrong Song", "wrong_song_"+query),
		),
	)

	reply := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"*Song found!*\n\nSong: %s\nArtist: %s\nSize: %.2f MB\nFormat: %s\n\nYour points: *%d* | Cost: *%d*\n\nIs this the correct song?",
		escapeMarkdown(best.Title), escapeMarkdown(best.Artist), best.SizeMB,
		strings.ToUpper(best.Format), result.User.Balance, b.engine.Economy().DownloadCost))
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = keyboard
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error("failed to send search result", "err", err)
	}
}

func (b *Bot) buypointCommand(msg *tgbotapi.Message) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, plan := range b.engine.Economy().Plans {
		price := strconv.FormatFloat(plan.Price, 'f', -1, 64)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d points for ₹%s", plan.Points, price),
				fmt.Sprintf("show_pay_%d_%s", plan.Points, price),
			),
		))
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, "*Buy Music Points*\n\nChoose a package below to see payment details.")
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error("failed to send plans", "err", err)
	}
}

func (b *Bot) submitCommand(msg *tgbotapi.Message, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.reply(msg.Chat.ID, "*Invalid format!*\nUse: `/submit <reference_id> <amount>`\nExample: `/submit 123456789012 35`")
		return
	}

	refID := fields[0]
	amount, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		b.reply(msg.Chat.ID, "The amount must be a number.")
		return
	}

	plan, ok := b.engine.Economy().PlanForPrice(amount)
	if !ok {
		b.reply(msg.Chat.ID, fmt.Sprintf("Invalid amount. No plan found for ₹%v.", amount))
		return
	}

	notification := fmt.Sprintf(
		"*New payment submission*\n\nUser: `%d` (%s)\nRef ID: `%s`\nAmount: ₹%v\nPoints: %d\n\nApprove: `/admingive %d %d`\nReject: `/admingive %d reject`",
		msg.From.ID, escapeMarkdown(msg.From.UserName), escapeMarkdown(refID), amount, plan.Points,
		msg.From.ID, plan.Points, msg.From.ID)
	for _, adminID := range b.config.AdminIDs {
		b.reply(adminID, notification)
	}

	b.reply(msg.Chat.ID, "*Submission received!*\n\nYour payment is under review.")
}

func (b *Bot) dailyCommand(msg *tgbotapi.Message) {
	user, err := b.engine.ClaimDaily(userKey(msg.From.ID), msg.From.UserName, time.Now())
	if err != nil {
		var wait *shared.GrantWaitError
		if errors.As(err, &wait) {
			remaining := wait.Remaining.Round(time.Minute)
			hours := int(remaining.Hours())
			minutes := int(remaining.Minutes()) % 60
			b.reply(msg.Chat.ID, fmt.Sprintf(
				"*Already claimed!*\n\nPlease try again in *%d hours and %d minutes*.", hours, minutes))
			return
		}
		b.logger.Error("daily claim failed", "user", msg.From.ID, "err", err)
		b.reply(msg.Chat.ID, "An error occurred. Please try again.")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"*Daily gift claimed!*\n\nYou received *%d* free point(s).\nNew balance: *%d* points.",
		b.engine.Economy().GrantAmount, user.Balance))
}

func (b *Bot) requestCommand(msg *tgbotapi.Message, query string) {
	if query == "" {
		b.reply(msg.Chat.ID, "Please provide a song name.\n*Usage:* `/request <song name>`")
		return
	}
	if err := b.engine.RecordRequest(userKey(msg.From.ID), query); err != nil {
		b.logger.Error("failed to record request", "err", err)
		b.reply(msg.Chat.ID, "An error occurred. Please try again.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("*Request logged!*\n\nThank you for requesting '%s'.", escapeMarkdown(query)))
}

func (b *Bot) adminGiveCommand(msg *tgbotapi.Message, args string) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.reply(msg.Chat.ID, "Usage: `/admingive <user_id> <points_or_reject>`")
		return
	}

	targetID, err := chatID(fields[0])
	if err != nil {
		b.reply(msg.Chat.ID, "Invalid user ID.")
		return
	}

	if strings.EqualFold(fields[1], "reject") {
		b.reply(targetID, "*Payment not approved*\n\nYour recent payment could not be verified.")
		b.reply(msg.Chat.ID, fmt.Sprintf("Rejection message sent to user `%d`.", targetID))
		return
	}

	points, err := strconv.Atoi(fields[1])
	if err != nil {
		b.reply(msg.Chat.ID, "Invalid action. Use a points value (e.g., 20) or 'reject'.")
		return
	}

	if _, err := b.engine.ApprovePurchase(userKey(targetID), points); err != nil {
		b.logger.Error("purchase approval failed", "user", targetID, "err", err)
		b.reply(msg.Chat.ID, fmt.Sprintf("Could not credit user `%d`: %v", targetID, err))
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("Success! Gave %d points to user `%d`.", points, targetID))
	b.reply(targetID, fmt.Sprintf("*Payment approved!*\n\nYou have received *%d points*.", points))
}

func (b *Bot) mailCommand(msg *tgbotapi.Message, args string) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	fields := strings.SplitN(args, " ", 2)
	if len(fields) < 2 {
		b.reply(msg.Chat.ID, "*Usage:* `/mail <user_id> <message>`")
		return
	}

	targetID, err := chatID(fields[0])
	if err != nil {
		b.reply(msg.Chat.ID, "Invalid user ID.")
		return
	}

	b.reply(targetID, fmt.Sprintf("*A message from the admin:*\n\n%s", fields[1]))
	b.reply(msg.Chat.ID, fmt.Sprintf("Message sent to user `%d`.", targetID))
}

func (b *Bot) statsCommand(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	stats := b.engine.Summary()
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"*Stats*\nUsers: %d\nTracks: %d\nPending requests: %d\nRevenue: ₹%.2f",
		stats.Users, stats.Tracks, stats.PendingRequests, stats.Revenue))
}

func (b *Bot) missingCommand(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	tally := b.engine.MissingTally()
	if len(tally) == 0 {
		b.reply(msg.Chat.ID, "No pending song requests.")
		return
	}

	var sb strings.Builder
	sb.WriteString("*Pending song requests:*\n\n")
	for _, entry := range tally {
		fmt.Fprintf(&sb, "• `%s` (x%d)\n", escapeMarkdown(entry.Query), entry.Count)
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) clearMissingCommand(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	if err := b.engine.ClearMissing(); err != nil {
		b.logger.Error("failed to clear requests", "err", err)
		b.reply(msg.Chat.ID, "An error occurred. Please try again.")
		return
	}
	b.reply(msg.Chat.ID, "Success! Missing songs list cleared.")
}

func (b *Bot) notifyCommand(ctx context.Context, msg *tgbotapi.Message, subject string) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	if subject == "" {
		b.reply(msg.Chat.ID, "Please provide the song name you have added.\n*Usage:* `/notify <song name>`")
		return
	}

	users, err := b.engine.NotifyAvailable(subject)
	if err != nil {
		b.logger.Error("notify drain failed", "subject", subject, "err", err)
		b.reply(msg.Chat.ID, "An error occurred. Please try again.")
		return
	}
	if len(users) == 0 {
		b.reply(msg.Chat.ID, fmt.Sprintf("No pending requests found for '%s'.", escapeMarkdown(subject)))
		return
	}

	text := fmt.Sprintf(
		"*Good news!*\n\nThe song you requested, *%s*, is now available.\nUse `/search %s` to download it!",
		escapeMarkdown(subject), escapeMarkdown(subject))

	sent := 0
	for _, key := range users {
		target, err := chatID(key)
		if err != nil {
			b.logger.Error("bad recipient key", "key", key, "err", err)
			continue
		}
		if err := b.limiter.Wait(ctx); err != nil {
			break
		}
		reply := tgbotapi.NewMessage(target, text)
		reply.ParseMode = tgbotapi.ModeMarkdown
		if _, err := b.api.Send(reply); err != nil {
			b.logger.Error("failed to notify user", "user", key, "err", err)
			continue
		}
		sent++
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"*Notification sent!*\n\nMessage delivered to *%d user(s)* for '%s'.\nThe request has been cleared from the list.",
		sent, escapeMarkdown(subject)))
}

func (b *Bot) setUPICommand(msg *tgbotapi.Message, args string) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	fields := strings.Fields(args)
	if len(fields) != 1 {
		b.reply(msg.Chat.ID, "Usage: `/setupi <your_upi_id>`")
		return
	}
	if err := b.engine.Settings().SetUPI(fields[0]); err != nil {
		b.logger.Error("failed to set UPI", "err", err)
		b.reply(msg.Chat.ID, "An error occurred. Please try again.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("UPI ID updated to: `%s`", escapeMarkdown(fields[0])))
}

func (b *Bot) setQRCommand(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	b.setPending(msg.Chat.ID, pendingQRPhoto)
	b.reply(msg.Chat.ID, "Please send the new QR code photo.\nSend /cancel to abort.")
}

func (b *Bot) receiveQRPhoto(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.clearPending(msg.Chat.ID)
		return
	}
	if len(msg.Photo) == 0 {
		b.reply(msg.Chat.ID, "That is not a photo. Send the QR code photo or /cancel.")
		return
	}

	// The last size is the largest rendition.
	fileID := msg.Photo[len(msg.Photo)-1].FileID
	if err := b.engine.Settings().SetQRPhoto(fileID); err != nil {
		b.logger.Error("failed to store QR photo", "err", err)
		b.reply(msg.Chat.ID, "An error occurred. Please try again.")
		return
	}
	b.clearPending(msg.Chat.ID)

	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileID(fileID))
	photo.Caption = "Success! New QR code saved."
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("failed to echo QR photo", "err", err)
	}
}

func (b *Bot) broadcastCommand(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	b.setPending(msg.Chat.ID, pendingBroadcast)
	b.reply(msg.Chat.ID, "*Broadcast mode*\n\nSend the message (text, or photo with caption) to broadcast.\nSend /cancel to abort.")
}

func (b *Bot) receiveBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.clearPending(msg.Chat.ID)
		return
	}

	var photoID string
	if len(msg.Photo) > 0 {
		photoID = msg.Photo[len(msg.Photo)-1].FileID
	}
	if photoID == "" && msg.Text == "" {
		b.reply(msg.Chat.ID, "Unsupported message type. Send text or a photo, or /cancel.")
		return
	}
	b.clearPending(msg.Chat.ID)
	b.reply(msg.Chat.ID, "*Broadcast initiated...* Please wait.")

	success, failed := 0, 0
	for _, key := range b.engine.BroadcastTargets() {
		target, err := chatID(key)
		if err != nil {
			failed++
			continue
		}
		if err := b.limiter.Wait(ctx); err != nil {
			break
		}

		var send tgbotapi.Chattable
		if photoID != "" {
			photo := tgbotapi.NewPhoto(target, tgbotapi.FileID(photoID))
			photo.Caption = msg.Caption
			send = photo
		} else {
			text := tgbotapi.NewMessage(target, msg.Text)
			send = text
		}
		if _, err := b.api.Send(send); err != nil {
			failed++
			b.logger.Error("broadcast delivery failed", "user", key, "err", err)
			continue
		}
		success++
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("*Broadcast complete!*\n\nSent: %d | Failed: %d", success, failed))
}

func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	if query.From == nil {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Error("failed to ack callback", "err", err)
	}
	if query.Message == nil {
		return
	}
	chat := query.Message.Chat.ID
	data := query.Data

	switch {
	case strings.HasPrefix(data, "download_"):
		b.downloadCallback(query, chat, strings.TrimPrefix(data, "download_"))
	case strings.HasPrefix(data, "wrong_song_"):
		b.wrongSongCallback(query, chat, strings.TrimPrefix(data, "wrong_song_"))
	case strings.HasPrefix(data, "show_pay_"):
		b.showPayCallback(query, chat, strings.TrimPrefix(data, "show_pay_"))
	}
}

func (b *Bot) editCallbackMessage(query *tgbotapi.CallbackQuery, text string) {
	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("failed to edit message", "err", err)
	}
}

func (b *Bot) downloadCallback(query *tgbotapi.CallbackQuery, chat int64, ref string) {
	key := userKey(query.From.ID)
	if _, err := b.engine.User(key, query.From.UserName); err != nil {
		b.logger.Error("failed to load user", "user", key, "err", err)
		b.editCallbackMessage(query, "An error occurred. Please try again.")
		return
	}

	_, user, err := b.engine.Download(key, ref)
	switch {
	case errors.Is(err, shared.ErrInsufficientBalance):
		b.editCallbackMessage(query, "You don't have enough points! Use /buypoint to get more.")
		return
	case errors.Is(err, shared.ErrNotFound):
		b.editCallbackMessage(query, "That song is no longer available.")
		return
	case err != nil:
		b.logger.Error("download failed", "user", key, "ref", ref, "err", err)
		b.editCallbackMessage(query, "An error occurred. Please try again.")
		return
	}

	msgID, err := strconv.Atoi(ref)
	if err == nil {
		_, err = b.api.CopyMessage(tgbotapi.NewCopyMessage(chat, b.config.ChannelID, msgID))
	}
	if err != nil {
		b.logger.Error("failed to deliver song", "user", key, "ref", ref, "err", err)
		if _, refundErr := b.engine.RefundDownload(key); refundErr != nil {
			b.logger.Error("refund failed", "user", key, "err", refundErr)
		}
		b.editCallbackMessage(query, "An error occurred. Your point was not spent; please try again.")
		return
	}

	b.editCallbackMessage(query, fmt.Sprintf(
		"*Download complete!*\nYour new balance: *%d* points.", user.Balance))
}

func (b *Bot) wrongSongCallback(query *tgbotapi.CallbackQuery, _ int64, original string) {
	if err := b.engine.RecordRequest(userKey(query.From.ID), original); err != nil {
		b.logger.Error("failed to record wrong-song feedback", "err", err)
	}
	b.editCallbackMessage(query, "Thanks for the feedback! We've logged your request.")
}

func (b *Bot) showPayCallback(query *tgbotapi.CallbackQuery, chat int64, payload string) {
	parts := strings.SplitN(payload, "_", 2)
	if len(parts) != 2 {
		return
	}
	points, err := strconv.Atoi(parts[0])
	if err != nil {
		return
	}
	price := parts[1]

	settings := b.engine.Settings().Get()
	if settings.UPIID == "" || settings.QRPhotoFileID == "" {
		b.editCallbackMessage(query, "*Payment system offline!*\nThe admin needs to set a UPI ID and QR code first.")
		return
	}

	b.editCallbackMessage(query, "Sending payment details...")

	photo := tgbotapi.NewPhoto(chat, tgbotapi.FileID(settings.QRPhotoFileID))
	photo.ParseMode = tgbotapi.ModeMarkdown
	photo.Caption = fmt.Sprintf(
		"*Step 1: Pay*\nPay *₹%s* for *%d points*.\n\n`%s`\n\n*Step 2: Submit*\nAfter paying, send:\n`/submit <reference_id> %s`",
		price, points, escapeMarkdown(settings.UPIID), price)
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("failed to send payment details", "err", err)
		b.editCallbackMessage(query, fmt.Sprintf(
			"*Error!*\nCould not send the QR code. Pay directly to:\n`%s`", escapeMarkdown(settings.UPIID)))
	}
}
