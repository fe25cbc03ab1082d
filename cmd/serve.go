package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/trax/internal/bot"
	"github.com/desertthunder/trax/internal/engine"
)

// Serve connects to Telegram and pumps updates into the engine until
// interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	eng, err := engine.Open(config, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Close()

	b, api, err := bot.Connect(eng, config.Telegram, r.logger)
	if err != nil {
		return err
	}
	r.logger.Info("connected to telegram", "bot", api.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updateConfig.AllowedUpdates = []string{"message", "channel_post", "callback_query"}
	updates := api.GetUpdatesChan(updateConfig)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b.Run(ctx, updates)
	api.StopReceivingUpdates()
	return nil
}
