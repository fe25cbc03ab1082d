package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/trax/internal/engine"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the template when missing, then opens
// every data store once so directories exist and the journal schema is current.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		r.logger.Info("using existing config", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
	}

	r.logger.Info("initializing data stores")
	eng, err := engine.Open(config, r.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize stores: %w", err)
	}
	if err := eng.Close(); err != nil {
		return fmt.Errorf("failed to close stores: %w", err)
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config: %s\n", configPath)
	r.writePlain("Catalog: %s\n", config.Storage.CatalogPath)
	r.writePlain("Ledger: %s\n", config.Storage.LedgerPath)
	r.writePlain("Journal: %s\n", config.Storage.JournalPath)
	r.writePlainln("Edit the [telegram] section, then run 'trax serve'.")
	return nil
}
