package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Telegram TelegramConfig `toml:"telegram"`
	Storage  StorageConfig  `toml:"storage"`
	Economy  EconomyConfig  `toml:"economy"`
}

// TelegramConfig contains transport credentials and routing identifiers.
type TelegramConfig struct {
	Token     string  `toml:"token"`
	ChannelID int64   `toml:"channel_id"`
	AdminIDs  []int64 `toml:"admin_ids"`
}

// StorageConfig contains paths for the JSON documents and the journal database.
type StorageConfig struct {
	CatalogPath  string `toml:"catalog_path"`
	LedgerPath   string `toml:"ledger_path"`
	RequestsPath string `toml:"requests_path"`
	SettingsPath string `toml:"settings_path"`
	JournalPath  string `toml:"journal_path"`
}

// EconomyConfig contains the points economy settings.
type EconomyConfig struct {
	StartingBalance    int           `toml:"starting_balance"`
	DownloadCost       int           `toml:"download_cost"`
	GrantAmount        int           `toml:"grant_amount"`
	GrantIntervalHours int           `toml:"grant_interval_hours"`
	Plans              []PaymentPlan `toml:"plans"`
}

// PaymentPlan maps a points package to its price.
type PaymentPlan struct {
	Points int     `toml:"points"`
	Price  float64 `toml:"price"`
}

// GrantInterval returns the configured cooldown between free grants.
func (c EconomyConfig) GrantInterval() time.Duration {
	return time.Duration(c.GrantIntervalHours) * time.Hour
}

// PlanForPrice returns the payment plan matching the given price, if any.
func (c EconomyConfig) PlanForPrice(price float64) (PaymentPlan, bool) {
	for _, p := range c.Plans {
		if p.Price == price {
			return p, true
		}
	}
	return PaymentPlan{}, false
}

// PlanForPoints returns the payment plan granting the given points, if any.
func (c EconomyConfig) PlanForPoints(points int) (PaymentPlan, bool) {
	for _, p := range c.Plans {
		if p.Points == points {
			return p, true
		}
	}
	return PaymentPlan{}, false
}

// Validate checks invariants the economy depends on.
func (c *Config) Validate() error {
	if c.Economy.StartingBalance < 0 {
		return fmt.Errorf("%w: starting_balance must not be negative", ErrInvalidConfig)
	}
	if c.Economy.DownloadCost < 0 {
		return fmt.Errorf("%w: download_cost must not be negative", ErrInvalidConfig)
	}
	if c.Economy.GrantAmount < 0 {
		return fmt.Errorf("%w: grant_amount must not be negative", ErrInvalidConfig)
	}
	if c.Economy.GrantIntervalHours <= 0 {
		return fmt.Errorf("%w: grant_interval_hours must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
