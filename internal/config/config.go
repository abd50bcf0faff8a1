// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

// ScheduleConfig tunes the availability engine: the display window the grid
// resolves, the search enumeration step and cap, and the location all dates
// resolve in.
type ScheduleConfig struct {
	DayStartHour    int    `yaml:"day_start_hour"`
	DayEndHour      int    `yaml:"day_end_hour"`
	SlotStepMinutes int    `yaml:"slot_step_minutes"`
	MaxSuggestions  int    `yaml:"max_suggestions"`
	Timezone        string `yaml:"timezone"`
}

// ResolveLocation loads the configured timezone, defaulting to UTC.
func (c ScheduleConfig) ResolveLocation() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RetentionConfig controls the background cleanup job.
type RetentionConfig struct {
	AvailabilityDays int    `yaml:"availability_days"`
	CleanupCron      string `yaml:"cleanup_cron"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`

	Schedule ScheduleConfig `yaml:"schedule"`

	Retention RetentionConfig `yaml:"retention"`
}

// Load loads both .env and yaml configuration.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Schedule.DayStartHour == 0 && c.Schedule.DayEndHour == 0 {
		c.Schedule.DayStartHour = 6
		c.Schedule.DayEndHour = 22
	}
	if c.Schedule.SlotStepMinutes == 0 {
		c.Schedule.SlotStepMinutes = 30
	}
	if c.Schedule.MaxSuggestions == 0 {
		c.Schedule.MaxSuggestions = 10
	}
	if c.Retention.AvailabilityDays == 0 {
		c.Retention.AvailabilityDays = 90
	}
	if c.Retention.CleanupCron == "" {
		c.Retention.CleanupCron = "30 3 * * *"
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Filename == "" {
		return fmt.Errorf("database filename is required for sqlite")
	}
	if c.Schedule.DayStartHour < 0 || c.Schedule.DayEndHour > 24 || c.Schedule.DayStartHour >= c.Schedule.DayEndHour {
		return fmt.Errorf("schedule display window must satisfy 0 <= start < end <= 24")
	}
	if c.Schedule.SlotStepMinutes <= 0 {
		return fmt.Errorf("slot step must be positive")
	}
	if c.Schedule.MaxSuggestions <= 0 {
		return fmt.Errorf("max suggestions must be positive")
	}
	if _, err := c.Schedule.ResolveLocation(); err != nil {
		return err
	}
	return nil
}
