package models

import (
	"fmt"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database
)

// RotatorConfig holds everything the rotation bot reads from .env, config.yaml and the environment.
type RotatorConfig struct {
	Token             string   `mapstructure:"discord_token"`
	GuildID           string   `mapstructure:"guild_id"`
	CategoryID        string   `mapstructure:"category_id"`
	AdminLogChannelID string   `mapstructure:"admin_log_channel_id"` // optional, empty disables admin logging
	RotateEveryDays   int      `mapstructure:"rotate_every_days"`
	CronTime          string   `mapstructure:"cron_time"`
	ArchiveLimit      int      `mapstructure:"archive_limit"`
	OutputDir         string   `mapstructure:"output_dir"`
	Timezone          string   `mapstructure:"timezone"`
	Locale            string   `mapstructure:"locale"`
	DBPath            string   `mapstructure:"db_path"` // optional, empty disables the audit log
	EventRetention    int      `mapstructure:"event_retention_days"`
	MetricsAddr       string   `mapstructure:"metrics_addr"`
	GRPCHealthAddr    string   `mapstructure:"grpc_health_addr"`
	AdminRoleIDs      []string `mapstructure:"admin_role_ids"`
	DeveloperIDs      []string `mapstructure:"developer_ids"`
}

// RotationPeriod returns the configured rotation period as a duration.
func (c *RotatorConfig) RotationPeriod() time.Duration {
	return time.Duration(c.RotateEveryDays) * 24 * time.Hour
}

// Validate reports the first missing or out-of-range setting.
func (c *RotatorConfig) Validate() error {
	switch {
	case c.Token == "":
		return fmt.Errorf("DISCORD_TOKEN is required")
	case c.GuildID == "":
		return fmt.Errorf("GUILD_ID is required")
	case c.CategoryID == "":
		return fmt.Errorf("CATEGORY_ID is required")
	case c.RotateEveryDays <= 0:
		return fmt.Errorf("ROTATE_EVERY_DAYS must be a positive integer, got %d", c.RotateEveryDays)
	case c.CronTime == "":
		return fmt.Errorf("CRON_TIME is required")
	case c.ArchiveLimit < 0:
		return fmt.Errorf("ARCHIVE_LIMIT must not be negative, got %d", c.ArchiveLimit)
	case c.OutputDir == "":
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	case c.EventRetention < 0:
		return fmt.Errorf("EVENT_RETENTION_DAYS must not be negative, got %d", c.EventRetention)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}
