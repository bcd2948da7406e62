package config

import (
	"fmt"
	"log"
	"strings"

	"channel-rotator/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults applied before the config file and environment are read.
var defaults = map[string]any{
	"archive_limit":        1000,
	"output_dir":           "./output",
	"timezone":             "Asia/Seoul",
	"locale":               "ko-KR",
	"db_path":              "./data/rotator.db",
	"event_retention_days": 90,
}

// Keys bound to environment variables. Every key is also accepted upper-cased in the environment.
var keys = []string{
	"discord_token",
	"guild_id",
	"category_id",
	"admin_log_channel_id",
	"rotate_every_days",
	"cron_time",
	"archive_limit",
	"output_dir",
	"timezone",
	"locale",
	"db_path",
	"event_retention_days",
	"metrics_addr",
	"grpc_health_addr",
	"admin_role_ids",
	"developer_ids",
}

// LoadConfig loads configuration from several sources:
// 1. .env file (exported into the process environment)
// 2. config.yaml in the working directory (optional)
// 3. environment variables, which override the file
func LoadConfig() (*models.RotatorConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env file not found, skipping.")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("config.yaml not found, using environment variables and defaults only.")
		} else {
			return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
		}
	}
	return Parse(v)
}

// Parse applies defaults and environment bindings to v and decodes the result.
func Parse(v *viper.Viper) (*models.RotatorConfig, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", k, err)
		}
	}

	var cfg models.RotatorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// Lists arrive as comma-separated strings from the environment.
	cfg.AdminRoleIDs = splitList(v.GetStringSlice("admin_role_ids"))
	cfg.DeveloperIDs = splitList(v.GetStringSlice("developer_ids"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
