package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/de-tools/trend-radar/pkg/models/domain"
)

// LoadConfig reads a YAML run configuration, applies defaults for the
// optional throttle and storage settings and validates the result.
func LoadConfig(path string) (*domain.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("timeframe", "now 7-d")
	v.SetDefault("rate_limit_seconds", 60)
	v.SetDefault("max_retries", 2)
	v.SetDefault("base_backoff_seconds", 60)
	v.SetDefault("max_backoff_seconds", 180)
	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.keep_days", 7)
	v.SetDefault("history.db_path", "trends_history.duckdb")
	v.SetDefault("log_dir", "logs")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	normalizeRegionCodes(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalizeRegionCodes restores uppercase region codes. Viper lowercases all
// map keys on read, which would otherwise break code lookups and the
// worldwide sentinel.
func normalizeRegionCodes(cfg *domain.Config) {
	regions := make(map[string]string, len(cfg.Regions))
	for code, name := range cfg.Regions {
		regions[strings.ToUpper(code)] = name
	}
	cfg.Regions = regions

	extra := make(map[string][]string, len(cfg.ExtraTerms))
	for code, terms := range cfg.ExtraTerms {
		extra[strings.ToUpper(code)] = terms
	}
	cfg.ExtraTerms = extra

	for group, codes := range cfg.Groups {
		for i, code := range codes {
			codes[i] = strings.ToUpper(code)
		}
		cfg.Groups[group] = codes
	}
}
