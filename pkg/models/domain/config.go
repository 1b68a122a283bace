package domain

import (
	"fmt"
	"time"
)

// SheetsConfig points the exporter at a spreadsheet and maps record
// categories to destination tabs.
type SheetsConfig struct {
	SpreadsheetID   string            `mapstructure:"spreadsheet_id"`
	CredentialsPath string            `mapstructure:"credentials_path"`
	Tabs            map[string]string `mapstructure:"tabs"`
}

// BackupConfig controls the local JSON backup sink.
type BackupConfig struct {
	Dir      string `mapstructure:"dir"`
	KeepDays int    `mapstructure:"keep_days"`
}

// HistoryConfig controls the local DuckDB record archive.
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// Config is the full run configuration. A run never touches the upstream
// before Validate passes.
type Config struct {
	Terms      []string            `mapstructure:"terms"`
	Regions    map[string]string   `mapstructure:"regions"`
	ExtraTerms map[string][]string `mapstructure:"extra_terms"`
	Groups     map[string][]string `mapstructure:"groups"`

	Timeframe        string `mapstructure:"timeframe"`
	RateLimitSeconds int    `mapstructure:"rate_limit_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BaseBackoffSecs  int    `mapstructure:"base_backoff_seconds"`
	MaxBackoffSecs   int    `mapstructure:"max_backoff_seconds"`

	Sheets  SheetsConfig  `mapstructure:"sheets"`
	Backup  BackupConfig  `mapstructure:"backup"`
	History HistoryConfig `mapstructure:"history"`
	LogDir  string        `mapstructure:"log_dir"`
}

func (c *Config) RateInterval() time.Duration {
	return time.Duration(c.RateLimitSeconds) * time.Second
}

func (c *Config) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffSecs) * time.Second
}

func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffSecs) * time.Second
}

// Validate fails fast on configuration that would waste upstream quota or
// lose data mid-run.
func (c *Config) Validate() error {
	if len(c.Terms) == 0 {
		return fmt.Errorf("config: terms is empty, nothing to monitor")
	}
	if len(c.Regions) == 0 {
		return fmt.Errorf("config: regions is empty, nothing to monitor")
	}
	if c.Timeframe == "" {
		return fmt.Errorf("config: timeframe is required")
	}
	if c.RateLimitSeconds <= 0 {
		return fmt.Errorf("config: rate_limit_seconds must be positive, got %d", c.RateLimitSeconds)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("config: max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.BaseBackoffSecs <= 0 {
		return fmt.Errorf("config: base_backoff_seconds must be positive, got %d", c.BaseBackoffSecs)
	}
	if c.MaxBackoffSecs <= 0 {
		return fmt.Errorf("config: max_backoff_seconds must be positive, got %d", c.MaxBackoffSecs)
	}
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("config: sheets.spreadsheet_id is required")
	}
	if c.Sheets.CredentialsPath == "" {
		return fmt.Errorf("config: sheets.credentials_path is required")
	}
	for group, codes := range c.Groups {
		for _, code := range codes {
			if _, ok := c.Regions[code]; !ok {
				return fmt.Errorf("config: group %q references unknown region %q", group, code)
			}
		}
	}
	return nil
}

// RegionsForGroup narrows the region map to one country group. An empty
// group name returns the full map.
func (c *Config) RegionsForGroup(group string) (map[string]string, error) {
	if group == "" {
		return c.Regions, nil
	}
	codes, ok := c.Groups[group]
	if !ok {
		return nil, fmt.Errorf("config: unknown group %q", group)
	}
	regions := make(map[string]string, len(codes))
	for _, code := range codes {
		if name, ok := c.Regions[code]; ok {
			regions[code] = name
		}
	}
	return regions, nil
}

// TermsForRegion appends the per-region extra terms to the base term list.
func (c *Config) TermsForRegion(code string) []string {
	terms := make([]string, 0, len(c.Terms)+len(c.ExtraTerms[code]))
	terms = append(terms, c.Terms...)
	terms = append(terms, c.ExtraTerms[code]...)
	return terms
}
