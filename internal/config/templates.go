package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Journal Configuration

[journal]
# Account whose trades are analyzed; cache keys are scoped by it
account = "default"
# IANA timezone used to read broker dates ("Local" uses the host zone)
timezone = "Local"
# Balance the equity curve starts from
starting_balance = 0.0
# Default CSV format: generic, tradovate, tradingview
default_format = "generic"

[analytics]
# How long a computed metric series stays fresh
cache_ttl = "5m"
# Cron schedule for sweeping expired cache entries
cleanup_schedule = "@every 10m"

[storage]
# Mirror imported trades and notes into SQLite
mirror = true
# Database file (defaults to journal.db next to this file)
# db_path = "/path/to/journal.db"

[logging]
# debug, info, warn, error
level = "info"
# Write a rotated log file under logs/
file = true

[ui]
# Enable colored output
color_enabled = true
# Currency symbol used when printing P&L
currency = "$"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
