package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP job bus (optional; empty URL disables async jobs)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Market data
	MarketSuffix    string
	MarketTimeout   time.Duration
	RefreshInterval time.Duration

	// Advisor (optional; empty key falls back to rule-based responses)
	AdvisorAPIKey  string
	AdvisorBaseURL string
	AdvisorModel   string

	// Report export to Google Sheets (optional)
	ReportSpreadsheetID string
	ReportSheetName     string

	// Worker
	SnapshotHour int // hour of day (UTC) for the daily snapshot pass
	PriceBatch   int
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finman.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finman"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "finman_jobs"),

		MarketSuffix:    getEnv("MARKET_SUFFIX", ".NS"),
		MarketTimeout:   getEnvDuration("MARKET_TIMEOUT", 10*time.Second),
		RefreshInterval: getEnvDuration("PRICE_REFRESH_INTERVAL", 15*time.Minute),

		AdvisorAPIKey:  getEnv("ADVISOR_API_KEY", ""),
		AdvisorBaseURL: getEnv("ADVISOR_BASE_URL", "https://api.openai.com/v1"),
		AdvisorModel:   getEnv("ADVISOR_MODEL", "gpt-4o-mini"),

		ReportSpreadsheetID: getEnv("REPORT_SPREADSHEET_ID", ""),
		ReportSheetName:     getEnv("REPORT_SHEET_NAME", "NetWorth"),

		SnapshotHour: getEnvInt("SNAPSHOT_HOUR", 1),
		PriceBatch:   getEnvInt("PRICE_BATCH_SIZE", 10),
	}
}

// Validate checks the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AdvisorAPIKey != "" {
		if parsed, err := url.Parse(c.AdvisorBaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid advisor base URL '%s'", c.AdvisorBaseURL))
		}
		if c.AdvisorModel == "" {
			errs = append(errs, "advisor model cannot be empty when an API key is provided")
		}
	}

	if c.MarketTimeout < time.Second || c.MarketTimeout > time.Minute {
		errs = append(errs, fmt.Sprintf("invalid market timeout %v: must be between 1s and 1m", c.MarketTimeout))
	}
	if c.RefreshInterval < time.Minute || c.RefreshInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid price refresh interval %v: must be between 1 minute and 24 hours", c.RefreshInterval))
	}

	if c.SnapshotHour < 0 || c.SnapshotHour > 23 {
		errs = append(errs, fmt.Sprintf("invalid snapshot hour %d: must be between 0 and 23", c.SnapshotHour))
	}
	if c.PriceBatch < 1 || c.PriceBatch > 100 {
		errs = append(errs, fmt.Sprintf("invalid price batch size %d: must be between 1 and 100", c.PriceBatch))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
