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

// Source kinds.
const (
	SourceHTTP   = "http"
	SourceFile   = "file"
	SourceSheets = "sheets"
)

type Config struct {
	// HTTP Server
	Port string

	// Source
	SourceKind   string
	SourceURL    string
	SourceFile   string
	FetchTimeout time.Duration

	// Google Sheets source
	GoogleSpreadsheetID   string
	GoogleSheetRange      string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Parsing
	RejectUnknownTypes bool

	// Summary cache
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration

	// Load history
	HistoryDBPath string
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		SourceKind:   strings.ToLower(getEnv("SOURCE_KIND", SourceHTTP)),
		SourceURL:    getEnv("SOURCE_URL", ""),
		SourceFile:   getEnv("SOURCE_FILE", ""),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 15*time.Second),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:      getEnv("GOOGLE_SHEET_RANGE", "A:E"),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		RejectUnknownTypes: getEnvBool("REJECT_UNKNOWN_TYPES", false),

		SummaryCacheSize: getEnvInt("SUMMARY_CACHE_SIZE", 64),
		SummaryCacheTTL:  getEnvDuration("SUMMARY_CACHE_TTL", 10*time.Minute),

		HistoryDBPath: getEnv("HISTORY_DB_PATH", ""),
		AMQPURL:       getEnv("AMQP_URL", ""),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "finanzas"),
		AMQPQueue:     getEnv("AMQP_QUEUE", "load_history"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports every problem in one error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.SourceKind {
	case SourceHTTP:
		if c.SourceURL == "" {
			errors = append(errors, "SOURCE_URL is required when using the http source")
		} else if u, err := url.Parse(c.SourceURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid source URL '%s': %v", c.SourceURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid source URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	case SourceFile:
		if c.SourceFile == "" {
			errors = append(errors, "SOURCE_FILE is required when using the file source")
		} else if _, err := os.Stat(c.SourceFile); err != nil {
			errors = append(errors, fmt.Sprintf("source file '%s' is not readable: %v", c.SourceFile, err))
		}
	case SourceSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using the sheets source")
		}
		if c.GoogleSheetRange == "" {
			errors = append(errors, "Google sheet range is required when using the sheets source")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the sheets source")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid source kind '%s': must be one of [%s %s %s]", c.SourceKind, SourceHTTP, SourceFile, SourceSheets))
	}

	if c.FetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	} else if c.FetchTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at most 5 minutes", c.FetchTimeout))
	}

	if c.SummaryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
	}
	if c.SummaryCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be positive", c.SummaryCacheTTL))
	}

	if c.HistoryDBPath != "" {
		if dir := filepath.Dir(c.HistoryDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create history database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the settings the history worker needs. The source
// settings are irrelevant to it.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.HistoryDBPath == "" {
		errors = append(errors, "HISTORY_DB_PATH is required for the history worker")
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the history worker")
	} else if u, err := url.Parse(c.AMQPURL); err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s'", c.AMQPURL))
	}
	if c.AMQPExchange == "" || c.AMQPQueue == "" {
		errors = append(errors, "AMQP exchange and queue names cannot be empty")
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
