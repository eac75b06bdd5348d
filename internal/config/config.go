package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"financehub/internal/log"

	gomoney "github.com/Rhymond/go-money"
)

var validBackends = []string{"memory", "sqlite"}

type Config struct {
	// HTTP Server
	Port string

	// HTTP middleware
	RateLimitPerMinute int
	TrustedProxies     []string

	// Persistence
	DataBackend  string
	SQLiteDBPath string
	// SeedFile is a YAML fixture loaded into an empty memory backend;
	// "demo" selects the built-in one.
	SeedFile string

	// Ledger session
	UserID           string
	DeviceID         string
	DefaultAccountID string
	Currency         string
	MutationTimeout  time.Duration

	// Change feed
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Recurring processor
	RecurringInterval   time.Duration
	RecurringMaxCatchUp int

	// Dashboard cache
	DashboardCacheSize int
	DashboardCacheTTL  time.Duration

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	host, _ := os.Hostname()
	return &Config{
		Port:         getEnv("PORT", "8081"),
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/financehub.db"),
		SeedFile:     getEnv("SEED_FILE", ""),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		UserID:           getEnv("USER_ID", "local"),
		DeviceID:         getEnv("DEVICE_ID", host),
		DefaultAccountID: getEnv("DEFAULT_ACCOUNT_ID", ""),
		Currency:         strings.ToUpper(getEnv("CURRENCY", gomoney.BRL)),
		MutationTimeout:  getEnvDuration("MUTATION_TIMEOUT", 10*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financehub"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		RecurringInterval:   getEnvDuration("RECURRING_INTERVAL", time.Hour),
		RecurringMaxCatchUp: getEnvInt("RECURRING_MAX_CATCHUP", 12),

		DashboardCacheSize: getEnvInt("DASHBOARD_CACHE_SIZE", 32),
		DashboardCacheTTL:  getEnvDuration("DASHBOARD_CACHE_TTL", 5*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error listing every problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if strings.TrimSpace(c.UserID) == "" {
		errors = append(errors, "user id cannot be empty")
	}
	if gomoney.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("unknown currency '%s'", c.Currency))
	}
	if c.MutationTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid mutation timeout %v: must be at least 100ms", c.MutationTimeout))
	} else if c.MutationTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid mutation timeout %v: must be at most 5 minutes", c.MutationTimeout))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.DeviceID == "" {
			errors = append(errors, "device id cannot be empty when AMQP URL is provided")
		}
	}

	if c.RecurringInterval < 0 || (c.RecurringInterval > 0 && c.RecurringInterval < time.Second) {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be 0 (disabled) or at least 1 second", c.RecurringInterval))
	} else if c.RecurringInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at most 24 hours", c.RecurringInterval))
	}
	if c.RecurringMaxCatchUp < 1 || c.RecurringMaxCatchUp > 366 {
		errors = append(errors, fmt.Sprintf("invalid recurring max catch-up %d: must be between 1 and 366", c.RecurringMaxCatchUp))
	}

	if c.DashboardCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid dashboard cache size %d: must be at least 1", c.DashboardCacheSize))
	}
	if c.DashboardCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid dashboard cache TTL %v: must be positive", c.DashboardCacheTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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

// RecurringEnabled reports whether this process should post due scheduled
// transactions on a timer. Only one poster may run per database: set
// RECURRING_INTERVAL=0 on the API server when a recurring-worker runs.
func (c *Config) RecurringEnabled() bool {
	return c.RecurringInterval > 0
}
