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
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Backend selection
	DataBackend string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mail notifications
	MailEnabled bool
	MailFrom    string

	// Formula generator
	FormulaModel   string
	FormulaTimeout time.Duration

	// Dropdown option cache
	OptionsCacheSize int
	OptionsCacheTTL  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/commissions.db"),
		DataBackend:  getEnv("DATA_BACKEND", "memory"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "commissions"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "export_notices"),

		MailEnabled: getEnvBool("MAIL_ENABLED", false),
		MailFrom:    getEnv("MAIL_FROM", ""),

		FormulaModel:   getEnv("FORMULA_MODEL", "gemini-2.0-flash"),
		FormulaTimeout: getEnvDuration("FORMULA_TIMEOUT", 30*time.Second),

		OptionsCacheSize: getEnvInt("OPTIONS_CACHE_SIZE", 64),
		OptionsCacheTTL:  getEnvDuration("OPTIONS_CACHE_TTL", 5*time.Minute),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
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
	}

	if c.MailEnabled {
		if c.MailFrom == "" {
			errors = append(errors, "MAIL_FROM is required when mail notifications are enabled")
		} else if !strings.Contains(c.MailFrom, "@") {
			errors = append(errors, fmt.Sprintf("invalid sender address '%s'", c.MailFrom))
		}
	}

	if c.FormulaModel == "" {
		errors = append(errors, "formula model name cannot be empty")
	}
	if c.FormulaTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid formula timeout %v: must be at least 1 second", c.FormulaTimeout))
	}

	if c.OptionsCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid options cache size %d: must be at least 1", c.OptionsCacheSize))
	}
	if c.OptionsCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid options cache TTL %v: must be at least 1 second", c.OptionsCacheTTL))
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
