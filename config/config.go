package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"pulp/database"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string        `env:"DATABASE_URL"`
	DatabaseName string        `env:"DATABASE_NAME"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// HTTP surface
	HTTPAddr             string `env:"HTTP_ADDR" envDefault:":8080"`
	InternalAPIToken     string `env:"INTERNAL_API_TOKEN"`
	TransactionPageLimit int    `env:"TRANSACTION_PAGE_LIMIT" envDefault:"100"`

	// Economy rules
	MinWager           int64         `env:"MIN_WAGER" envDefault:"20"`
	WindowDuration     time.Duration `env:"WINDOW_DURATION" envDefault:"30m"`
	WindowExpiry       time.Duration `env:"WINDOW_EXPIRY" envDefault:"360h"`
	ParticipationAward int64         `env:"PARTICIPATION_AWARD" envDefault:"10"`
	UpsetBonus         int64         `env:"UPSET_BONUS" envDefault:"5"`
	StartingBalance    int64         `env:"STARTING_BALANCE" envDefault:"0"`

	// Window-to-round matching: "explicit" or "timing"
	WindowMatchMode      string        `env:"WINDOW_MATCH_MODE" envDefault:"explicit"`
	WindowMatchTolerance time.Duration `env:"WINDOW_MATCH_TOLERANCE" envDefault:"24h"`

	// Sweeps
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// Redis cache for the polled active-window read (optional)
	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	WindowCacheTTL time.Duration `env:"WINDOW_CACHE_TTL" envDefault:"5s"`

	// NATS configuration (optional)
	NATSServers         string `env:"NATS_SERVERS"`
	RoundResultsSubject string `env:"ROUND_RESULTS_SUBJECT" envDefault:"rounds.completed"`

	// OpenTelemetry
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"pulp"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"60000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from the environment, reading a .env file first when present
func load() (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.MinWager <= 0 {
		return fmt.Errorf("MIN_WAGER must be positive")
	}
	if c.WindowDuration <= 0 || c.WindowExpiry <= 0 {
		return fmt.Errorf("WINDOW_DURATION and WINDOW_EXPIRY must be positive")
	}
	if c.TransactionPageLimit <= 0 {
		return fmt.Errorf("TRANSACTION_PAGE_LIMIT must be positive")
	}
	switch c.WindowMatchMode {
	case "explicit", "timing":
	default:
		return fmt.Errorf("unknown WINDOW_MATCH_MODE: %s", c.WindowMatchMode)
	}
	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:          "test",
		StoreTimeout:         5 * time.Second,
		HTTPAddr:             ":0",
		TransactionPageLimit: 100,
		MinWager:             20,
		WindowDuration:       30 * time.Minute,
		WindowExpiry:         15 * 24 * time.Hour,
		ParticipationAward:   10,
		UpsetBonus:           5,
		WindowMatchMode:      "explicit",
		WindowMatchTolerance: 24 * time.Hour,
		SweepInterval:        time.Minute,
		WindowCacheTTL:       5 * time.Second,
		RoundResultsSubject:  "rounds.completed",
		OTelServiceName:      "pulp",
		OTelExporterType:     "none",
		LogLevel:             "debug",
	}
}
