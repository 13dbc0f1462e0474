package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Ticket code signing
	Ticket TicketConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// WebSocket configuration
	WebSocket WebSocketConfig

	// Logging configuration
	Logging LoggingConfig

	// Event deployed by this process
	Event EventConfig

	// Ledger backend and reserve policy
	Ledger LedgerConfig

	// Application metadata
	App AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	PublicURL       string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// RedisConfig holds ticket cache configuration
type RedisConfig struct {
	URL       string
	TicketTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

// TicketConfig holds the key ticket codes are signed with. It defaults to
// the JWT secret.
type TicketConfig struct {
	CodeKey string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	CallRPS           float64 // Stricter limit for program calls per account
	CallBurst         int
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// EventConfig describes the event program instantiated at start-up.
type EventConfig struct {
	Name           string
	Date           string
	Venue          string
	Description    string
	ImageURL       string
	Supply         uint64
	Price          uint64 // micro-units
	Organizer      string
	ProgramSeed    string
	InitialFunding uint64 // paid into the program account on first start
}

// LedgerConfig selects the ledger backend.
type LedgerConfig struct {
	Backend         string // memory, postgres
	BaseReserve     uint64
	PerAssetReserve uint64
	// GenesisBalance seeds the organizer account of a fresh program.
	GenesisBalance uint64
	// GenesisAccounts seeds further wallets of a fresh program, parsed from
	// LEDGER_GENESIS_ACCOUNTS=ACCOUNT:amount,...
	GenesisAccounts []GenesisAccount
}

// GenesisAccount is one wallet credited when a fresh program is created.
type GenesisAccount struct {
	Account string
	Amount  uint64
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			PublicURL:       getEnvOrDefault("PUBLIC_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnvOrDefault("DB_MIGRATIONS_PATH", "file://migrations"),
		},
		Redis: RedisConfig{
			URL:       os.Getenv("REDIS_URL"),
			TicketTTL: getDurationOrDefault("REDIS_TICKET_TTL", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: getDurationOrDefault("JWT_ACCESS_TOKEN_TTL", 1*time.Hour),
		},
		Ticket: TicketConfig{
			CodeKey: getEnvOrDefault("TICKET_CODE_KEY", os.Getenv("JWT_SECRET")),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
			CallRPS:           getFloatOrDefault("RATE_LIMIT_CALL_RPS", 2),
			CallBurst:         getIntOrDefault("RATE_LIMIT_CALL_BURST", 5),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  getStringSliceOrDefault("WS_ALLOWED_ORIGINS", []string{}),
			ReadBufferSize:  getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Event: EventConfig{
			Name:           os.Getenv("EVENT_NAME"),
			Date:           os.Getenv("EVENT_DATE"),
			Venue:          os.Getenv("EVENT_VENUE"),
			Description:    os.Getenv("EVENT_DESCRIPTION"),
			ImageURL:       os.Getenv("EVENT_IMAGE_URL"),
			Supply:         getUintOrDefault("EVENT_TICKET_SUPPLY", 0),
			Price:          getUintOrDefault("EVENT_TICKET_PRICE", 0),
			Organizer:      os.Getenv("EVENT_ORGANIZER"),
			ProgramSeed:    os.Getenv("EVENT_PROGRAM_SEED"),
			InitialFunding: getUintOrDefault("EVENT_INITIAL_FUNDING", 0),
		},
		Ledger: LedgerConfig{
			Backend:         getEnvOrDefault("LEDGER_BACKEND", LedgerMemory),
			BaseReserve:     getUintOrDefault("LEDGER_BASE_RESERVE", 100_000),
			PerAssetReserve: getUintOrDefault("LEDGER_PER_ASSET_RESERVE", 100_000),
			GenesisBalance:  getUintOrDefault("LEDGER_GENESIS_BALANCE", 0),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "event-program"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	genesis, err := ParseGenesisAccounts(os.Getenv("LEDGER_GENESIS_ACCOUNTS"))
	if err != nil {
		return nil, err
	}
	cfg.Ledger.GenesisAccounts = genesis

	if cfg.Event.ProgramSeed == "" {
		cfg.Event.ProgramSeed = cfg.Event.Name + "|" + cfg.Event.Date + "|" + cfg.Event.Venue
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	if c.Ticket.CodeKey == "" {
		errs = append(errs, "TICKET_CODE_KEY or JWT_SECRET is required")
	}

	switch c.Ledger.Backend {
	case LedgerMemory:
	case LedgerPostgres:
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres ledger")
		}
	default:
		errs = append(errs, fmt.Sprintf("LEDGER_BACKEND must be %q or %q", LedgerMemory, LedgerPostgres))
	}

	if c.Event.Name == "" {
		errs = append(errs, "EVENT_NAME is required")
	}
	if c.Event.Organizer == "" {
		errs = append(errs, "EVENT_ORGANIZER is required")
	}
	if c.Event.Supply == 0 {
		errs = append(errs, "EVENT_TICKET_SUPPLY must be at least 1")
	}
	if c.Event.Price == 0 {
		errs = append(errs, "EVENT_TICKET_PRICE must be at least 1")
	}

	// Security validations
	if c.App.Environment == "production" {
		if len(c.JWT.Secret) < 32 {
			errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
		}

		if len(c.WebSocket.AllowedOrigins) == 0 {
			errs = append(errs, "WS_ALLOWED_ORIGINS must be set in production")
		}

		if c.Ledger.Backend == LedgerMemory {
			errs = append(errs, "LEDGER_BACKEND=memory is not durable and cannot run in production")
		}
	}

	// Logical validations
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// ParseGenesisAccounts parses a comma separated list of ACCOUNT:amount pairs.
// An empty string yields no accounts.
func ParseGenesisAccounts(value string) ([]GenesisAccount, error) {
	var accounts []GenesisAccount
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		account, amount, ok := strings.Cut(part, ":")
		account = strings.TrimSpace(account)
		if !ok || account == "" {
			return nil, fmt.Errorf("LEDGER_GENESIS_ACCOUNTS: %q is not ACCOUNT:amount", part)
		}
		n, err := strconv.ParseUint(strings.TrimSpace(amount), 10, 64)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("LEDGER_GENESIS_ACCOUNTS: invalid amount for %s", account)
		}
		if seen[account] {
			return nil, fmt.Errorf("LEDGER_GENESIS_ACCOUNTS: %s listed twice", account)
		}
		seen[account] = true
		accounts = append(accounts, GenesisAccount{Account: account, Amount: n})
	}
	return accounts, nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getUintOrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, Ledger: %s, DB: %s, Redis: %s, JWT: [REDACTED], RateLimit: %v, Event: %q, Environment: %s}",
		c.Server.Port,
		c.Ledger.Backend,
		redactURL(c.Database.URL),
		redactURL(c.Redis.URL),
		c.RateLimit.Enabled,
		c.Event.Name,
		c.App.Environment,
	)
}

// redactURL redacts the credentials of a connection URL
func redactURL(url string) string {
	if url == "" {
		return ""
	}
	if idx := strings.Index(url, "@"); idx > 0 {
		return "[REDACTED]" + url[idx:]
	}
	return "[REDACTED]"
}
