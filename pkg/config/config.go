package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"finance-agent/pkg/logging"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverStatic    = "static"
	DriverPostgres  = "postgres"
	DriverMySQL     = "mysql"
	DriverSQLite    = "sqlite3"
	DriverFirestore = "firestore"
)

// Generator providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultGeminiURL is the generateContent endpoint used when GEMINI_API_URL is unset.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

// Config is built once at process start and passed by pointer.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`

	Generator GeneratorConfig `yaml:"generator"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Session   SessionConfig   `yaml:"session"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`

	// RefreshInterval is the maximum age of the transaction buffer.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// PersistConversations writes every turn to the configured store.
	PersistConversations bool `yaml:"persist_conversations"`
}

// GeneratorConfig selects and configures the generation endpoint.
type GeneratorConfig struct {
	Provider      string        `yaml:"provider"`
	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	GeminiAPIURL  string        `yaml:"gemini_api_url"`
	OpenAIAPIKey  string        `yaml:"openai_api_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	OpenAIModel   string        `yaml:"openai_model"`
	Timeout       time.Duration `yaml:"timeout"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver              string `yaml:"driver"`
	DSN                 string `yaml:"dsn"`
	FirebaseCredentials string `yaml:"firebase_credentials"`
	FirebaseProjectID   string `yaml:"firebase_project_id"`
}

// RedisConfig enables the snapshot cache and conversation log.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	KeyPrefix string `yaml:"key_prefix"`
}

// SessionConfig bounds in-memory conversation state.
type SessionConfig struct {
	HistoryWindow int           `yaml:"history_window"`
	TTL           time.Duration `yaml:"ttl"`
	MaxSessions   int           `yaml:"max_sessions"`
}

// CORSConfig controls the CORS middleware.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTPAddr: ":5010",
		Generator: GeneratorConfig{
			Provider:     ProviderGemini,
			GeminiAPIURL: DefaultGeminiURL,
			OpenAIModel:  "gpt-4o-mini",
			Timeout:      30 * time.Second,
		},
		Store: StoreConfig{Driver: DriverStatic},
		Redis: RedisConfig{KeyPrefix: "finance-agent:"},
		Session: SessionConfig{
			HistoryWindow: 10,
			TTL:           time.Hour,
			MaxSessions:   10000,
		},
		CORS:            CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}},
		Log:             LogConfig{Level: "info", Format: "json"},
		RefreshInterval: 300 * time.Second,
	}
}

// Load builds the configuration from, in increasing precedence: defaults, the
// YAML file named by CONFIG_FILE, a .env file (DOTENV_FILE, default ".env")
// and the process environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	dotenv := os.Getenv("DOTENV_FILE")
	if dotenv == "" {
		dotenv = ".env"
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotenv, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := parseDuration(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}

	str("HTTP_ADDR", &c.HTTPAddr)
	str("GRPC_ADDR", &c.GRPCAddr)

	str("GENERATOR_PROVIDER", &c.Generator.Provider)
	str("GEMINI_API_KEY", &c.Generator.GeminiAPIKey)
	str("GEMINI_API_URL", &c.Generator.GeminiAPIURL)
	str("OPENAI_API_KEY", &c.Generator.OpenAIAPIKey)
	str("OPENAI_BASE_URL", &c.Generator.OpenAIBaseURL)
	str("OPENAI_MODEL", &c.Generator.OpenAIModel)
	dur("GENERATION_TIMEOUT", &c.Generator.Timeout)

	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_DSN", &c.Store.DSN)
	str("FIREBASE_CREDENTIALS", &c.Store.FirebaseCredentials)
	str("FIREBASE_PROJECT_ID", &c.Store.FirebaseProjectID)

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_KEY_PREFIX", &c.Redis.KeyPrefix)

	dur("REFRESH_INTERVAL", &c.RefreshInterval)
	num("HISTORY_WINDOW", &c.Session.HistoryWindow)
	dur("SESSION_TTL", &c.Session.TTL)
	num("SESSION_MAX", &c.Session.MaxSessions)
	flag("PERSIST_CONVERSATIONS", &c.PersistConversations)

	flag("CORS_ENABLED", &c.CORS.Enabled)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.CORS.AllowedOrigins = splitList(v)
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	flag("LOG_DEV", &c.Log.Development)

	return errs
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs error

	switch c.Generator.Provider {
	case ProviderGemini:
		if c.Generator.GeminiAPIKey == "" {
			errs = multierr.Append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
		if c.Generator.GeminiAPIURL == "" {
			errs = multierr.Append(errs, errors.New("GEMINI_API_URL must not be empty"))
		}
	case ProviderOpenAI:
		if c.Generator.OpenAIAPIKey == "" {
			errs = multierr.Append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown generator provider %q", c.Generator.Provider))
	}

	switch c.Store.Driver {
	case DriverStatic, DriverFirestore:
	case DriverPostgres, DriverMySQL, DriverSQLite:
		if c.Store.DSN == "" {
			errs = multierr.Append(errs, fmt.Errorf("STORE_DSN is required for the %s driver", c.Store.Driver))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if c.Generator.Timeout <= 0 {
		errs = multierr.Append(errs, errors.New("generation timeout must be positive"))
	}
	if c.RefreshInterval <= 0 {
		errs = multierr.Append(errs, errors.New("refresh interval must be positive"))
	}
	if c.Session.HistoryWindow <= 0 {
		errs = multierr.Append(errs, errors.New("history window must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = multierr.Append(errs, errors.New("session ttl must be positive"))
	}
	if c.Session.MaxSessions < 0 {
		errs = multierr.Append(errs, errors.New("session max must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:       c.Log.Level,
		Format:      c.Log.Format,
		Development: c.Log.Development,
	}
}

// parseDuration accepts Go durations ("30s") and bare seconds ("300").
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
