package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the router.
type Config struct {
	App        AppConfig
	Store      StoreConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Chat       ChatConfig
	Hunt       HuntConfig
	Classifier ClassifierConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	ServiceToken          string
}

// StoreConfig selects and parameterizes the persistence driver.
type StoreConfig struct {
	Driver  string // "file" or "postgres"
	DataDir string
}

// PostgresConfig holds DB connection values for the postgres driver.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values for the classification cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// ChatConfig identifies the bot on the chat platform and where fallback
// broadcasts land.
type ChatConfig struct {
	BotName         string
	FallbackChannel string
	WebhookURL      string
}

// HuntConfig governs wave paging and escalation timing.
type HuntConfig struct {
	WaveTimeoutSeconds   int
	MaxWaves             int
	Rebroadcast          bool
	HighUrgencyThreshold int
	EscalateThreshold    int
	VIPWaveWidth         int
}

// ClassifierConfig points at the urgency classifier bridge.
type ClassifierConfig struct {
	URL             string
	TimeoutSeconds  int
	CacheTTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sme-router"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			ServiceToken:          os.Getenv("SERVICE_TOKEN"),
		},
		Store: StoreConfig{
			Driver:  getEnv("STORE_DRIVER", "file"),
			DataDir: getEnv("STORE_DATA_DIR", "data"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Chat: ChatConfig{
			BotName:         getEnv("CHAT_BOT_NAME", "Atlas Support"),
			FallbackChannel: getEnv("CHAT_FALLBACK_CHANNEL", "support-requests"),
			WebhookURL:      os.Getenv("CHAT_WEBHOOK_URL"),
		},
		Hunt: HuntConfig{
			WaveTimeoutSeconds:   getEnvAsInt("HUNT_WAVE_TIMEOUT_SECONDS", 300),
			MaxWaves:             getEnvAsInt("HUNT_MAX_WAVES", 6),
			Rebroadcast:          getEnvAsBool("HUNT_REBROADCAST", true),
			HighUrgencyThreshold: getEnvAsInt("HUNT_HIGH_URGENCY_THRESHOLD", 70),
			EscalateThreshold:    getEnvAsInt("HUNT_ESCALATE_THRESHOLD", 40),
			VIPWaveWidth:         getEnvAsInt("HUNT_VIP_WAVE_WIDTH", 3),
		},
		Classifier: ClassifierConfig{
			URL:             os.Getenv("CLASSIFIER_URL"),
			TimeoutSeconds:  getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 15),
			CacheTTLSeconds: getEnvAsInt("CLASSIFIER_CACHE_TTL_SECONDS", 300),
		},
	}

	if cfg.Store.Driver != "file" && cfg.Store.Driver != "postgres" {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: must be file or postgres", cfg.Store.Driver)
	}
	if cfg.Store.Driver == "postgres" && cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("STORE_DRIVER=postgres requires POSTGRES_DSN")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// WaveTimeout returns the per-wave paging deadline.
func (h HuntConfig) WaveTimeout() time.Duration {
	return time.Duration(h.WaveTimeoutSeconds) * time.Second
}

// Timeout returns the classifier call budget.
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long classifications are reused.
func (c ClassifierConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
