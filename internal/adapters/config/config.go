package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"finwiz/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	AI            AIConfig
	Tools         ToolsConfig
	Knowledge     KnowledgeConfig
	Crew          CrewConfig
	Report        ReportConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"finwiz"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"finwiz"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"finwiz"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"finwiz"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS"`
}

type AIConfig struct {
	OpenAIKey      string        `envconfig:"OPENAI_API_KEY"`
	Model          string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	EmbeddingModel string        `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	Temperature    float64       `envconfig:"OPENAI_TEMPERATURE" default:"0.2"`
	MaxTokens      int           `envconfig:"OPENAI_MAX_TOKENS" default:"4096"`
	RequestTimeout time.Duration `envconfig:"OPENAI_REQUEST_TIMEOUT" default:"120s"`
}

type ToolsConfig struct {
	SerperKey        string        `envconfig:"SERPER_API_KEY"`
	CoinMarketCapKey string        `envconfig:"COINMARKETCAP_API_KEY"`
	HTTPTimeout      time.Duration `envconfig:"TOOL_HTTP_TIMEOUT" default:"30s"`
	RateLimitRPS     float64       `envconfig:"TOOL_RATE_LIMIT_RPS" default:"2"`
	RetryAttempts    int           `envconfig:"TOOL_RETRY_ATTEMPTS" default:"2"`
	RetryBackoff     time.Duration `envconfig:"TOOL_RETRY_BACKOFF" default:"500ms"`
}

// KnowledgeConfig controls retention windows per entry category.
// Non-evergreen entries older than their window are soft-deleted by the sweep.
type KnowledgeConfig struct {
	Backend              string        `envconfig:"KNOWLEDGE_BACKEND" default:"memory"`
	MarketDataRetention  time.Duration `envconfig:"KNOWLEDGE_MARKET_DATA_RETENTION" default:"720h"`
	FundamentalRetention time.Duration `envconfig:"KNOWLEDGE_FUNDAMENTAL_RETENTION" default:"2160h"`
	RiskRetention        time.Duration `envconfig:"KNOWLEDGE_RISK_RETENTION" default:"1440h"`
	StrategyRetention    time.Duration `envconfig:"KNOWLEDGE_STRATEGY_RETENTION" default:"2880h"`
	ReportRetention      time.Duration `envconfig:"KNOWLEDGE_REPORT_RETENTION" default:"4320h"`
	PruneInterval        time.Duration `envconfig:"KNOWLEDGE_PRUNE_INTERVAL" default:"24h"`
}

type CrewConfig struct {
	MaxRetries     int           `envconfig:"CREW_MAX_RETRIES" default:"3"`
	RetryBackoff   time.Duration `envconfig:"CREW_RETRY_BACKOFF" default:"2s"`
	TaskTimeout    time.Duration `envconfig:"CREW_TASK_TIMEOUT" default:"5m"`
	MaxConcurrency int           `envconfig:"CREW_MAX_CONCURRENCY" default:"4"`
	CacheTTL       time.Duration `envconfig:"CREW_CACHE_TTL" default:"24h"`
}

type ReportConfig struct {
	OutputDir string `envconfig:"REPORT_OUTPUT_DIR" default:"output"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() (*Config, error) {
	// .env is optional; envconfig falls back to process environment
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env config")
	}

	return &cfg, nil
}

// RetentionFor returns the retention window for a knowledge category name.
// Unknown categories fall back to the shortest window.
func (c KnowledgeConfig) RetentionFor(category string) time.Duration {
	switch category {
	case "market_data":
		return c.MarketDataRetention
	case "fundamental":
		return c.FundamentalRetention
	case "risk":
		return c.RiskRetention
	case "strategy":
		return c.StrategyRetention
	case "report":
		return c.ReportRetention
	default:
		return c.MarketDataRetention
	}
}
