// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API and staff dashboard listen on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health endpoint. Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL selects the store: postgres://... for Postgres, sqlite://path for the embedded store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// PollInterval is how often the staff dashboard re-reads the board (e.g. "10s").
	PollInterval string `mapstructure:"POLL_INTERVAL"`
	// TopPhrasesLimit is how many popular phrases the usage stats return.
	TopPhrasesLimit int `mapstructure:"TOP_PHRASES_LIMIT"`
	// RecentCallsLimit is the history length shown on the dashboard.
	RecentCallsLimit int `mapstructure:"RECENT_CALLS_LIMIT"`
	// StoreTimeout bounds every storage call (e.g. "5s").
	StoreTimeout string `mapstructure:"STORE_TIMEOUT"`

	// ElevenLabsAPIKey enables spoken confirmations when set.
	ElevenLabsAPIKey string `mapstructure:"ELEVENLABS_API_KEY"`
	// ElevenLabsVoiceID is the default voice for confirmations.
	ElevenLabsVoiceID string `mapstructure:"ELEVENLABS_VOICE_ID"`
	// ElevenLabsBaseURL is the API base URL (default https://api.elevenlabs.io).
	ElevenLabsBaseURL string `mapstructure:"ELEVENLABS_BASE_URL"`
	// ElevenLabsModelID is the synthesis model (default eleven_multilingual_v2).
	ElevenLabsModelID string `mapstructure:"ELEVENLABS_MODEL_ID"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint. Empty uses no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext gRPC to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Call events (optional). When Kafka brokers are set, call lifecycle events are published to Kafka.
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// CallsKafkaTopic is the Kafka topic for call lifecycle events (default bridge-calls).
	CallsKafkaTopic string `mapstructure:"CALLS_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "sqlite://data/bridge.db")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("POLL_INTERVAL", "10s")
	v.SetDefault("TOP_PHRASES_LIMIT", 10)
	v.SetDefault("RECENT_CALLS_LIMIT", 20)
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("ELEVENLABS_API_KEY", "")
	v.SetDefault("ELEVENLABS_VOICE_ID", "")
	v.SetDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io")
	v.SetDefault("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "bridge-callboard")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CALLS_KAFKA_TOPIC", "bridge-calls")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "bridge-calls-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set")
	}
	if cfg.TopPhrasesLimit <= 0 {
		return nil, errors.New("config: TOP_PHRASES_LIMIT must be positive")
	}
	if cfg.RecentCallsLimit <= 0 || cfg.RecentCallsLimit > 100 {
		return nil, errors.New("config: RECENT_CALLS_LIMIT must be between 1 and 100")
	}
	if d, err := time.ParseDuration(cfg.PollInterval); err != nil || d < time.Second {
		return nil, errors.New("config: POLL_INTERVAL must be a duration of at least 1s")
	}

	return &cfg, nil
}

// PollEvery parses PollInterval as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) PollEvery() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// StoreDeadline parses StoreTimeout as a time.Duration. Returns 5s if unset or invalid.
func (c *Config) StoreDeadline() time.Duration {
	d, err := time.ParseDuration(c.StoreTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the call event stream is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SpeechEnabled reports whether spoken confirmations can be synthesized.
func (c *Config) SpeechEnabled() bool {
	return c != nil && c.ElevenLabsAPIKey != ""
}
