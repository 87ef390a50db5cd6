package config

import (
	"os"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	TempDir  string `env:"TEMP_DIR"`

	FFmpegPath  string `env:"FFMPEG_PATH"  envDefault:"ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH" envDefault:"ffprobe"`

	MetricsPort     int    `env:"METRICS_PORT"     envDefault:"0"`
	MetricsTextfile string `env:"METRICS_TEXTFILE"`
	JaegerEndpoint  string `env:"JAEGER_ENDPOINT"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`
	MinIOBucket    string `env:"MINIO_BUCKET"     envDefault:"galleries"`

	DatabaseURL string `env:"DATABASE_URL"`

	RabbitMQURL          string `env:"RABBITMQ_URL"`
	RabbitMQExchange     string `env:"RABBITMQ_EXCHANGE"      envDefault:"gallery"`
	RabbitMQRequestQueue string `env:"RABBITMQ_REQUEST_QUEUE" envDefault:"gallery.requests"`
	RabbitMQStatusQueue  string `env:"RABBITMQ_STATUS_QUEUE"  envDefault:"gallery.status"`
	RabbitMQDLQ          string `env:"RABBITMQ_DLQ"           envDefault:"gallery.requests.dlq"`
	RabbitMQPrefetch     int    `env:"RABBITMQ_PREFETCH"      envDefault:"1"`

	WorkerCount      int `env:"WORKER_COUNT"               envDefault:"1"`
	RetryBaseDelayMs int `env:"WORKER_RETRY_BASE_DELAY_MS" envDefault:"1000"`
	MaxAttempts      int `env:"WORKER_MAX_ATTEMPTS"        envDefault:"3"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom string `env:"SMTP_FROM" envDefault:"gallery@localhost"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return cfg, nil
}

func (c *Config) MetricsEnabled() bool { return c.MetricsPort > 0 }
func (c *Config) TracingEnabled() bool { return c.JaegerEndpoint != "" }
func (c *Config) StorageEnabled() bool { return c.MinIOEndpoint != "" }
func (c *Config) LedgerEnabled() bool  { return c.DatabaseURL != "" }
func (c *Config) EventsEnabled() bool  { return c.RabbitMQURL != "" }
func (c *Config) NotifyEnabled() bool  { return c.SMTPHost != "" }
