package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"kioskhub-snapshots"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	RewriteModel   string `envconfig:"REWRITE_MODEL" default:"gpt-4o-mini"`

	// Gating thresholds. Zero values fall back to the retrieval defaults.
	DirectThreshold              float64 `envconfig:"DIRECT_THRESHOLD"`
	DirectThresholdNonEnglish    float64 `envconfig:"DIRECT_THRESHOLD_NON_ENGLISH"`
	ClarificationFloor           float64 `envconfig:"CLARIFICATION_FLOOR"`
	ClarificationFloorNonEnglish float64 `envconfig:"CLARIFICATION_FLOOR_NON_ENGLISH"`
	BiasAlpha                    float64 `envconfig:"BIAS_ALPHA"`

	RewriteEnabled bool          `envconfig:"REWRITE_ENABLED" default:"false"`
	RewriteTimeout time.Duration `envconfig:"REWRITE_TIMEOUT" default:"5s"`

	BiasCacheTTL time.Duration `envconfig:"BIAS_CACHE_TTL" default:"30m"`
	BiasLockDir  string        `envconfig:"BIAS_LOCK_DIR" default:"/tmp"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("KIOSKHUB", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
