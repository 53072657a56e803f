package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string   `env:"HTTP_PORT" envDefault:"8080"`
	CORSOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	StorageDriver string   `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string   `env:"DATABASE_URL"`
	MongoURI      string   `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string   `env:"MONGO_DATABASE" envDefault:"unsent"`

	LLMAPIKey         string `env:"LLM_API_KEY"`
	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"openai/gpt-4o-mini"`
	LLMTimeoutSeconds int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"30"`
	LLMAppName        string `env:"LLM_APP_NAME" envDefault:"Unsent"`

	JWTSecret           string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
	EncryptionSecret    string `env:"ENCRYPTION_SECRET"`

	RedisAddr              string `env:"REDIS_ADDR"`
	RedisPassword          string `env:"REDIS_PASSWORD"`
	RedisDB                int    `env:"REDIS_DB" envDefault:"0"`
	ReplyRateLimit         int    `env:"REPLY_RATE_LIMIT" envDefault:"20"`
	ReplyRateWindowMinutes int    `env:"REPLY_RATE_WINDOW_MINUTES" envDefault:"60"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que env no puede expresar con tags.
func (c *Config) Validate() error {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case StorageMemory, StorageMongo:
	case StoragePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=%s", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.LLMTimeoutSeconds <= 0 {
		c.LLMTimeoutSeconds = 30
	}
	return nil
}
