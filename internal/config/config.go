package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres" validate:"oneof=postgres memory"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"auction_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"auction_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"auction_db"`

	// Redis carries the live-update fan-out and the sweep lease; both
	// degrade gracefully when disabled.
	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisHost    string `env:"REDIS_HOST"    envDefault:"localhost"`
	RedisPort    uint16 `env:"REDIS_PORT"    envDefault:"6379" validate:"min=1000,max=65535"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL"  envDefault:"60s"`
	BidMaxRetries int           `env:"BID_MAX_RETRIES" envDefault:"5" validate:"min=1,max=100"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
