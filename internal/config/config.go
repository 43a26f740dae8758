package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	// Tree store backend: memory, sqlite, or redis.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"data/familyhub.db"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Push notification provider; empty disables fan-out.
	PushEndpoint string `env:"PUSH_ENDPOINT"`

	// Image uploads: imagehost (imgbb-style HTTP API) or s3.
	UploadDriver string `env:"UPLOAD_DRIVER" envDefault:"imagehost"`
	ImageHostURL string `env:"IMAGE_HOST_URL" envDefault:"https://api.imgbb.com/1/upload"`
	ImageHostKey string `env:"IMAGE_HOST_KEY"`
	S3Bucket     string `env:"S3_BUCKET"`
	S3Region     string `env:"S3_REGION"`
	S3Endpoint   string `env:"S3_ENDPOINT"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
