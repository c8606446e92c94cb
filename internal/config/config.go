package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000" validate:"min=1,max=65535"`
	Environment string `envconfig:"ENV" default:"development"`
	StaticDir   string `envconfig:"STATIC_DIR" default:"static"`
	MaxUploadMB int    `envconfig:"MAX_UPLOAD_MB" default:"10" validate:"min=1"`
	LogFile     string `envconfig:"LOG_FILE"`

	// Landmark model
	ModelPath            string        `envconfig:"MODEL_PATH" default:"shape_predictor_68_face_landmarks.dat" validate:"required"`
	ModelURL             string        `envconfig:"MODEL_URL" default:"http://dlib.net/files/shape_predictor_68_face_landmarks.dat.bz2" validate:"required,url"`
	ModelDownloadTimeout time.Duration `envconfig:"MODEL_DOWNLOAD_TIMEOUT" default:"10m" validate:"gt=0"`
	ModelRetryCount      int           `envconfig:"MODEL_RETRY_COUNT" default:"3" validate:"min=0,max=10"`

	// Face locator
	FaceLocator        string  `envconfig:"FACE_LOCATOR" default:"pigo" validate:"oneof=pigo rekognition mock"`
	FaceCascadePath    string  `envconfig:"FACE_CASCADE_PATH"` // overrides the embedded cascade
	FaceMinSize        int     `envconfig:"FACE_MIN_SIZE" default:"40" validate:"min=1"`
	FaceMaxSize        int     `envconfig:"FACE_MAX_SIZE" default:"1000" validate:"gtfield=FaceMinSize"`
	FaceScoreThreshold float32 `envconfig:"FACE_SCORE_THRESHOLD" default:"5.0"`
	AWSRegion          string  `envconfig:"AWS_REGION" default:"us-east-1"`

	// Rate limiting (0 disables)
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"0" validate:"min=0"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"10" validate:"min=1"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MaxUploadBytes is the request body limit.
func (c *Config) MaxUploadBytes() int {
	return c.MaxUploadMB * 1024 * 1024
}
