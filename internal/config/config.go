// Package config loads molder settings from .env files and the environment.
//
// Values come from the process environment, optionally seeded by .env files
// (existing variables are never overwritten). Command-line flags override
// whatever is loaded here.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/roach88/molder/pkg/evaluator"
)

// ErrParsingConfig is returned when environment variables cannot be parsed.
var ErrParsingConfig = errors.New("failed to parse environment variables into config")

// ProvisionedConcurrency is the AWS_LAMBDA_INITIALIZATION_TYPE value that
// turns on warm start.
const ProvisionedConcurrency = "provisioned-concurrency"

// Config holds every setting read from the environment.
type Config struct {
	ModelsDir        string `env:"MOLDER_MODELS_DIR" envDefault:"models"`
	CachePath        string `env:"MOLDER_CACHE_PATH"`
	Warm             bool   `env:"MOLDER_WARM" envDefault:"false"`
	InitType         string `env:"AWS_LAMBDA_INITIALIZATION_TYPE"`
	LogLevel         string `env:"MOLDER_LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"MOLDER_LOG_FORMAT" envDefault:"text"`
	HTTPAddr         string `env:"MOLDER_HTTP_ADDR" envDefault:":8080"`
	MaxBodyBytes     int64  `env:"MOLDER_MAX_BODY_BYTES" envDefault:"4194304"`
	CoerceTypes      bool   `env:"MOLDER_COERCE_TYPES" envDefault:"true"`
	UseDefaults      bool   `env:"MOLDER_USE_DEFAULTS" envDefault:"true"`
	RemoveAdditional bool   `env:"MOLDER_REMOVE_ADDITIONAL" envDefault:"true"`
}

// WarmStart reports whether every model should be compiled at startup.
func (c Config) WarmStart() bool {
	return c.Warm || c.InitType == ProvisionedConcurrency
}

// EvaluatorOptions returns the evaluation behaviours selected by the
// environment.
func (c Config) EvaluatorOptions() evaluator.Options {
	return evaluator.Options{
		CoerceTypes:      c.CoerceTypes,
		UseDefaults:      c.UseDefaults,
		RemoveAdditional: c.RemoveAdditional,
	}
}

// Load reads the given .env files, then parses the environment. With no
// files, ./.env is read when it exists.
func Load(files ...string) (Config, error) {
	if err := loadDotEnv(files); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// Parse builds a Config from an explicit variable set instead of the
// process environment.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		// Ignore errors - the .env file might not exist and that's ok
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}
