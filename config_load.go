package hrmAuth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envOverrides are the HRM_* variables applied last by [LoadConfig].
type envOverrides struct {
	APIBaseURL        string         `envconfig:"API_BASE_URL"`
	APITimeout        time.Duration  `envconfig:"API_TIMEOUT"`
	LoginRoute        string         `envconfig:"LOGIN_ROUTE"`
	UnauthorizedRoute string         `envconfig:"UNAUTHORIZED_ROUTE"`
	StorageBackend    StorageBackend `envconfig:"STORAGE_BACKEND"`
	StorageFile       string         `envconfig:"STORAGE_FILE"`
	RedisAddr         string         `envconfig:"REDIS_ADDR"`
	MetricsEnabled    *bool          `envconfig:"METRICS_ENABLED"`
	AuditEnabled      *bool          `envconfig:"AUDIT_ENABLED"`
}

// LoadConfig builds a Config from DefaultConfig, then the YAML file at path (skipped when
// path is empty), then HRM_* environment variables. A .env file in the working directory
// is loaded first when present; variables already set in the process win over it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("HRM", &env); err != nil {
		return fmt.Errorf("read HRM_* environment: %w", err)
	}

	if env.APIBaseURL != "" {
		cfg.API.BaseURL = env.APIBaseURL
	}
	if env.APITimeout > 0 {
		cfg.API.Timeout = env.APITimeout
	}
	if env.LoginRoute != "" {
		cfg.Routes.Login = env.LoginRoute
	}
	if env.UnauthorizedRoute != "" {
		cfg.Routes.Unauthorized = env.UnauthorizedRoute
	}
	if env.StorageBackend != "" {
		cfg.Storage.Backend = env.StorageBackend
	}
	if env.StorageFile != "" {
		cfg.Storage.File = env.StorageFile
		if env.StorageBackend == "" {
			cfg.Storage.Backend = StorageFile
		}
	}
	if env.RedisAddr != "" {
		cfg.Storage.RedisAddr = env.RedisAddr
		if env.StorageBackend == "" {
			cfg.Storage.Backend = StorageRedis
		}
	}
	if env.MetricsEnabled != nil {
		cfg.Metrics.Enabled = *env.MetricsEnabled
	}
	if env.AuditEnabled != nil {
		cfg.Audit.Enabled = *env.AuditEnabled
	}
	return nil
}
