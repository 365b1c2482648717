// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV override like PIPELINE_MAX_WORKERS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// applyDefaults cannot tell false from unset.
	v.SetDefault("reports.json_enabled", true)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent.
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cert-verifier"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Pipeline.MaxWorkers == 0 {
		cfg.Pipeline.MaxWorkers = 4
	}
	// Same bounds as the renderer ladder expects: at least one worker,
	// at most eight to keep rasterization memory in check.
	if cfg.Pipeline.MaxWorkers < 1 {
		cfg.Pipeline.MaxWorkers = 1
	}
	if cfg.Pipeline.MaxWorkers > 8 {
		cfg.Pipeline.MaxWorkers = 8
	}
	if len(cfg.Pipeline.ZoomLevels) == 0 {
		cfg.Pipeline.ZoomLevels = []int{2, 3, 4, 5, 6}
	}
	if len(cfg.Pipeline.DPILevels) == 0 {
		cfg.Pipeline.DPILevels = []int{150, 200, 300}
	}
	if cfg.Pipeline.CertificateMarker == "" {
		cfg.Pipeline.CertificateMarker = "SÍ"
	}
	if cfg.Pipeline.MetricsAddr == "" {
		cfg.Pipeline.MetricsAddr = ":9102"
	}

	if len(cfg.Fetch.TimeoutsSeconds) == 0 {
		cfg.Fetch.TimeoutsSeconds = []int{8, 14, 18}
	}
	if cfg.Fetch.CacheTTLMinutes == 0 {
		cfg.Fetch.CacheTTLMinutes = 60
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "cert-verifier/1.0"
	}

	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "certificate-verifications"
	}

	if cfg.Reports.OutputDir == "" {
		cfg.Reports.OutputDir = "build/reports"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validateConfig(cfg *Config) error {
	for i, t := range cfg.Fetch.TimeoutsSeconds {
		if t < 1 {
			return fmt.Errorf("fetch.timeouts_seconds[%d] must be positive, got %d", i, t)
		}
	}
	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres enabled but host/database missing")
		}
	}
	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch enabled but no addresses configured")
	}
	return nil
}
