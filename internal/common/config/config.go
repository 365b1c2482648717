// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Database DatabaseConfig `mapstructure:"database"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// PipelineConfig holds batch-processing settings.
type PipelineConfig struct {
	MaxWorkers        int    `mapstructure:"max_workers"`
	ZoomLevels        []int  `mapstructure:"zoom_levels"`
	DPILevels         []int  `mapstructure:"dpi_levels"`
	CertificateMarker string `mapstructure:"certificate_marker"`
	MetricsAddr       string `mapstructure:"metrics_addr"`
}

// FetchConfig holds reference-lookup settings.
type FetchConfig struct {
	TimeoutsSeconds []int    `mapstructure:"timeouts_seconds"`
	ExtraDomains    []string `mapstructure:"extra_domains"`
	CacheTTLMinutes int      `mapstructure:"cache_ttl_minutes"`
	UserAgent       string   `mapstructure:"user_agent"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ReportsConfig holds output settings for the batch run.
type ReportsConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	JSONEnabled bool   `mapstructure:"json_enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
