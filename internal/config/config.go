package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/teamops/teamops/pkg/logger"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logger     logger.Config    `yaml:"logger"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Publisher  PublisherConfig  `yaml:"publisher"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

// DispatcherConfig controls the scheduled-delivery loop. LivePublish=false
// is dry-run mode: due entries advance to queued as a record of intent but
// no publisher is invoked.
type DispatcherConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Interval    string `yaml:"interval"`
	BatchSize   int    `yaml:"batch_size"`
	LivePublish bool   `yaml:"live_publish"`
	HealthSweep string `yaml:"health_sweep"`
}

type PublisherConfig struct {
	EnvFile       string `yaml:"env_file"`
	CredentialTTL string `yaml:"credential_ttl"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5360
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Dispatcher.Interval == "" {
		cfg.Dispatcher.Interval = "60s"
	}
	if cfg.Dispatcher.BatchSize == 0 {
		cfg.Dispatcher.BatchSize = 20
	}
	if cfg.Dispatcher.HealthSweep == "" {
		cfg.Dispatcher.HealthSweep = "@every 5m"
	}
	if cfg.Publisher.CredentialTTL == "" {
		cfg.Publisher.CredentialTTL = "5m"
	}

	return cfg, nil
}
