package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"callboard/internal/pbx"
)

// Config is the top-level service configuration.
type Config struct {
	AMI      AMIConfig      `yaml:"ami"`
	ARI      ARIConfig      `yaml:"ari"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Poller   PollerConfig   `yaml:"poller"`
}

// AMIConfig holds manager-session credentials for bulk commands.
type AMIConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Secret   string `yaml:"secret"`
	// ActionTimeout is the wall-clock window, in seconds, a bulk
	// command has to deliver its completion event.
	ActionTimeout int `yaml:"action_timeout"`
}

// ARIConfig holds credentials for the point-lookup REST interface.
type ARIConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Technology is the endpoint technology lookups are scoped to.
	Technology string `yaml:"technology"`
	// RequestTimeout is the per-request timeout in seconds.
	RequestTimeout int `yaml:"request_timeout"`
}

type APIConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	EnableCORS bool   `yaml:"enable_cors"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type AuthConfig struct {
	Secret string `yaml:"secret"`
	// TokenTTLHours is the JWT lifetime. Defaults to 24.
	TokenTTLHours int `yaml:"token_ttl_hours"`
}

// PollerConfig controls the background operator-state poller.
type PollerConfig struct {
	Enabled  bool `yaml:"enabled"`
	Interval int  `yaml:"interval"` // seconds
}

// Load reads the YAML configuration file and applies defaults and
// environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	applyDefaults(&cfg)
	overrideWithEnv(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.AMI.Port == 0 {
		cfg.AMI.Port = 5038
	}
	if cfg.AMI.ActionTimeout == 0 {
		cfg.AMI.ActionTimeout = 10
	}
	if cfg.ARI.Port == 0 {
		cfg.ARI.Port = 8088
	}
	if cfg.ARI.Technology == "" {
		cfg.ARI.Technology = "PJSIP"
	}
	if cfg.ARI.RequestTimeout == 0 {
		cfg.ARI.RequestTimeout = 5
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.Auth.TokenTTLHours == 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	if cfg.Poller.Interval == 0 {
		cfg.Poller.Interval = 3
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
}

// overrideWithEnv lets credentials come from the environment instead of
// the config file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("CALLBOARD_AMI_USERNAME"); v != "" {
		cfg.AMI.Username = v
	}
	if v := os.Getenv("CALLBOARD_AMI_SECRET"); v != "" {
		cfg.AMI.Secret = v
	}
	if v := os.Getenv("CALLBOARD_ARI_USERNAME"); v != "" {
		cfg.ARI.Username = v
	}
	if v := os.Getenv("CALLBOARD_ARI_PASSWORD"); v != "" {
		cfg.ARI.Password = v
	}
	if v := os.Getenv("CALLBOARD_DB_USERNAME"); v != "" {
		cfg.Database.Username = v
	}
	if v := os.Getenv("CALLBOARD_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("CALLBOARD_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("CALLBOARD_DB_DATABASE"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("CALLBOARD_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
}

// Validate checks connection parameters before anything touches the
// network. Host, port and username must be set for both telephony
// interfaces; passwords may be empty.
func (c *Config) Validate() error {
	if err := c.AMI.validate(); err != nil {
		return err
	}
	return c.ARI.validate()
}

func (a AMIConfig) validate() error {
	if a.Host == "" {
		return pbx.Errorf(pbx.KindValidation, "config", "ami host is empty")
	}
	if a.Port <= 0 || a.Port > 65535 {
		return pbx.Errorf(pbx.KindValidation, "config", "ami port %d out of range", a.Port)
	}
	if a.Username == "" {
		return pbx.Errorf(pbx.KindValidation, "config", "ami username is empty")
	}
	return nil
}

func (a ARIConfig) validate() error {
	if a.Host == "" {
		return pbx.Errorf(pbx.KindValidation, "config", "ari host is empty")
	}
	if a.Port <= 0 || a.Port > 65535 {
		return pbx.Errorf(pbx.KindValidation, "config", "ari port %d out of range", a.Port)
	}
	if a.Username == "" {
		return pbx.Errorf(pbx.KindValidation, "config", "ari username is empty")
	}
	return nil
}

// Address returns host:port for the AMI manager interface.
func (a AMIConfig) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// BaseURL returns the root of the ARI REST interface.
func (a ARIConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d/ari", a.Host, a.Port)
}

// Address returns host:port for the REST API server.
func (a APIConfig) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// DSN returns the Data Source Name for MySQL.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}
