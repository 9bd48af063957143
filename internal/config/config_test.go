package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"callboard/internal/config"
	"callboard/internal/pbx"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "callboard.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validYAML = `
ami:
  host: pbx.local
  port: 5038
  username: monitor
  secret: s3cret
ari:
  host: pbx.local
  port: 8088
  username: dashboard
  password: hunter2
api:
  host: 0.0.0.0
  port: 8080
database:
  host: 127.0.0.1
  port: 3306
  username: callboard
  database: asteriskcdrdb
`

func TestLoadValid(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AMI.Address() != "pbx.local:5038" {
		t.Errorf("AMI address = %q", cfg.AMI.Address())
	}
	if cfg.ARI.BaseURL() != "http://pbx.local:8088/ari" {
		t.Errorf("ARI base URL = %q", cfg.ARI.BaseURL())
	}
	if cfg.ARI.Technology != "PJSIP" {
		t.Errorf("expected default technology PJSIP, got %q", cfg.ARI.Technology)
	}
	if cfg.AMI.ActionTimeout != 10 {
		t.Errorf("expected default action timeout 10, got %d", cfg.AMI.ActionTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CALLBOARD_AMI_SECRET", "from-env")
	t.Setenv("CALLBOARD_DB_PASSWORD", "db-env")

	cfg, err := config.Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AMI.Secret != "from-env" {
		t.Errorf("AMI secret = %q, want env override", cfg.AMI.Secret)
	}
	if cfg.Database.Password != "db-env" {
		t.Errorf("DB password = %q, want env override", cfg.Database.Password)
	}
}

func TestValidateRejectsMalformedParams(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.Load(writeConfig(t, validYAML))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty ami host", func(c *config.Config) { c.AMI.Host = "" }},
		{"empty ami username", func(c *config.Config) { c.AMI.Username = "" }},
		{"ami port out of range", func(c *config.Config) { c.AMI.Port = 70000 }},
		{"empty ari host", func(c *config.Config) { c.ARI.Host = "" }},
		{"empty ari username", func(c *config.Config) { c.ARI.Username = "" }},
		{"negative ari port", func(c *config.Config) { c.ARI.Port = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !pbx.IsValidation(err) {
				t.Errorf("expected validation kind, got %v", err)
			}
		})
	}
}

func TestEmptyPasswordIsAllowed(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.AMI.Secret = ""
	cfg.ARI.Password = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty passwords should validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
