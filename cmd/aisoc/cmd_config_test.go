package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/aisociety/internal/config"
	"github.com/nvandessel/aisociety/internal/society"
)

func TestGetConfigValue_AllKeys(t *testing.T) {
	cfg := config.Default()
	for _, key := range configKeys {
		if _, found := getConfigValue(cfg, key); !found {
			t.Errorf("getConfigValue(%q) not found", key)
		}
	}
	if _, found := getConfigValue(cfg, "llm.provider"); found {
		t.Error("unknown key should not be found")
	}
}

func TestSetConfigValue(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		check   func(*config.Config) bool
		wantErr bool
	}{
		{"defaults.years", "12", func(c *config.Config) bool { return c.Defaults.Years == 12 }, false},
		{"defaults.ai_tax_rate", "0.45", func(c *config.Config) bool { return c.Defaults.AITaxRate == 0.45 }, false},
		{"defaults.ubi_enabled", "false", func(c *config.Config) bool { return !c.Defaults.UBIEnabled }, false},
		{"server.addr", "localhost:8080", func(c *config.Config) bool { return c.Server.Addr == "localhost:8080" }, false},
		{"server.burst", "3", func(c *config.Config) bool { return c.Server.Burst == 3 }, false},
		{"logging.format", "json", func(c *config.Config) bool { return c.Logging.Format == "json" }, false},
		{"telemetry.endpoint", "http://localhost:4318", func(c *config.Config) bool { return c.Telemetry.Endpoint == "http://localhost:4318" }, false},
		{"defaults.years", "ten", nil, true},
		{"defaults.ubi_enabled", "maybe", nil, true},
		{"server.requests_per_minute", "fast", nil, true},
		{"nope.key", "1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := config.Default()
			err := setConfigValue(cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("setConfigValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("value not applied for %s", tt.key)
			}
		})
	}
}

func TestSetConfigValue_ParseErrorIsInvalidInput(t *testing.T) {
	err := setConfigValue(config.Default(), "defaults.population", "many")
	if !errors.Is(err, society.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestConfigCmd_SetGetList(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if _, _, err := runCmd(t, newConfigCmd(), "config", "set", "defaults.ai_tax_rate", "0.4"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	configPath := filepath.Join(tmpDir, "home", ".aisoc", "config.yaml")
	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config permissions = %o, want 0600", perm)
	}

	stdout, _, err := runCmd(t, newConfigCmd(), "config", "get", "defaults.ai_tax_rate", "--json")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	var got struct {
		Key   string  `json:"key"`
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatal(err)
	}
	if got.Value != 0.4 {
		t.Errorf("value = %v, want 0.4", got.Value)
	}

	stdout, _, err = runCmd(t, newConfigCmd(), "config", "list")
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	if !strings.Contains(stdout, "defaults.ai_tax_rate:") || !strings.Contains(stdout, "0.4") {
		t.Errorf("list output:\n%s", stdout)
	}
}

func TestConfigCmd_SetRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	tests := [][]string{
		{"defaults.ai_tax_rate", "1.5"},
		{"defaults.years", "0"},
		{"logging.level", "verbose"},
		{"defaults.population", "2000000"},
	}
	for _, args := range tests {
		_, _, err := runCmd(t, newConfigCmd(), append([]string{"config", "set"}, args...)...)
		if err == nil {
			t.Errorf("config set %v should fail", args)
		}
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "home", ".aisoc", "config.yaml")); !os.IsNotExist(err) {
		t.Error("rejected values must not be saved")
	}
}

func TestConfigCmd_GetUnknown(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if _, _, err := runCmd(t, newConfigCmd(), "config", "get", "bogus"); err == nil {
		t.Error("expected error for unknown key")
	}

	stdout, _, err := runCmd(t, newConfigCmd(), "config", "get", "bogus", "--json")
	if err != nil {
		t.Fatalf("json get should not fail: %v", err)
	}
	if !strings.Contains(stdout, "key not found") {
		t.Errorf("stdout = %q", stdout)
	}
}
