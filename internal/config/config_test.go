package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir string, cfg Config) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func validConfig() Config {
	return Config{
		BootstrapServers: "nats://localhost:4222",
		TimeoutMS:        10000,
		Threads:          4,
		Topics:           "gtr-domains:3:1",
		Graph: Graph{
			Host:     "localhost",
			Port:     7687,
			Username: "neo4j",
		},
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validConfig())
	t.Setenv("DOMAIN_INTEL_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BootstrapServers != "nats://localhost:4222" {
		t.Fatalf("unexpected bootstrap servers: %s", cfg.BootstrapServers)
	}
}

func TestLoadMissingRequiredFieldFails(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig()
	cfg.BootstrapServers = ""
	path := writeConfig(t, dir, cfg)
	t.Setenv("DOMAIN_INTEL_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for missing bootstrap_servers")
	}
}

func TestLoadNoCandidateFilesFails(t *testing.T) {
	t.Setenv("DOMAIN_INTEL_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error when no config file exists")
	}
}
