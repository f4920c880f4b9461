// Package config loads and validates the Domain Intel runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// locations lists candidate config file paths, searched in order. The first
// one that exists and loads cleanly wins. Mirrors the original project's
// DIS_CONF / /etc/domainintel / config/dev.json search order.
func locations() []string {
	var locs []string
	if v := os.Getenv("DOMAIN_INTEL_CONFIG"); v != "" {
		locs = append(locs, v)
	}
	locs = append(locs, "/etc/domainintel/config.json")
	if wd, err := os.Getwd(); err == nil {
		locs = append(locs, filepath.Join(wd, "config", "dev.json"))
	}
	return locs
}

// Graph holds Neo4j connection settings.
type Graph struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password"`
}

// Awis holds Alexa Web Information Service credentials.
type Awis struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// Compass holds the GeoDNS compass resolver's HTTP basic-auth credentials.
type Compass struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GeoDNS groups GeoDNS resolver configuration.
type GeoDNS struct {
	Compass Compass `json:"compass"`
}

// Config is the full Domain Intel runtime configuration document.
type Config struct {
	BootstrapServers string `json:"bootstrap_servers" validate:"required"`
	TimeoutMS        int    `json:"timeout_ms" validate:"required,gt=0"`
	Threads          int    `json:"threads" validate:"required,gt=0"`
	Topics           string `json:"topics" validate:"required"`
	Graph            Graph  `json:"graph" validate:"required"`
	Awis             Awis   `json:"awis"`
	GeoDNS           GeoDNS `json:"geodns"`
}

var validate = validator.New()

// Load searches the candidate locations in order and returns the first
// config that parses and validates. If none is found, the final read/parse
// error encountered is returned.
func Load() (*Config, error) {
	var lastErr error
	for _, loc := range locations() {
		cfg, err := loadFile(loc)
		if err != nil {
			lastErr = err
			continue
		}
		return cfg, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no config file found in %v", locations())
	}
	return nil, lastErr
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return &cfg, nil
}
