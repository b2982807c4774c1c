package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, decoded from TOML.
type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	NetworkName  string `toml:"NetworkName"`
	Environment  string `toml:"Environment"`
	ProtocolID   uint8  `toml:"ProtocolID"`
	AdminAddress string `toml:"AdminAddress"`
	SeedFile     string `toml:"SeedFile"`

	RateLimit RateLimit `toml:"ratelimit"`
	Upstream  Upstream  `toml:"upstream"`
}

// RateLimit bounds payable fetch methods per client.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Upstream points at the collaborator endpoints the registry proxies to.
type Upstream struct {
	FastSourceURL     string `toml:"FastSourceURL"`
	FeeScheduleURL    string `toml:"FeeScheduleURL"`
	RelayURL          string `toml:"RelayURL"`
	CalculatedFeedURL string `toml:"CalculatedFeedURL"`
	TimeoutSeconds    int    `toml:"TimeoutSeconds"`
}

// Load reads the configuration at path, writing a commented default file on
// first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8648"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "feedregistry-local"
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = 120
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.Upstream.TimeoutSeconds <= 0 {
		cfg.Upstream.TimeoutSeconds = 15
	}
}

// Validate rejects configurations that cannot produce a working daemon.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress is required")
	}
	if addr := strings.TrimSpace(cfg.AdminAddress); addr != "" {
		if _, err := ParseAddress(addr); err != nil {
			return fmt.Errorf("config: AdminAddress: %w", err)
		}
	}
	for name, url := range map[string]string{
		"FastSourceURL":  cfg.Upstream.FastSourceURL,
		"FeeScheduleURL": cfg.Upstream.FeeScheduleURL,
		"RelayURL":       cfg.Upstream.RelayURL,
	} {
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("config: upstream %s is required", name)
		}
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
