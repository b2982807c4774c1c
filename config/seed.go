package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed describes registry state applied once when the store starts empty:
// alias pairs and the addresses of calculated-feed contracts to dial and
// register.
type Seed struct {
	Aliases    []SeedAlias `yaml:"aliases"`
	Calculated []string    `yaml:"calculated"`
}

// SeedAlias is one retired-to-replacement identifier pair, both hex encoded.
type SeedAlias struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

// LoadSeed reads a YAML seed file. A missing path yields an empty seed.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return &Seed{}, nil
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Seed{}, nil
		}
		return nil, err
	}
	seed := &Seed{}
	if err := yaml.Unmarshal(blob, seed); err != nil {
		return nil, fmt.Errorf("config: decode seed %s: %w", path, err)
	}
	return seed, nil
}
