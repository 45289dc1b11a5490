// Package config loads and validates the simulation configuration.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Input   InputConfig   `json:"input"`
	Fleet   FleetConfig   `json:"fleet"`
	Routing RoutingConfig `json:"routing"`
	Output  OutputConfig  `json:"output"`
}

// InputConfig names the scenario input files.
type InputConfig struct {
	DemandFile  string `json:"demand_file"`
	FleetFile   string `json:"fleet_file"`
	RankFile    string `json:"rank_file"`
	StationFile string `json:"station_file"`
	TargetFile  string `json:"target_file"`
}

// Load reads the config file at path and applies environment overrides
// with the TAXISIM_ prefix (TAXISIM_OUTPUT__SQLITE_PATH etc.).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("TAXISIM_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "taxisim_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Fleet.SetDefaults()
	cfg.Routing.SetDefaults()
	cfg.Output.SetDefaults()
	if err := cfg.Input.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Fleet.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Routing.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Output.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the mandatory input files are configured. The
// target file is optional: without it the fleet size is never adjusted
// during the run.
func (c InputConfig) Validate() error {
	if c.DemandFile == "" {
		return fmt.Errorf("input.demand_file is required")
	}
	if c.FleetFile == "" {
		return fmt.Errorf("input.fleet_file is required")
	}
	if c.RankFile == "" {
		return fmt.Errorf("input.rank_file is required")
	}
	if c.StationFile == "" {
		return fmt.Errorf("input.station_file is required")
	}
	return nil
}
