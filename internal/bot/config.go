package bot

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/prostoMif/UnTT-v1.0/core/config"
	coredatabase "github.com/prostoMif/UnTT-v1.0/core/database"
)

// AppConfig is the full bot configuration: the shared core sections
// plus the database block only this binary needs.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
}

// LoadConfig reads YAML, applies environment overrides, and validates.
func LoadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CoreConfig exposes the embedded core configuration.
func (c *AppConfig) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}
