package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/taxico2/core/engine"
	"github.com/kilianp07/taxico2/core/metrics"
	"github.com/kilianp07/taxico2/infra/logger"
	"github.com/kilianp07/taxico2/infra/mqtt"
)

type Config struct {
	Input   InputConfig    `json:"input"`
	Engine  engine.Config  `json:"engine"`
	Output  OutputConfig   `json:"output"`
	Store   StoreConfig    `json:"store"`
	Metrics metrics.Config `json:"metrics"`
	MQTT    mqtt.Config    `json:"mqtt"`
	Logging logger.Config  `json:"logging"`
	Sentry  SentryConfig   `json:"sentry"`
	API     APIConfig      `json:"api"`
}

// EnvFiles are loaded, when present, before the configuration file. Values
// already set in the environment win.
var EnvFiles = []string{".env"}

// Load reads the configuration file, then applies K_ prefixed environment
// overrides where "__" separates nesting levels, e.g.
// K_ENGINE__STRICT=true. An empty path loads the environment only.
func Load(path string) (*Config, error) {
	for _, f := range EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	if path != "" {
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
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Engine.SetDefaults()
	c.Output.SetDefaults()
	c.Logging.SetDefaults()
	c.API.SetDefaults()
}

// Validate checks the sections needed to run the engine.
func (c Config) Validate() error {
	if err := c.Input.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	return nil
}
