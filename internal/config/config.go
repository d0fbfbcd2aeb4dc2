package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultDataDir      = "data"
	defaultDocumentsDir = "documents"
	defaultLogLevel     = "info"
	defaultExportDir    = "chromemdb"

	// OpenAIKeyEnv overrides Config.OpenAIKey when set.
	OpenAIKeyEnv = "OPENAI_API_KEY"
)

type Config struct {
	DataDir      string       `yaml:"data_dir"`
	DocumentsDir string       `yaml:"documents_dir"`
	DatabaseDSN  string       `yaml:"database_dsn"`
	Debug        bool         `yaml:"debug"`
	OpenAIKey    string       `yaml:"openai_key"`
	Log          LogConfig    `yaml:"log"`
	Export       ExportConfig `yaml:"export"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type ExportConfig struct {
	Dir           string `yaml:"dir"`
	EncryptionKey string `yaml:"encryption_key"`
	Compress      bool   `yaml:"compress"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads the YAML file at path. A missing file is not an error,
// the defaults are returned instead.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.setDefaults()
	if key := os.Getenv(OpenAIKeyEnv); key != "" {
		cfg.OpenAIKey = key
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.DocumentsDir == "" {
		c.DocumentsDir = defaultDocumentsDir
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Export.Dir == "" {
		c.Export.Dir = defaultExportDir
	}
}
