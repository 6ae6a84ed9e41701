package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir      string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DownloadsDir string `yaml:"downloads_dir" envconfig:"DOWNLOADS_DIR"`
	ResultsDir   string `yaml:"results_dir" envconfig:"RESULTS_DIR"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// AnalysisConfig contains the tunable assumptions for the valuation pipeline.
// CapitalizationMultiple turns a trailing owner earnings average into an
// equity value; it is a run-level assumption, never hard-coded per company.
type AnalysisConfig struct {
	Cadence                string  `yaml:"cadence" envconfig:"CADENCE" validate:"oneof=Annual Quarterly"`
	Sector                 string  `yaml:"sector" envconfig:"SECTOR" validate:"oneof=non_financial financial_institution"`
	MaxWindow              int     `yaml:"max_window" envconfig:"MAX_WINDOW" validate:"gte=1,lte=40"`
	CapitalizationMultiple float64 `yaml:"capitalization_multiple" envconfig:"CAPITALIZATION_MULTIPLE" validate:"gt=0"`
}

// Load loads configuration from environment variables and an optional
// YAML config file. Environment variables take precedence over the file,
// the file over built-in defaults.
func Load() (*Config, error) {
	return LoadFrom(configFilePath())
}

// LoadFrom loads configuration using the given YAML file path.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileCfg, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = *fileCfg
		}
	}

	// Environment variables override file values. Fields without a
	// corresponding variable are left untouched.
	if err := envconfig.Process("MS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills any field not set by the file or the environment.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/analyze.log"
	}
	if c.Paths.DownloadsDir == "" {
		c.Paths.DownloadsDir = "downloaded_files"
	}
	if c.Paths.ResultsDir == "" {
		c.Paths.ResultsDir = "analysis_output"
	}
	if c.Paths.LogsDir == "" {
		c.Paths.LogsDir = "logs"
	}
	if c.Analysis.Cadence == "" {
		c.Analysis.Cadence = "Annual"
	}
	if c.Analysis.Sector == "" {
		c.Analysis.Sector = "non_financial"
	}
	if c.Analysis.MaxWindow == 0 {
		c.Analysis.MaxWindow = 10
	}
	if c.Analysis.CapitalizationMultiple == 0 {
		c.Analysis.CapitalizationMultiple = 10
	}
}

// Validate checks the configuration against its struct-level constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// configFilePath returns the default config file location, overridable
// through the MS_CONFIG_FILE environment variable.
func configFilePath() string {
	if path := os.Getenv("MS_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}
