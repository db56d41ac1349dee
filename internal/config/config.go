package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const dirName = ".reconcile"

// Global configuration structure.
type Global struct {
	// SchemaFile points at a YAML schema; empty uses the built-in schema.
	SchemaFile   string `mapstructure:"schema_file" yaml:"schema_file"`
	StrictSchema bool   `mapstructure:"strict_schema" yaml:"strict_schema"`
	LogFile      string `mapstructure:"log_file" yaml:"log_file"`
	OutputDir    string `mapstructure:"output_dir" yaml:"output_dir"`
	// ProcessingDate fixes the reference date for elapsed-time fields
	// (YYYY-MM-DD). Empty means today.
	ProcessingDate string  `mapstructure:"processing_date" yaml:"processing_date"`
	Workers        int     `mapstructure:"workers" yaml:"workers"`
	Delimiter      string  `mapstructure:"delimiter" yaml:"delimiter"`
	SheetName      string  `mapstructure:"sheet_name" yaml:"sheet_name"`
	DerivedDefault float64 `mapstructure:"derived_default" yaml:"derived_default"`
}

// Dir returns ~/.reconcile.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.reconcile/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("RECONCILE")
	v.AutomaticEnv()

	v.SetDefault("schema_file", "")
	v.SetDefault("strict_schema", true)
	v.SetDefault("log_file", "")
	v.SetDefault("output_dir", "output")
	v.SetDefault("processing_date", "")
	v.SetDefault("workers", 4)
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("derived_default", 0.0)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.OutputDir, "reconcile.log")
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return &c, nil
}

// AsOf parses ProcessingDate, falling back to the current day.
func (c *Global) AsOf() (time.Time, error) {
	if c.ProcessingDate == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", c.ProcessingDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid processing_date %q (want YYYY-MM-DD): %w", c.ProcessingDate, err)
	}
	return t, nil
}

// DelimiterRune returns the configured delimiter, or 0 to pick by extension.
// "tab" and `\t` both mean a tab.
func (c *Global) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "":
		return 0, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	r := []rune(c.Delimiter)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	return r[0], nil
}
