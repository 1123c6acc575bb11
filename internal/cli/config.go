package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/buildledger/rpcrewrite/pkg/generator"
	"github.com/buildledger/rpcrewrite/pkg/migration"
	"github.com/buildledger/rpcrewrite/pkg/schema"
)

const (
	maxWalkDepth = 25
	envPrefix    = "RPCREWRITE"
)

// configNames are tried in order in every directory during discovery.
var configNames = []string{"rpcrewrite.yaml", "rpcrewrite.yml"}

// Config represents the rpcrewrite configuration from rpcrewrite.yaml.
type Config struct {
	Snapshot         string   `mapstructure:"snapshot" json:"snapshot"`
	Schema           string   `mapstructure:"schema" json:"schema"`
	ForbiddenColumns []string `mapstructure:"forbidden_columns" json:"forbidden_columns"`

	Generate GenerateConfig `mapstructure:"generate" json:"generate"`
}

// GenerateConfig holds settings for the generate command.
type GenerateConfig struct {
	Migration   string `mapstructure:"migration" json:"migration"`
	Audit       string `mapstructure:"audit" json:"audit"`
	Delta       string `mapstructure:"delta" json:"delta"`
	Description string `mapstructure:"description" json:"description"`
	Verify      bool   `mapstructure:"verify" json:"verify"`
	DryRun      bool   `mapstructure:"dry_run" json:"dry_run"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("snapshot", generator.DefaultSnapshotPath)
	v.SetDefault("schema", schema.DefaultSchema)
	v.SetDefault("forbidden_columns", []string{})

	v.SetDefault("generate.migration", generator.DefaultMigrationPath)
	v.SetDefault("generate.audit", generator.DefaultAuditPath)
	v.SetDefault("generate.delta", generator.DefaultDeltaPath)
	v.SetDefault("generate.description", migration.DefaultDescription)
	v.SetDefault("generate.verify", true)
	v.SetDefault("generate.dry_run", false)
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for rpcrewrite.yaml or rpcrewrite.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// .git file or directory marks the repo root
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// Options converts the config into pipeline options.
func (c *Config) Options() generator.Options {
	return generator.Options{
		Schema:         c.Schema,
		ExtraForbidden: c.ForbiddenColumns,
		Source:         filepath.Base(c.Snapshot),
		Description:    c.Generate.Description,
		Verify:         c.Generate.Verify,
	}
}

// Paths returns the configured output locations.
func (c *Config) Paths() generator.Paths {
	return generator.Paths{
		Migration: c.Generate.Migration,
		Audit:     c.Generate.Audit,
		Delta:     c.Generate.Delta,
	}
}
