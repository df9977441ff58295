package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/refeval/internal/compare"
	"github.com/lehigh-university-libraries/refeval/internal/eval/align"
)

const (
	configName = "refeval"
	envPrefix  = "REFEVAL"
)

// Config holds the evaluation settings read from refeval.yaml and the
// REFEVAL_ environment
type Config struct {
	Alignment  align.Config             `mapstructure:"alignment"`
	Compare    CompareConfig            `mapstructure:"compare"`
	Evaluation EvaluationConfig         `mapstructure:"evaluation"`
	History    HistoryConfig            `mapstructure:"history"`
	Types      []align.TypeRule         `mapstructure:"types"`
	Exceptions map[string][]string      `mapstructure:"exceptions"`
	Profiles   map[string]align.Profile `mapstructure:"profiles"`
}

type CompareConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

type EvaluationConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type HistoryConfig struct {
	DB string `mapstructure:"db"`
}

// Tables holds the lookup tables built from a Config
type Tables struct {
	Types      *align.TypeTable
	Exceptions *align.ExceptionTable
	Profiles   align.Profiles
}

// New returns a viper instance with defaults, search paths and env
// binding set up. An empty cfgFile searches ./refeval.yaml and
// ~/.config/refeval/refeval.yaml.
func New(cfgFile string) *viper.Viper {
	v := viper.New()

	v.SetDefault("alignment.retry_budget", align.DefaultRetryBudget)
	v.SetDefault("alignment.token_tolerance", align.DefaultTokenTolerance)
	v.SetDefault("compare.similarity_threshold", compare.DefaultThreshold)
	v.SetDefault("evaluation.concurrency", runtime.NumCPU())
	v.SetDefault("history.db", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file, if any, and decodes it. A missing config
// file is not an error when none was named explicitly.
func Load(cfgFile string) (*Config, error) {
	v := New(cfgFile)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return Decode(v)
}

// Decode unmarshals v and fills the tables left empty with the built-in
// defaults
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if len(cfg.Types) == 0 {
		cfg.Types = align.DefaultTypeRules()
	}
	if cfg.Exceptions == nil {
		cfg.Exceptions = align.DefaultExceptions()
	}
	if cfg.Profiles == nil {
		cfg.Profiles = align.DefaultProfiles()
	}
	if cfg.Evaluation.Concurrency < 1 {
		cfg.Evaluation.Concurrency = 1
	}
	if cfg.Alignment.RetryBudget < 1 {
		return nil, fmt.Errorf("alignment.retry_budget must be positive, got %d", cfg.Alignment.RetryBudget)
	}
	if cfg.Alignment.TokenTolerance < 1 {
		return nil, fmt.Errorf("alignment.token_tolerance must be positive, got %d", cfg.Alignment.TokenTolerance)
	}
	if t := cfg.Compare.SimilarityThreshold; t <= 0 || t > 1 {
		return nil, fmt.Errorf("compare.similarity_threshold must be in (0, 1], got %v", t)
	}

	return &cfg, nil
}

// Tables builds the immutable lookup tables for one run
func (c *Config) Tables() (*Tables, error) {
	types, err := align.NewTypeTable(c.Types)
	if err != nil {
		return nil, fmt.Errorf("building type table: %w", err)
	}
	exceptions, err := align.NewExceptionTable(c.Exceptions)
	if err != nil {
		return nil, fmt.Errorf("building exception table: %w", err)
	}
	return &Tables{
		Types:      types,
		Exceptions: exceptions,
		Profiles:   align.NewProfiles(c.Profiles),
	}, nil
}
