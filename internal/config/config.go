// Package config resolves the demandcast CLI configuration from flags, environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/demandcast/pkg/errors"
	"github.com/YuminosukeSato/demandcast/pkg/log"
)

// EnvPrefix is prepended to every environment variable, e.g. DEMANDCAST_MODEL.
const EnvPrefix = "DEMANDCAST"

// Keys shared by flags, environment variables and the config file.
const (
	KeyModel    = "model"
	KeyInput    = "input"
	KeyOutput   = "output"
	KeyFeatures = "features"
	KeyTarget   = "target"
	KeyPlot     = "plot"
	KeyLogLevel = "log-level"
	KeyThreads  = "threads"
	KeyCache    = "cache-size"
	KeyConfig   = "config"
)

// Config is the resolved CLI configuration.
type Config struct {
	// Model is the path of the LightGBM artifact.
	Model string
	// Input is the CSV file to score, "-" for stdin.
	Input string
	// Output is where the predictions CSV is written, "-" for stdout.
	Output string
	// Features lists the model inputs in training order. Empty means the
	// feature names stored in the artifact.
	Features []string
	// Target names the column holding actual demand. Setting it enables evaluation.
	Target string
	// Plot is an image path for the actual-vs-predicted chart. Requires Target.
	Plot     string
	LogLevel string
	// Threads is the worker count for row-parallel prediction, 0 for all CPUs.
	Threads int
	// CacheSize bounds the number of artifacts kept in memory.
	CacheSize int
}

// NewFlagSet defines the CLI flags.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP(KeyModel, "m", "", "path to the model artifact (LightGBM text, JSON dump or gob)")
	fs.StringP(KeyInput, "i", "-", "input CSV with a header row, - for stdin")
	fs.StringP(KeyOutput, "o", "-", "output CSV, - for stdout")
	fs.StringSliceP(KeyFeatures, "f", nil, "feature columns in training order (default: names stored in the model)")
	fs.StringP(KeyTarget, "t", "", "column with actual demand, enables evaluation")
	fs.String(KeyPlot, "", "write an actual-vs-predicted chart to this path (requires --target)")
	fs.String(KeyLogLevel, "info", "log level: debug, info, warn or error")
	fs.Int(KeyThreads, 0, "prediction workers, 0 uses every CPU")
	fs.Int(KeyCache, 0, "number of model artifacts to keep in memory, 0 for the default")
	fs.StringP(KeyConfig, "c", "", "YAML config file")
	return fs
}

// Load parses args and resolves the configuration. pflag.ErrHelp is returned
// unchanged when help was requested.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("demandcast")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errors.Wrap(err, "parse flags")
	}
	return FromFlags(fs)
}

// FromFlags resolves the configuration from an already parsed flag set.
func FromFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	cfg := &Config{
		Model:     v.GetString(KeyModel),
		Input:     v.GetString(KeyInput),
		Output:    v.GetString(KeyOutput),
		Features:  splitList(v.GetStringSlice(KeyFeatures)),
		Target:    v.GetString(KeyTarget),
		Plot:      v.GetString(KeyPlot),
		LogLevel:  v.GetString(KeyLogLevel),
		Threads:   v.GetInt(KeyThreads),
		CacheSize: v.GetInt(KeyCache),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for missing or inconsistent values.
func (c *Config) Validate() error {
	if c.Model == "" {
		return errors.NewValidationError(KeyModel, "is required", c.Model)
	}
	if c.Input == "" {
		return errors.NewValidationError(KeyInput, "is required", c.Input)
	}
	if c.Threads < 0 {
		return errors.NewValidationError(KeyThreads, "must be >= 0", c.Threads)
	}
	if c.CacheSize < 0 {
		return errors.NewValidationError(KeyCache, "must be >= 0", c.CacheSize)
	}
	if c.Plot != "" && c.Target == "" {
		return errors.NewValidationError(KeyPlot, "requires --target", c.Plot)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError(KeyLogLevel, "must be debug, info, warn or error", c.LogLevel)
	}
	seen := make(map[string]struct{}, len(c.Features))
	for _, f := range c.Features {
		if _, dup := seen[f]; dup {
			return errors.NewValidationError(KeyFeatures, "contains duplicate column "+f, c.Features)
		}
		seen[f] = struct{}{}
	}
	return nil
}

// splitList accepts both list values and comma separated strings, which is how
// environment variables and YAML scalars arrive.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
