// Package config loads the run configuration from YAML and the process
// settings from the environment.
package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// RunConfig describes one model search.
type RunConfig struct {
	Data   DataConfig   `yaml:"data" json:"data"`
	Search SearchConfig `yaml:"search" json:"search"`
	Output OutputConfig `yaml:"output" json:"output"`
}

// DataConfig locates the input CSV.
type DataConfig struct {
	Path       string `yaml:"path" json:"path"`
	Target     string `yaml:"target" json:"target"`
	DateColumn string `yaml:"date_column" json:"date_column"`
	// DateLayout is a time.Parse layout for DateColumn. Empty means
	// "2006-01-02" with an RFC 3339 fallback.
	DateLayout string `yaml:"date_layout" json:"date_layout"`
}

// SearchConfig mirrors automl.Options.
type SearchConfig struct {
	Models           []string `yaml:"models" json:"models"`
	Loss             string   `yaml:"loss" json:"loss"`
	FeatureSelection string   `yaml:"feature_selection" json:"feature_selection"`
	MaxFeatures      int      `yaml:"max_features" json:"max_features"`
	Tuning           string   `yaml:"tuning" json:"tuning"`
	ParamAmount      string   `yaml:"param_amount" json:"param_amount"`
	NSplits          int      `yaml:"n_splits" json:"n_splits"`
	TestSplit        float64  `yaml:"test_split" json:"test_split"`
	RandomIterations int      `yaml:"random_iterations" json:"random_iterations"`
	LinePasses       int      `yaml:"line_passes" json:"line_passes"`
	Seed             uint64   `yaml:"seed" json:"seed"`
	Workers          int      `yaml:"workers" json:"workers"`
}

// OutputConfig lists optional artifacts. Empty paths are skipped.
type OutputConfig struct {
	Bundle      string `yaml:"bundle" json:"bundle"`
	Chart       string `yaml:"chart" json:"chart"`
	ResultsJSON string `yaml:"results_json" json:"results_json"`
}

// Defaults returns a RunConfig with every documented default filled in.
func Defaults() *RunConfig {
	d := automl.DefaultOptions()
	return &RunConfig{
		Search: SearchConfig{
			Loss:             "mae",
			FeatureSelection: automl.StrategyNone,
			Tuning:           automl.StrategyNone,
			ParamAmount:      d.ParamAmount,
			NSplits:          d.NSplits,
			TestSplit:        d.TestSplit,
			RandomIterations: d.RandomIterations,
			LinePasses:       d.LinePasses,
			Seed:             d.Seed,
			Workers:          d.Workers,
		},
	}
}

// LoadRunConfig reads path on top of Defaults. Unknown keys fail the load.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return ParseRunConfig(data)
}

// ParseRunConfig decodes YAML on top of Defaults and validates the result.
func ParseRunConfig(data []byte) (*RunConfig, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid run configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that can be checked without data. The
// orchestrator repeats the option checks before training.
func (c *RunConfig) Validate() error {
	if c.Data.Path == "" {
		return errors.NewConfigurationError("data.path", "is required", c.Data.Path)
	}
	if c.Data.Target == "" {
		return errors.NewConfigurationError("data.target", "is required", c.Data.Target)
	}
	if c.Data.DateLayout != "" && c.Data.DateColumn == "" {
		return errors.NewConfigurationError("data.date_layout", "requires data.date_column", c.Data.DateLayout)
	}
	if _, err := loss.ByName(c.Search.Loss); err != nil {
		return errors.NewConfigurationError("search.loss", "unknown loss", c.Search.Loss)
	}
	_, err := c.Options()
	return err
}

// Options converts the search section into orchestrator options and checks
// them.
func (c *RunConfig) Options() (automl.Options, error) {
	lossFn, err := loss.ByName(c.Search.Loss)
	if err != nil {
		return automl.Options{}, err
	}
	opts := automl.Options{
		TargetColumn:     c.Data.Target,
		DateColumn:       c.Data.DateColumn,
		FeatureSelection: c.Search.FeatureSelection,
		MaxFeatures:      c.Search.MaxFeatures,
		Tuning:           c.Search.Tuning,
		ModelsToRun:      append([]string(nil), c.Search.Models...),
		Loss:             lossFn,
		NSplits:          c.Search.NSplits,
		TestSplit:        c.Search.TestSplit,
		ParamAmount:      c.Search.ParamAmount,
		RandomIterations: c.Search.RandomIterations,
		LinePasses:       c.Search.LinePasses,
		Seed:             c.Search.Seed,
		Workers:          c.Search.Workers,
	}
	if err := opts.Validate(); err != nil {
		return automl.Options{}, err
	}
	if opts.ConfigHash, err = c.Hash(); err != nil {
		return automl.Options{}, err
	}
	return opts, nil
}

// Hash returns the hex SHA-256 of the canonical JSON form. Output paths are
// part of the hash.
func (c *RunConfig) Hash() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode run configuration")
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
