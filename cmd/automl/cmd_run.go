package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/config"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/models"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/report"
)

type runFlags struct {
	configPath string

	data, target, dateColumn, dateLayout string
	models                               []string
	lossName                             string
	featureSelection, tuning             string
	maxFeatures                          int
	splits                               int
	testSplit                            float64
	paramAmount                          string
	seed                                 uint64
	bundle, chart, resultsJSON           string
}

func newRunCmd(ro *rootOptions) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the model search on a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.runConfig(cmd, ro)
			if err != nil {
				return err
			}
			return runSearch(cmd, cfg)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML run configuration; flags override it")
	fl.StringVar(&f.data, "data", "", "input CSV path")
	fl.StringVar(&f.target, "target", "", "target column")
	fl.StringVar(&f.dateColumn, "date-column", "", "date column used for ordering, excluded from features")
	fl.StringVar(&f.dateLayout, "date-layout", "", "time layout of the date column")
	fl.StringSliceVar(&f.models, "models", nil, "models to run (default all)")
	fl.StringVar(&f.lossName, "loss", "", "loss: mae, mape, rmse, mse, r2")
	fl.StringVar(&f.featureSelection, "feature-selection", "", "none, backward or forward")
	fl.IntVar(&f.maxFeatures, "max-features", 0, "cap for forward selection")
	fl.StringVar(&f.tuning, "tuning", "", "none, grid, line or random")
	fl.IntVar(&f.splits, "splits", 0, "number of CV folds")
	fl.Float64Var(&f.testSplit, "test-split", 0, "held-out fraction of the newest rows")
	fl.StringVar(&f.paramAmount, "param-amount", "", "grid size label: small, big, custom")
	fl.Uint64Var(&f.seed, "seed", 0, "random search seed")
	fl.StringVar(&f.bundle, "bundle", "", "write the best model bundle to this path")
	fl.StringVar(&f.chart, "chart", "", "write a test loss chart to this path (png, svg, pdf)")
	fl.StringVar(&f.resultsJSON, "results-json", "", "write the results as JSON to this path")
	return cmd
}

// runConfig merges defaults, the optional YAML file and the flags that were
// set explicitly.
func (f *runFlags) runConfig(cmd *cobra.Command, ro *rootOptions) (*config.RunConfig, error) {
	// AUTOML_WORKERS only applies without a config file
	cfg := config.Defaults()
	if ro.env != nil {
		cfg.Search.Workers = ro.env.Workers
	}
	if f.configPath != "" {
		loaded, err := config.LoadRunConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	set := cmd.Flags().Changed
	str := func(name string, dst *string, v string) {
		if set(name) {
			*dst = v
		}
	}
	str("data", &cfg.Data.Path, f.data)
	str("target", &cfg.Data.Target, f.target)
	str("date-column", &cfg.Data.DateColumn, f.dateColumn)
	str("date-layout", &cfg.Data.DateLayout, f.dateLayout)
	str("loss", &cfg.Search.Loss, f.lossName)
	str("feature-selection", &cfg.Search.FeatureSelection, f.featureSelection)
	str("tuning", &cfg.Search.Tuning, f.tuning)
	str("param-amount", &cfg.Search.ParamAmount, f.paramAmount)
	str("bundle", &cfg.Output.Bundle, f.bundle)
	str("chart", &cfg.Output.Chart, f.chart)
	str("results-json", &cfg.Output.ResultsJSON, f.resultsJSON)
	if set("models") {
		cfg.Search.Models = f.models
	}
	if set("max-features") {
		cfg.Search.MaxFeatures = f.maxFeatures
	}
	if set("splits") {
		cfg.Search.NSplits = f.splits
	}
	if set("test-split") {
		cfg.Search.TestSplit = f.testSplit
	}
	if set("seed") {
		cfg.Search.Seed = f.seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSearch(cmd *cobra.Command, cfg *config.RunConfig) error {
	logger := log.GetLoggerWithName("automl")
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	df, err := dataset.ReadCSVFile(cfg.Data.Path, dataset.CSVOptions{
		DateColumn: cfg.Data.DateColumn,
		DateLayout: cfg.Data.DateLayout,
	})
	if err != nil {
		return err
	}
	logger.Info("Dataset loaded", "path", cfg.Data.Path, log.SamplesKey, df.Len(), log.ConfigHashKey, opts.ConfigHash)

	aml := automl.New(models.DefaultRegistry(logger), automl.WithLogger(logger))
	res, runErr := aml.Run(df, opts)
	if res == nil {
		res = aml.Results()
	}
	if res != nil {
		if err := report.Summary(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if err := writeResultsJSON(cfg.Output.ResultsJSON, res); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	if cfg.Output.Chart != "" {
		if err := report.SaveLossChart(res, cfg.Output.Chart); err != nil {
			return err
		}
		logger.Info("Chart written", "path", cfg.Output.Chart)
	}
	if cfg.Output.Bundle != "" {
		bundle, err := aml.Bundle()
		if err != nil {
			return err
		}
		if err := automl.SaveBundleFile(cfg.Output.Bundle, bundle); err != nil {
			return err
		}
		logger.Info("Bundle written", "path", cfg.Output.Bundle, log.ModelNameKey, bundle.Metadata.ModelName)
	}
	return nil
}

func writeResultsJSON(path string, res *automl.Results) error {
	if path == "" {
		return nil
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode results")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
