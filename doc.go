// Package automl searches for the best regression model on time-ordered data.
//
// A run takes a table with a target column, keeps the row order (optionally
// sorting by a date column first), holds out the trailing rows as a test set
// and then, for every registered model family, optionally selects features,
// optionally tunes hyperparameters with expanding-window cross-validation and
// fits a final model. Every model is isolated: a failing or panicking family
// is recorded in the results and the run continues with the next one.
//
// # Quick Start
//
//	df, err := dataset.ReadCSVFile("sales.csv", dataset.CSVOptions{DateColumn: "date"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	opts := automl.DefaultOptions()
//	opts.TargetColumn = "sales"
//	opts.DateColumn = "date"
//	opts.Loss = loss.MAE()
//	opts.FeatureSelection = "forward"
//	opts.Tuning = "line"
//
//	aml := automl.New(models.DefaultRegistry(nil))
//	res, err := aml.Run(df, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report.Summary(os.Stdout, res)
//
//	bundle, _ := aml.Bundle()
//	_ = automl.SaveBundleFile("best.gob", bundle)
//
// # Packages
//
//   - automl: the orchestrator, results and the deployable Bundle
//   - models: model registry and per-family configurations (linear_regression, lightgbm, xgboost)
//   - feature_selection: backward and forward selectors
//   - model_selection: time-series splitter, cross-validation and grid/line/random tuners
//   - loss: loss functions with an optimisation direction
//   - dataset: column frames, CSV loading, holdout split and feature name sanitizing
//   - preprocessing: per-split standard scaling
//   - report: text summary and loss chart of a run
//   - config: YAML run configuration and environment settings
//   - linear, ensemble/lightgbm, ensemble/xgboost: the estimators
//   - core/model, core/parallel: estimator contract, persistence and worker helpers
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// The automl command (cmd/automl) runs a search from the command line.
package automl
