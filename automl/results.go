package automl

import (
	"encoding/json"
	"time"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/feature_selection"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/preprocessing"
)

// Metrics are the final train/test scores of one model. TrainLoss and
// TestLoss use the run's loss; RMSE and R2 are always reported.
type Metrics struct {
	TrainLoss float64 `json:"train_loss"`
	TestLoss  float64 `json:"test_loss"`
	TrainRMSE float64 `json:"train_rmse"`
	TestRMSE  float64 `json:"test_rmse"`
	TrainR2   float64 `json:"train_r2"`
	TestR2    float64 `json:"test_r2"`
}

// RunResult is the outcome of one model. Exactly one of Metrics and Err is
// set.
type RunResult struct {
	ModelName string

	Model    model.Estimator
	Scaler   *preprocessing.StandardScaler
	Selector feature_selection.Selector

	Params  map[string]interface{}
	Metrics *Metrics
	// CVScore is the tuner's best CV score, nil when tuning did not run.
	CVScore *float64

	// SelectedFeatures are original column names; SanitizedFeatures are the
	// names the model was trained with.
	SelectedFeatures  []string
	SanitizedFeatures []string
	NFeaturesSelected int
	OriginalFeatures  int

	Duration time.Duration
	Err      string
}

// Failed reports whether the model failed.
func (r *RunResult) Failed() bool { return r.Err != "" }

type failedJSON struct {
	ModelName string `json:"model_name"`
	Error     string `json:"error"`
}

type successJSON struct {
	ModelName         string                 `json:"model_name"`
	Params            map[string]interface{} `json:"params"`
	Metrics           *Metrics               `json:"metrics"`
	CVScore           *float64               `json:"cv_score,omitempty"`
	FeatureSelector   string                 `json:"feature_selector,omitempty"`
	SelectedFeatures  []string               `json:"selected_features"`
	NFeaturesSelected int                    `json:"n_features_selected"`
	OriginalFeatures  int                    `json:"original_features"`
	DurationMs        int64                  `json:"duration_ms"`
}

// MarshalJSON renders failed entries as {"model_name", "error"} and
// successful ones with their metrics.
func (r *RunResult) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(failedJSON{ModelName: r.ModelName, Error: r.Err})
	}
	out := successJSON{
		ModelName:         r.ModelName,
		Params:            r.Params,
		Metrics:           r.Metrics,
		CVScore:           r.CVScore,
		SelectedFeatures:  r.SelectedFeatures,
		NFeaturesSelected: r.NFeaturesSelected,
		OriginalFeatures:  r.OriginalFeatures,
		DurationMs:        r.Duration.Milliseconds(),
	}
	if out.Params == nil {
		out.Params = map[string]interface{}{}
	}
	if r.Selector != nil {
		if res, err := r.Selector.Result(); err == nil {
			out.FeatureSelector = res.Strategy
		}
	}
	return json.Marshal(out)
}

// DataInfo describes the data a run was trained on.
type DataInfo struct {
	TrainSize            int     `json:"train_size"`
	TestSize             int     `json:"test_size"`
	OriginalFeatures     int     `json:"original_features"`
	FeatureSelectionUsed bool    `json:"feature_selection_used"`
	HypertuningUsed      bool    `json:"hypertuning_used"`
	ModelsTrained        int     `json:"models_trained"`
	NSplits              int     `json:"n_splits"`
	TestSplit            float64 `json:"test_split"`
}

// Results is the outcome of one Run.
type Results struct {
	RunID     string                `json:"run_id"`
	StartedAt time.Time             `json:"started_at"`
	Loss      string                `json:"loss"`
	Models    map[string]*RunResult `json:"models"`
	// Order lists the model names in the order they ran.
	Order     []string `json:"order"`
	BestModel string   `json:"best_model,omitempty"`
	DataInfo  DataInfo `json:"data_info"`

	lossFn loss.Loss
}

// Successful returns the successful entries in run order.
func (r *Results) Successful() []*RunResult {
	var out []*RunResult
	for _, name := range r.Order {
		if res := r.Models[name]; !res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the failed entries in run order.
func (r *Results) Failed() []*RunResult {
	var out []*RunResult
	for _, name := range r.Order {
		if res := r.Models[name]; res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

// Best returns the best entry, or nil when every model failed.
func (r *Results) Best() *RunResult {
	if r.BestModel == "" {
		return nil
	}
	return r.Models[r.BestModel]
}

// Failures maps each failed model to its error message.
func (r *Results) Failures() map[string]string {
	out := make(map[string]string)
	for _, res := range r.Failed() {
		out[res.ModelName] = res.Err
	}
	return out
}

// pickBest chooses among the successful entries by test loss. The first
// model in run order wins ties.
func (r *Results) pickBest() string {
	best := ""
	var bestLoss float64
	for _, res := range r.Successful() {
		if best == "" || loss.IsBetter(r.lossFn, res.Metrics.TestLoss, bestLoss) {
			best = res.ModelName
			bestLoss = res.Metrics.TestLoss
		}
	}
	return best
}
