package automl

import (
	"encoding/gob"
	"io"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/ensemble/lightgbm"
	"github.com/YuminosukeSato/automl/ensemble/xgboost"
	"github.com/YuminosukeSato/automl/linear"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/preprocessing"
)

// gob は interface フィールドの具象型を事前に知っている必要がある
func init() {
	gob.Register(&linear.Regressor{})
	gob.Register(&lightgbm.Regressor{})
	gob.Register(&xgboost.Regressor{})
}

// SelectorState is the persisted outcome of feature selection.
type SelectorState struct {
	Strategy string
	// Selected holds original column names in column order.
	Selected []string
}

// BundleMetadata describes how a bundle was produced.
type BundleMetadata struct {
	RunID      string
	ModelName  string
	Params     map[string]interface{}
	Metrics    Metrics
	Loss       string
	TrainedAt  time.Time
	CVScore    *float64
	ConfigHash string
}

// Bundle is everything needed to predict with the best model of a run.
type Bundle struct {
	Model    model.Estimator
	Scaler   *preprocessing.StandardScaler
	Selector *SelectorState // nil when no selection ran

	TargetColumn string
	// FeatureColumns are the original names of the model inputs, in order.
	// SanitizedColumns are the names the model was trained with.
	FeatureColumns   []string
	SanitizedColumns []string

	Metadata BundleMetadata
}

func newBundle(res *Results, p *plan) *Bundle {
	best := res.Best()
	b := &Bundle{
		Model:            best.Model,
		Scaler:           best.Scaler,
		TargetColumn:     p.opts.TargetColumn,
		FeatureColumns:   append([]string(nil), best.SelectedFeatures...),
		SanitizedColumns: append([]string(nil), best.SanitizedFeatures...),
		Metadata: BundleMetadata{
			RunID:      res.RunID,
			ModelName:  best.ModelName,
			Params:     model.CopyParams(best.Params),
			Metrics:    *best.Metrics,
			Loss:       res.Loss,
			TrainedAt:  time.Now(),
			CVScore:    best.CVScore,
			ConfigHash: p.opts.ConfigHash,
		},
	}
	if best.Selector != nil {
		if sr, err := best.Selector.Result(); err == nil {
			b.Selector = &SelectorState{
				Strategy: sr.Strategy,
				Selected: p.names.OriginalNames(sr.Selected),
			}
		}
	}
	return b
}

// Predict predicts df, which must contain FeatureColumns under their
// original names. Other columns, including the target, are ignored.
func (b *Bundle) Predict(df *dataset.Frame) (mat.Matrix, error) {
	if b.Model == nil || b.Scaler == nil {
		return nil, errors.NewNotFittedError("Bundle", "Predict")
	}
	X, err := df.Select(b.FeatureColumns)
	if err != nil {
		return nil, err
	}
	rename := make(map[string]string, len(b.FeatureColumns))
	for i, c := range b.FeatureColumns {
		rename[c] = b.SanitizedColumns[i]
	}
	if X, err = X.Rename(rename); err != nil {
		return nil, err
	}
	scaled, err := b.Scaler.Transform(X.Matrix())
	if err != nil {
		return nil, err
	}
	return b.Model.Predict(scaled)
}

// SaveBundle writes b with gob.
func SaveBundle(w io.Writer, b *Bundle) error {
	return model.SaveModelToWriter(b, w)
}

// LoadBundle reads a bundle written by SaveBundle.
func LoadBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := model.LoadModelFromReader(&b, r); err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveBundleFile writes b to path.
func SaveBundleFile(path string, b *Bundle) error {
	return model.SaveModel(b, path)
}

// LoadBundleFile reads a bundle from path.
func LoadBundleFile(path string) (*Bundle, error) {
	var b Bundle
	if err := model.LoadModel(&b, path); err != nil {
		return nil, err
	}
	return &b, nil
}
