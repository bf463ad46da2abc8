// Package model_selection は時系列を考慮した交差検証、パラメータ空間、
// およびグリッド・ライン・ランダムの各ハイパーパラメータ探索を提供します。
//
// 3 つの探索はすべて CrossValScore を通して候補を評価します。
package model_selection

import (
	"fmt"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Fold is one (train, validation) index pair.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// Splitter produces CV folds for n samples.
type Splitter interface {
	Split(nSamples int) ([]Fold, error)
	NSplits() int
}

// TimeSeriesSplit is an expanding-window splitter. Every fold trains on rows
// strictly before its validation window, and the validation windows tile the
// tail of the data in time order.
type TimeSeriesSplit struct {
	Splits int
	// MaxTrainSize caps the training window (0 = unlimited).
	MaxTrainSize int
	// TestSize is the validation window length (0 = n/(Splits+1)).
	TestSize int
	// Gap rows are left out between train and validation.
	Gap int
}

// NewTimeSeriesSplit returns an expanding-window splitter with nSplits folds.
func NewTimeSeriesSplit(nSplits int) *TimeSeriesSplit {
	return &TimeSeriesSplit{Splits: nSplits}
}

// NSplits implements Splitter.
func (s *TimeSeriesSplit) NSplits() int {
	return s.Splits
}

// Split implements Splitter.
func (s *TimeSeriesSplit) Split(nSamples int) ([]Fold, error) {
	if s.Splits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", s.Splits)
	}
	if s.Gap < 0 || s.MaxTrainSize < 0 || s.TestSize < 0 {
		return nil, errors.NewValidationError("time_series_split", "sizes must be non-negative",
			fmt.Sprintf("gap=%d max_train_size=%d test_size=%d", s.Gap, s.MaxTrainSize, s.TestSize))
	}
	nFolds := s.Splits + 1
	if nFolds > nSamples {
		return nil, errors.NewValidationError("n_splits",
			fmt.Sprintf("cannot have number of folds=%d greater than the number of samples=%d", nFolds, nSamples), s.Splits)
	}
	testSize := s.TestSize
	if testSize == 0 {
		testSize = nSamples / nFolds
	}
	if nSamples-s.Gap-testSize*s.Splits <= 0 {
		return nil, errors.NewValidationError("n_splits",
			fmt.Sprintf("too many splits=%d for number of samples=%d with test_size=%d and gap=%d",
				s.Splits, nSamples, testSize, s.Gap), s.Splits)
	}

	folds := make([]Fold, 0, s.Splits)
	for start := nSamples - s.Splits*testSize; start < nSamples; start += testSize {
		trainEnd := start - s.Gap
		trainStart := 0
		if s.MaxTrainSize > 0 && s.MaxTrainSize < trainEnd {
			trainStart = trainEnd - s.MaxTrainSize
		}
		folds = append(folds, Fold{
			TrainIndices: indexRange(trainStart, trainEnd),
			TestIndices:  indexRange(start, start+testSize),
		})
	}
	return folds, nil
}

func indexRange(start, end int) []int {
	idx := make([]int, end-start)
	for i := range idx {
		idx[i] = start + i
	}
	return idx
}
