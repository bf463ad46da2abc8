package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Distribution is a sampling source for random search.
type Distribution interface {
	Sample(r *rand.Rand) interface{}
}

// Uniform samples a float uniformly from [Low, High).
type Uniform struct{ Low, High float64 }

func (d Uniform) Sample(r *rand.Rand) interface{} {
	return d.Low + r.Float64()*(d.High-d.Low)
}

// LogUniform samples a float whose logarithm is uniform on
// [log Low, log High). Both bounds must be positive.
type LogUniform struct{ Low, High float64 }

func (d LogUniform) Sample(r *rand.Rand) interface{} {
	lo, hi := math.Log(d.Low), math.Log(d.High)
	return math.Exp(lo + r.Float64()*(hi-lo))
}

// IntUniform samples an int uniformly from [Low, High] inclusive.
type IntUniform struct{ Low, High int }

func (d IntUniform) Sample(r *rand.Rand) interface{} {
	return d.Low + r.IntN(d.High-d.Low+1)
}

// Choice samples one of Values uniformly.
type Choice struct{ Values []interface{} }

func (d Choice) Sample(r *rand.Rand) interface{} {
	return d.Values[r.IntN(len(d.Values))]
}

// Dimension is one hyperparameter axis. Exactly one of Values, IntRange,
// FloatRange and Distribution is set.
type Dimension struct {
	Name         string
	Values       []interface{}
	IntRange     *[2]int
	FloatRange   *[2]float64
	LogScale     bool
	Distribution Distribution
}

// IsList reports whether the dimension is a finite list of points.
func (d Dimension) IsList() bool {
	return d.IntRange == nil && d.FloatRange == nil && d.Distribution == nil
}

func (d Dimension) validate() error {
	switch {
	case d.Distribution != nil:
		return nil
	case d.IntRange != nil:
		if d.IntRange[0] > d.IntRange[1] {
			return errors.NewValidationError(d.Name, "int range low must not exceed high", *d.IntRange)
		}
	case d.FloatRange != nil:
		lo, hi := d.FloatRange[0], d.FloatRange[1]
		if lo > hi {
			return errors.NewValidationError(d.Name, "float range low must not exceed high", *d.FloatRange)
		}
		if d.LogScale && lo <= 0 {
			return errors.NewValidationError(d.Name, "log-scale range must be positive", *d.FloatRange)
		}
	default:
		if len(d.Values) == 0 {
			return errors.NewValidationError(d.Name, "no candidate values", d.Values)
		}
	}
	return nil
}

// first returns the initial value of the dimension used by line search.
func (d Dimension) first() interface{} {
	switch {
	case d.Distribution != nil:
		return nil
	case d.IntRange != nil:
		return d.IntRange[0]
	case d.FloatRange != nil:
		return d.FloatRange[0]
	default:
		return d.Values[0]
	}
}

func (d Dimension) sample(r *rand.Rand) interface{} {
	switch {
	case d.Distribution != nil:
		return d.Distribution.Sample(r)
	case d.IntRange != nil:
		return IntUniform{Low: d.IntRange[0], High: d.IntRange[1]}.Sample(r)
	case d.FloatRange != nil:
		if d.LogScale {
			return LogUniform{Low: d.FloatRange[0], High: d.FloatRange[1]}.Sample(r)
		}
		return Uniform{Low: d.FloatRange[0], High: d.FloatRange[1]}.Sample(r)
	default:
		return d.Values[r.IntN(len(d.Values))]
	}
}

// ParamSpace is an ordered set of hyperparameter dimensions.
//
//	space := model_selection.NewParamSpace().
//		Add("n_estimators", 100, 200).
//		AddFloatRange("learning_rate", 0.01, 0.3, true)
type ParamSpace struct {
	Dimensions []Dimension
}

// NewParamSpace returns an empty space.
func NewParamSpace() *ParamSpace {
	return &ParamSpace{}
}

// Add appends a list dimension.
func (s *ParamSpace) Add(name string, values ...interface{}) *ParamSpace {
	s.Dimensions = append(s.Dimensions, Dimension{Name: name, Values: values})
	return s
}

// AddIntRange appends an inclusive integer range.
func (s *ParamSpace) AddIntRange(name string, low, high int) *ParamSpace {
	s.Dimensions = append(s.Dimensions, Dimension{Name: name, IntRange: &[2]int{low, high}})
	return s
}

// AddFloatRange appends a float range, sampled log-uniformly when logScale.
func (s *ParamSpace) AddFloatRange(name string, low, high float64, logScale bool) *ParamSpace {
	s.Dimensions = append(s.Dimensions, Dimension{Name: name, FloatRange: &[2]float64{low, high}, LogScale: logScale})
	return s
}

// AddDistribution appends a dimension sampled from dist.
func (s *ParamSpace) AddDistribution(name string, dist Distribution) *ParamSpace {
	s.Dimensions = append(s.Dimensions, Dimension{Name: name, Distribution: dist})
	return s
}

// Names returns the dimension names in order.
func (s *ParamSpace) Names() []string {
	names := make([]string, len(s.Dimensions))
	for i, d := range s.Dimensions {
		names[i] = d.Name
	}
	return names
}

// Validate checks every dimension and rejects duplicate names.
func (s *ParamSpace) Validate() error {
	seen := make(map[string]bool, len(s.Dimensions))
	for _, d := range s.Dimensions {
		if seen[d.Name] {
			return errors.NewValidationError(d.Name, "duplicate dimension", d.Name)
		}
		seen[d.Name] = true
		if err := d.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Enumerable reports whether every dimension is a point list, i.e. whether
// Grid is defined.
func (s *ParamSpace) Enumerable() bool {
	for _, d := range s.Dimensions {
		if !d.IsList() {
			return false
		}
	}
	return true
}

// Size returns the number of grid points, or 0 if the space is not enumerable.
// An empty space has one point: the estimator defaults.
func (s *ParamSpace) Size() int {
	if !s.Enumerable() {
		return 0
	}
	n := 1
	for _, d := range s.Dimensions {
		n *= len(d.Values)
	}
	return n
}

// Grid enumerates the Cartesian product of the space. The last dimension
// varies fastest.
func (s *ParamSpace) Grid() ([]map[string]interface{}, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !s.Enumerable() {
		return nil, errors.NewValidationError("param_space",
			"grid search needs point-list dimensions only", fmt.Sprint(s.Names()))
	}

	size := s.Size()
	out := make([]map[string]interface{}, 0, size)
	counters := make([]int, len(s.Dimensions))
	for k := 0; k < size; k++ {
		params := make(map[string]interface{}, len(s.Dimensions))
		for i, d := range s.Dimensions {
			params[d.Name] = d.Values[counters[i]]
		}
		out = append(out, params)

		for i := len(counters) - 1; i >= 0; i-- {
			counters[i]++
			if counters[i] < len(s.Dimensions[i].Values) {
				break
			}
			counters[i] = 0
		}
	}
	return out, nil
}

// Initial returns the first value of every dimension. Distribution
// dimensions are left out so the estimator default applies.
func (s *ParamSpace) Initial() map[string]interface{} {
	params := make(map[string]interface{}, len(s.Dimensions))
	for _, d := range s.Dimensions {
		if v := d.first(); v != nil {
			params[d.Name] = v
		}
	}
	return params
}

// Sample draws one value per dimension, in dimension order.
func (s *ParamSpace) Sample(r *rand.Rand) map[string]interface{} {
	params := make(map[string]interface{}, len(s.Dimensions))
	for _, d := range s.Dimensions {
		params[d.Name] = d.sample(r)
	}
	return params
}
