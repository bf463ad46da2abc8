// Package dataset は名前付き列を持つ数値表（Frame）と、時系列順のホールドアウト分割、
// 列名のサニタイズ、CSV 読み込みを提供します。
package dataset

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Frame is a numeric table with named columns. Rows are kept in insertion
// order, which is the time order once SortBy has been applied.
//
// Frame methods never modify the receiver; row and column selections return
// new frames backed by copied data.
type Frame struct {
	columns []string
	index   map[string]int
	data    *mat.Dense
}

// NewFrame builds a frame over data. Column names must be unique and match
// the width of data. data is not copied.
func NewFrame(columns []string, data *mat.Dense) (*Frame, error) {
	if data == nil {
		return nil, errors.NewValueError("dataset.NewFrame", "nil data")
	}
	_, c := data.Dims()
	if c != len(columns) {
		return nil, errors.NewDimensionError("dataset.NewFrame", len(columns), c, 1)
	}
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column name", name)
		}
		index[name] = i
	}
	return &Frame{
		columns: append([]string(nil), columns...),
		index:   index,
		data:    data,
	}, nil
}

// FromColumns builds a frame from column slices of equal length. It is
// mostly useful in tests and examples.
func FromColumns(columns []string, values [][]float64) (*Frame, error) {
	if len(columns) != len(values) {
		return nil, errors.NewDimensionError("dataset.FromColumns", len(columns), len(values), 1)
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, errors.NewModelError("dataset.FromColumns", "empty data", errors.ErrEmptyData)
	}
	n := len(values[0])
	data := mat.NewDense(n, len(values), nil)
	for j, col := range values {
		if len(col) != n {
			return nil, errors.NewDimensionError("dataset.FromColumns", n, len(col), 0)
		}
		data.SetCol(j, col)
	}
	return NewFrame(columns, data)
}

// Dims returns the number of rows and columns.
func (f *Frame) Dims() (rows, cols int) {
	return f.data.Dims()
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	r, _ := f.data.Dims()
	return r
}

// Columns returns a copy of the column names.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Matrix returns the underlying matrix. Callers must not modify it.
func (f *Frame) Matrix() *mat.Dense {
	return f.data
}

// Has reports whether the frame has a column with this name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Index returns the position of a column.
func (f *Frame) Index(name string) (int, error) {
	j, ok := f.index[name]
	if !ok {
		return -1, f.missing(name)
	}
	return j, nil
}

// Col returns a copy of a column's values.
func (f *Frame) Col(name string) ([]float64, error) {
	j, err := f.Index(name)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, j, f.data), nil
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(names []string) (*Frame, error) {
	if len(names) == 0 {
		return nil, errors.NewValidationError("columns", "at least one column must be selected", names)
	}
	r, _ := f.data.Dims()
	out := mat.NewDense(r, len(names), nil)
	col := make([]float64, r)
	for k, name := range names {
		j, err := f.Index(name)
		if err != nil {
			return nil, err
		}
		mat.Col(col, j, f.data)
		out.SetCol(k, col)
	}
	return NewFrame(names, out)
}

// Drop returns a frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]string, 0, len(f.columns))
	for _, c := range f.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	return f.Select(keep)
}

// XY splits the frame into a feature frame and an n×1 target matrix. Columns
// listed in exclude (e.g. a date column) are dropped from the features.
func (f *Frame) XY(target string, exclude ...string) (*Frame, *mat.Dense, error) {
	y, err := f.Col(target)
	if err != nil {
		return nil, nil, errors.NewConfigurationError("target_column", "column not found in data", target)
	}
	X, err := f.Drop(append([]string{target}, exclude...)...)
	if err != nil {
		return nil, nil, errors.NewConfigurationError("features", "no feature columns remain after removing target and excluded columns", f.columns)
	}
	return X, mat.NewDense(len(y), 1, y), nil
}

// Rows returns a frame with the given rows, in the given order.
func (f *Frame) Rows(idx []int) (*Frame, error) {
	if len(idx) == 0 {
		return nil, errors.NewModelError("dataset.Rows", "empty row selection", errors.ErrEmptyData)
	}
	r, c := f.data.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for k, i := range idx {
		if i < 0 || i >= r {
			return nil, errors.NewValueError("dataset.Rows", fmt.Sprintf("row index %d out of range [0, %d)", i, r))
		}
		out.SetRow(k, f.data.RawRowView(i))
	}
	return NewFrame(f.columns, out)
}

// Slice returns rows [start, end) as a new frame.
func (f *Frame) Slice(start, end int) (*Frame, error) {
	r, _ := f.data.Dims()
	if start < 0 || end > r || start >= end {
		return nil, errors.NewValueError("dataset.Slice", fmt.Sprintf("invalid range [%d, %d) for %d rows", start, end, r))
	}
	return NewFrame(f.columns, mat.DenseCopyOf(f.data.Slice(start, end, 0, len(f.columns))))
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	return &Frame{
		columns: f.Columns(),
		index:   f.cloneIndex(),
		data:    mat.DenseCopyOf(f.data),
	}
}

// Rename returns a frame whose columns are renamed through mapping. Columns
// missing from mapping keep their name.
func (f *Frame) Rename(mapping map[string]string) (*Frame, error) {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		if n, ok := mapping[c]; ok {
			names[i] = n
		} else {
			names[i] = c
		}
	}
	return NewFrame(names, f.data)
}

// SortBy returns a frame whose rows are stably sorted by column in
// ascending order.
func (f *Frame) SortBy(column string) (*Frame, error) {
	key, err := f.Col(column)
	if err != nil {
		return nil, err
	}
	order := make([]int, len(key))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return key[order[a]] < key[order[b]]
	})
	return f.Rows(order)
}

func (f *Frame) cloneIndex() map[string]int {
	out := make(map[string]int, len(f.index))
	for k, v := range f.index {
		out[k] = v
	}
	return out
}

func (f *Frame) missing(name string) error {
	return errors.NewValidationError("column", fmt.Sprintf("column %q not found (available: %v)", name, f.columns), name)
}
