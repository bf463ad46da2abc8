package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	DateColumn string // Column parsed as a date and stored as Unix seconds (optional)
	DateLayout string // time layout for DateColumn (default: time.DateOnly, RFC3339 fallback)
	Delimiter  rune   // Field delimiter (default: ',')
}

// ReadCSVFile loads a frame from a CSV file with a header row.
func ReadCSVFile(path string, opts CSVOptions) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	return ReadCSV(file, opts)
}

// ReadCSV reads a CSV with a header row. Every column except DateColumn must
// be numeric; empty cells and "NA"/"NaN" become NaN.
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewModelError("dataset.ReadCSV", "empty csv", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv header")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.Trim(h, "\""))
	}

	dateIdx := -1
	if opts.DateColumn != "" {
		for i, h := range header {
			if h == opts.DateColumn {
				dateIdx = i
				break
			}
		}
		if dateIdx == -1 {
			return nil, errors.NewConfigurationError("date_column", "column not found in csv header", opts.DateColumn)
		}
	}

	var values []float64
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read csv row %d", rows+2)
		}
		for j, cell := range record {
			var v float64
			if j == dateIdx {
				v, err = parseDate(cell, opts.DateLayout)
			} else {
				v, err = parseCell(cell)
			}
			if err != nil {
				return nil, errors.NewValueError("dataset.ReadCSV",
					fmt.Sprintf("row %d, column %q: %v", rows+2, header[j], err))
			}
			values = append(values, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, errors.NewModelError("dataset.ReadCSV", "csv has a header but no rows", errors.ErrEmptyData)
	}

	return NewFrame(header, mat.NewDense(rows, len(header), values))
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

func parseDate(cell, layout string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if layout == "" {
		layout = time.DateOnly
	}
	t, err := time.Parse(layout, cell)
	if err != nil {
		var fallbackErr error
		if t, fallbackErr = time.Parse(time.RFC3339, cell); fallbackErr != nil {
			return 0, err
		}
	}
	return float64(t.Unix()), nil
}
