package dataset

import (
	"fmt"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// HoldoutSplit returns the index of the first test row for a time-ordered
// holdout of n rows: split = int(n * (1 - testFraction)). Rows [0, split) are
// used for training and [split, n) for testing; nothing is shuffled.
func HoldoutSplit(n int, testFraction float64) (int, error) {
	if !(testFraction > 0 && testFraction < 1) {
		return 0, errors.NewConfigurationError("test_split", "must be in the open interval (0, 1)", testFraction)
	}
	split := int(float64(n) * (1 - testFraction))
	if split >= n {
		return 0, errors.NewConfigurationError("test_split",
			fmt.Sprintf("test split of %d rows with fraction %g yields zero test rows", n, testFraction), testFraction)
	}
	if split <= 0 {
		return 0, errors.NewConfigurationError("test_split",
			fmt.Sprintf("test split of %d rows with fraction %g yields zero training rows", n, testFraction), testFraction)
	}
	return split, nil
}

// Holdout splits f into the leading train part and the trailing test part.
func Holdout(f *Frame, testFraction float64) (train, test *Frame, err error) {
	split, err := HoldoutSplit(f.Len(), testFraction)
	if err != nil {
		return nil, nil, err
	}
	if train, err = f.Slice(0, split); err != nil {
		return nil, nil, err
	}
	if test, err = f.Slice(split, f.Len()); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
