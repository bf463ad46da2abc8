// Command automl searches for the best regression model of a time-ordered
// CSV dataset.
//
//	automl models
//	automl run --data sales.csv --target price --date-column date --tuning grid
//	automl run --config run.yaml
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
