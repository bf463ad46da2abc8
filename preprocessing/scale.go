package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Scale は train だけで新しい StandardScaler を学習し、train と test の両方を変換する。
//
// 交差検証の各 fold と最終学習で毎回呼ばれるため、検証側の統計量が学習に漏れることはない。
// 返されたスケーラーは成果物（Bundle）に保存するためだけに使う。
func Scale(train, test mat.Matrix) (scaledTrain, scaledTest mat.Matrix, scaler *StandardScaler, err error) {
	_, cTrain := train.Dims()
	_, cTest := test.Dims()
	if cTrain != cTest {
		return nil, nil, nil, errors.NewDimensionError("preprocessing.Scale", cTrain, cTest, 1)
	}

	scaler = NewStandardScalerDefault()
	scaledTrain, err = scaler.FitTransform(train)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "scale train split")
	}
	scaledTest, err = scaler.Transform(test)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "scale test split")
	}
	return scaledTrain, scaledTest, scaler, nil
}
