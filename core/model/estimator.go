package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う (n_samples × 1)
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェース
type ParameterGetter interface {
	// GetParams はモデルのハイパーパラメータのコピーを返す
	GetParams() map[string]interface{}
}

// ParameterSetter はハイパーパラメータを変更可能なモデルのインターフェース
type ParameterSetter interface {
	// SetParams はハイパーパラメータを設定する。未知のキーはエラーになる
	SetParams(params map[string]interface{}) error
}

// Estimator は探索エンジンが扱う回帰モデルの共通インターフェース。
// 特徴量選択器とチューナーは Clone と SetParams だけでモデルを複製・変更する。
type Estimator interface {
	Fitter
	Predictor
	ParameterGetter
	ParameterSetter

	// Clone は同じハイパーパラメータを持つ未学習の新しいインスタンスを返す
	Clone() Estimator
}

// FeatureNamer は特徴量名を保持するモデルのインターフェース。
// 木モデルのバックエンドは英数字とアンダースコア以外を含む名前を拒否する。
type FeatureNamer interface {
	SetFeatureNames(names []string) error
	FeatureNames() []string
}
