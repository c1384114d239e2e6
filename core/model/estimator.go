package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う（n×1）
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ProbaPredictor はクラス確率を予測できるモデルのインターフェース
type ProbaPredictor interface {
	// PredictProba は各クラスの確率を返す（n×クラス数、列はクラス番号順）
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は教師あり学習モデルの基本インターフェース
type Estimator interface {
	Fitter
	Predictor
}

// Classifier は分類器のインターフェース
type Classifier interface {
	Estimator
	ProbaPredictor
}

// FeatureImportancer は学習後に特徴量重要度を公開するモデル
type FeatureImportancer interface {
	// GetFeatureImportances は列順の重要度を返す（合計1）
	GetFeatureImportances() []float64
}

// ParameterGetter はハイパーパラメータを公開するモデル
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter はハイパーパラメータを変更できるモデル
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}

// Tunable はグリッドサーチで扱えるモデル。
// Clone は同じハイパーパラメータを持つ未学習のインスタンスを返す。
type Tunable interface {
	Estimator
	ParameterGetter
	ParameterSetter
	Clone() Tunable
}
