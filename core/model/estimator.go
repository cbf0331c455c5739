package model

import "gonum.org/v1/gonum/mat"

// Predictor は予測可能なモデルのインターフェース
//
// 返り値は n_samples × n_outputs の行列。回帰モデルでは n_outputs == 1。
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// PredictorFunc は関数を Predictor として扱うためのアダプタ
type PredictorFunc func(X mat.Matrix) (mat.Matrix, error)

// Predict は f(X) を呼び出す
func (f PredictorFunc) Predict(X mat.Matrix) (mat.Matrix, error) {
	return f(X)
}

// FeatureNamer は学習時の特徴量名を公開するモデルのインターフェース
type FeatureNamer interface {
	// FeatureNames は学習時の特徴量名を学習時の順序で返す
	FeatureNames() []string
}
