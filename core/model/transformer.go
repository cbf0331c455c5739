package model

// TargetTransformer は目的変数のスケール変換のインターフェース
type TargetTransformer interface {
	// Transform は実スケールの値を学習スケールへ変換する
	Transform(y []float64) ([]float64, error)

	// InverseTransform は学習スケールの値を実スケールへ戻す
	InverseTransform(y []float64) ([]float64, error)
}
