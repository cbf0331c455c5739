// Package preprocessing は目的変数のスケール変換を提供する
package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/demandcast/core/model"
	"github.com/YuminosukeSato/demandcast/pkg/errors"
)

var _ model.TargetTransformer = Log1pTransformer{}

// Log1pTransformer は需要量を log(1+y) スケールで学習したモデル用の変換器
//
// 学習時に y' = log1p(y) で変換した目的変数を、推論時に expm1 で実スケールへ戻す。
// 状態を持たないため Fit は不要で、ゼロ値のまま使える。
//
// 使用例:
//
//	var tr preprocessing.Log1pTransformer
//	demand, err := tr.InverseTransform(logPreds)
type Log1pTransformer struct{}

// Transform は実スケールの値に log1p を適用した新しいスライスを返す
//
// log1p は y <= -1 で定義されないため、その場合は ValueError を返す。
func (Log1pTransformer) Transform(y []float64) ([]float64, error) {
	out := make([]float64, len(y))
	for i, v := range y {
		if v <= -1 {
			return nil, errors.NewValueError("Log1pTransformer.Transform",
				fmt.Sprintf("value %g at index %d is <= -1", v, i))
		}
		out[i] = math.Log1p(v)
	}
	return out, nil
}

// InverseTransform は expm1 を適用した新しいスライスを返す
//
// 小さな値でも精度を落とさないよう exp(y)-1 ではなく math.Expm1 を使う。
// 入力は変更しない。NaN は NaN のまま、非常に大きい値は +Inf になる。
func (Log1pTransformer) InverseTransform(y []float64) ([]float64, error) {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = math.Expm1(v)
	}
	return out, nil
}
