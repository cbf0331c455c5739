// Package metrics は実スケールの需要予測を評価する回帰指標を提供する
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/demandcast/pkg/errors"
)

// Summary は1回の評価で得られる回帰指標のまとめ
//
// R2 は yTrue に分散がない場合、MAPE は yTrue がすべて0の場合に NaN となる。
type Summary struct {
	N    int
	MSE  float64
	RMSE float64
	MAE  float64
	R2   float64
	MAPE float64 // パーセント
}

// Summarize は yTrue と yPred から全指標を一度に計算する
//
// 個別の関数と異なり、R² と MAPE が定義できない場合もエラーにせず NaN を返す。
func Summarize(yTrue, yPred *mat.VecDense) (*Summary, error) {
	n, err := checkPair("Summarize", yTrue, yPred)
	if err != nil {
		return nil, err
	}

	mean := mat.Sum(yTrue) / float64(n)

	var sse, sae, tss, ape float64
	nonZero := 0
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		d := t - p
		sse += d * d
		sae += math.Abs(d)
		tss += (t - mean) * (t - mean)
		if t != 0 {
			ape += math.Abs(d) / math.Abs(t)
			nonZero++
		}
	}

	s := &Summary{
		N:    n,
		MSE:  sse / float64(n),
		MAE:  sae / float64(n),
		R2:   math.NaN(),
		MAPE: math.NaN(),
	}
	s.RMSE = math.Sqrt(s.MSE)
	if tss != 0 {
		s.R2 = 1 - sse/tss
	}
	if nonZero > 0 {
		s.MAPE = ape / float64(nonZero) * 100
	}
	return s, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
// 予測と同じ単位（販売数量など）で誤差を読める
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := mat.Sum(yTrue) / float64(n)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		d := t - yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += d * d
	}
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// MAPE は平均絶対パーセンテージ誤差を計算する
// 実績が0の行は需要ゼロの日として除外する
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	validCount := 0
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		if t == 0 {
			continue
		}
		sum += math.Abs(t-yPred.AtVec(i)) / math.Abs(t)
		validCount++
	}
	if validCount == 0 {
		return 0, errors.NewValueError("MAPE", "all yTrue values are zero")
	}
	return sum / float64(validCount) * 100, nil
}

// checkPair は長さの一致と空でないことを検証し、サンプル数を返す
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}
