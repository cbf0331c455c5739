package errors

import (
	"math"
)

// CheckFinite checks if values contain NaN or Inf
// and returns an error naming the first offending position.
func CheckFinite(operation string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, []float64{v}, i, "")
		}
	}
	return nil
}

// CheckMatrix checks all values in a matrix for NaN or Inf.
// columns names the matrix columns for the error message and may be nil.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int, columns []string) error {
	for i := 0; i < rows; i++ {
		var unstable []float64
		firstCol := -1
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				if firstCol < 0 {
					firstCol = j
				}
				unstable = append(unstable, v)
				// Limit the number of collected values for error message
				if len(unstable) >= 10 {
					break
				}
			}
		}
		if firstCol >= 0 {
			name := ""
			if firstCol < len(columns) {
				name = columns[firstCol]
			}
			return NewNumericalInstabilityError(operation, unstable, i, name)
		}
	}
	return nil
}
