package utils

import (
	"math"
	"strconv"

	"golang.org/x/exp/constraints"
)

// Tolerance used when comparing monetary values
const Tolerance = 1e-4

func ApproxEqual[T constraints.Float](a, b, tolerance T) bool {
	return T(math.Abs(float64(a-b))) <= tolerance
}

// FormatAmount renders a value with 2 decimals
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatLiteral renders a value with as few digits as needed
func FormatLiteral(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
