package features

import (
	"math"
)

// Numeric helpers shared by all ratio- and statistics-style features.
// Every division in this package goes through safeRatio or zScore so the
// zero-denominator convention cannot diverge between features.

// safeRatio returns num/den, or 0 when den is 0.
func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev returns the sample standard deviation (n-1 denominator), 0 when
// fewer than two samples exist.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// zScore standardizes x against a historical mean and standard deviation,
// 0 when the deviation is 0.
func zScore(x, m, sd float64) float64 {
	if sd == 0 {
		return 0
	}
	return (x - m) / sd
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
