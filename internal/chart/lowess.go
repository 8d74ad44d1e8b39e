package chart

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Lowess returns locally weighted linear fits of y at every x. Each fit uses
// the ceil(frac*n) nearest neighbours with tricube weights; iterations extra
// passes down-weight outliers with bisquare weights on the residuals.
func Lowess(x, y []float64, frac float64, iterations int) ([]float64, error) {
	n := len(x)
	if n != len(y) {
		return nil, errors.New("lowess: x and y differ in length")
	}
	if frac <= 0 || frac > 1 {
		return nil, errors.New("lowess: frac must be in (0, 1]")
	}
	if n == 0 {
		return nil, nil
	}
	if n == 1 {
		return []float64{y[0]}, nil
	}

	k := int(math.Ceil(frac * float64(n)))
	k = min(max(k, 2), n)

	robust := make([]float64, n)
	for i := range robust {
		robust[i] = 1
	}
	fitted := make([]float64, n)
	weights := make([]float64, n)
	dist := make([]float64, n)

	for iter := 0; iter <= iterations; iter++ {
		for i := range x {
			fitted[i] = localFit(x, y, i, k, robust, weights, dist)
		}
		if iter == iterations {
			break
		}
		residuals := make([]float64, n)
		for i := range y {
			residuals[i] = math.Abs(y[i] - fitted[i])
		}
		s := median(residuals)
		if s <= 1e-7*meanAbs(y) {
			break
		}
		for i, r := range residuals {
			robust[i] = bisquare(r / (6 * s))
		}
	}
	return fitted, nil
}

func localFit(x, y []float64, i, k int, robust, weights, dist []float64) float64 {
	for j := range x {
		dist[j] = math.Abs(x[j] - x[i])
	}
	sorted := append([]float64(nil), dist...)
	sort.Float64s(sorted)
	h := sorted[k-1]

	total := 0.0
	for j := range x {
		switch {
		case h == 0:
			if dist[j] == 0 {
				weights[j] = robust[j]
			} else {
				weights[j] = 0
			}
		default:
			weights[j] = tricube(dist[j]/h) * robust[j]
		}
		total += weights[j]
	}
	if total == 0 {
		return y[i]
	}

	// Normalise to a peak weight of 1.
	peak := 0.0
	for _, w := range weights {
		peak = max(peak, w)
	}
	for j := range weights {
		weights[j] /= peak
	}

	alpha, beta := stat.LinearRegression(x, y, weights, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(alpha, 0) || math.IsInf(beta, 0) {
		return stat.Mean(y, weights)
	}
	return alpha + beta*x[i]
}

func tricube(u float64) float64 {
	if u >= 1 {
		return 0
	}
	v := 1 - u*u*u
	return v * v * v
}

func bisquare(u float64) float64 {
	if u >= 1 {
		return 0
	}
	v := 1 - u*u
	return v * v
}

func meanAbs(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += math.Abs(v)
	}
	return total / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
