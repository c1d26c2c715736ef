package summary

import (
	"math"
	"sort"
)

// KSResult is the outcome of a one-sample Kolmogorov-Smirnov test.
type KSResult struct {
	N      int     `json:"n"`
	D      float64 `json:"d"`
	PValue float64 `json:"p_value"`
}

// Reject reports whether the null hypothesis is rejected at level alpha.
func (r KSResult) Reject(alpha float64) bool {
	return r.PValue < alpha
}

// KSUniform tests values against Uniform(0,1).
func KSUniform(values []float64) KSResult {
	return KSAgainst(values, func(x float64) float64 {
		switch {
		case x <= 0:
			return 0
		case x >= 1:
			return 1
		default:
			return x
		}
	})
}

// KSAgainst tests values against the continuous distribution with the given
// CDF. The p-value uses the asymptotic Kolmogorov distribution with the
// Stephens small-sample correction.
func KSAgainst(values []float64, cdf func(float64) float64) KSResult {
	n := len(values)
	if n == 0 {
		return KSResult{PValue: 1}
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	fn := float64(n)
	d := 0.0
	for i, x := range sorted {
		f := cdf(x)
		if hi := float64(i+1)/fn - f; hi > d {
			d = hi
		}
		if lo := f - float64(i)/fn; lo > d {
			d = lo
		}
	}

	sqrtN := math.Sqrt(fn)
	lambda := (sqrtN + 0.12 + 0.11/sqrtN) * d
	return KSResult{N: n, D: d, PValue: kolmogorovQ(lambda)}
}

// kolmogorovQ is the survival function of the Kolmogorov distribution.
func kolmogorovQ(lambda float64) float64 {
	if lambda < 1e-3 {
		return 1
	}
	sum := 0.0
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(-2*float64(j*j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	q := 2 * sum
	switch {
	case q < 0:
		return 0
	case q > 1:
		return 1
	}
	return q
}
