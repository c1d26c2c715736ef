package summary

import "math"

// Histogram is a fixed-width binning of finite values over [Min, Max].
type Histogram struct {
	Min    float64
	Max    float64
	Width  float64
	Counts []int
}

// NewHistogram bins values into n equal-width bins spanning [min, max].
// A value equal to max lands in the last bin; values outside the range are
// dropped. When min == max, or the span cannot be split into n finite
// non-zero widths, every in-range value lands in a single bin.
func NewHistogram(values []float64, min, max float64, n int) Histogram {
	if n <= 0 {
		n = DefaultBins
	}
	span := max - min
	width := span / float64(n)
	if max <= min || math.IsInf(span, 0) || width == 0 {
		// Ranges too narrow or too wide to split evenly collapse to one bin.
		h := Histogram{Min: min, Max: max, Counts: make([]int, 1)}
		for _, v := range values {
			if v >= min && v <= max {
				h.Counts[0]++
			}
		}
		return h
	}

	h := Histogram{Min: min, Max: max, Width: width, Counts: make([]int, n)}
	for _, v := range values {
		if math.IsNaN(v) || v < min || v > max {
			continue
		}
		f := (v - min) / h.Width
		i := n - 1
		if f < float64(n) {
			i = int(f)
		}
		if i < 0 {
			i = 0
		}
		h.Counts[i]++
	}
	return h
}

// BinCenter returns the midpoint of bin i.
func (h Histogram) BinCenter(i int) float64 {
	if h.Width == 0 {
		return h.Min
	}
	return h.Min + (float64(i)+0.5)*h.Width
}

// Mode returns the index of the fullest bin (the first one on ties).
func (h Histogram) Mode() int {
	best := 0
	for i, c := range h.Counts {
		if c > h.Counts[best] {
			best = i
		}
	}
	return best
}

// Total returns the number of binned values.
func (h Histogram) Total() int {
	total := 0
	for _, c := range h.Counts {
		total += c
	}
	return total
}
