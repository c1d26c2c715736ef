package summary

import (
	"errors"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNoValues is returned when there is nothing to summarize.
var ErrNoValues = errors.New("no values to summarize")

// DefaultBins is used when a caller asks for zero histogram bins.
const DefaultBins = 50

// Percentiles holds the tail and quartile points of an output distribution.
type Percentiles struct {
	P1  float64
	P5  float64
	P25 float64
	P75 float64
	P95 float64
	P99 float64
}

// Interval is a closed confidence interval.
type Interval struct {
	Lower float64
	Upper float64
}

// Summary describes the collected trial outputs of one run. Non-finite
// outputs (division by zero, unknown families upstream) are counted but
// excluded from every moment and quantile.
type Summary struct {
	Count       int
	Finite      int
	NaN         int
	PosInf      int
	NegInf      int
	Mean        float64
	StdDev      float64
	Variance    float64
	Min         float64
	Max         float64
	Median      float64
	Skewness    float64
	Kurtosis    float64
	Percentiles Percentiles
	MeanCI95    Interval
	Histogram   Histogram
}

// Summarize computes summary statistics and a histogram with the given
// number of bins (DefaultBins when bins <= 0).
func Summarize(values []float64, bins int) (*Summary, error) {
	if len(values) == 0 {
		return nil, ErrNoValues
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	s := &Summary{Count: len(values)}
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		switch {
		case math.IsNaN(v):
			s.NaN++
		case math.IsInf(v, 1):
			s.PosInf++
		case math.IsInf(v, -1):
			s.NegInf++
		default:
			finite = append(finite, v)
		}
	}
	s.Finite = len(finite)
	if s.Finite == 0 {
		nan := math.NaN()
		s.Mean, s.StdDev, s.Variance, s.Min, s.Max, s.Median = nan, nan, nan, nan, nan, nan
		s.Skewness, s.Kurtosis = nan, nan
		s.Percentiles = Percentiles{nan, nan, nan, nan, nan, nan}
		s.MeanCI95 = Interval{nan, nan}
		return s, nil
	}

	// Sorting once lets every quantile below work on already-ordered data.
	sort.Float64s(finite)
	data := stats.Float64Data(finite)

	var err error
	if s.Mean, err = data.Mean(); err != nil {
		return nil, err
	}
	s.Min, s.Max = finite[0], finite[len(finite)-1]
	if s.Median, err = data.Median(); err != nil {
		return nil, err
	}
	if len(finite) > 1 {
		if s.Variance, err = stats.SampleVariance(data); err != nil {
			return nil, err
		}
		s.StdDev = math.Sqrt(s.Variance)
	}
	s.Percentiles = percentiles(finite)

	if len(finite) > 3 && s.StdDev > 0 {
		s.Skewness = stat.Skew(finite, nil)
		s.Kurtosis = stat.ExKurtosis(finite, nil)
	}

	z := distuv.UnitNormal.Quantile(0.975)
	half := z * s.StdDev / math.Sqrt(float64(len(finite)))
	s.MeanCI95 = Interval{Lower: s.Mean - half, Upper: s.Mean + half}

	s.Histogram = NewHistogram(finite, s.Min, s.Max, bins)
	return s, nil
}

// percentiles reads the tail and quartile points from sorted values with
// linear interpolation, which is defined for any non-empty sample.
func percentiles(sorted []float64) Percentiles {
	q := func(p float64) float64 {
		return stat.Quantile(p, stat.LinInterp, sorted, nil)
	}
	return Percentiles{
		P1:  q(0.01),
		P5:  q(0.05),
		P25: q(0.25),
		P75: q(0.75),
		P95: q(0.95),
		P99: q(0.99),
	}
}
