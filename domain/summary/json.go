package summary

import (
	"encoding/json"
	"math"
)

// jsonFloat encodes NaN and ±Inf as null. Decoding null yields NaN.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *jsonFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = jsonFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

type percentilesJSON struct {
	P1  jsonFloat `json:"p1"`
	P5  jsonFloat `json:"p5"`
	P25 jsonFloat `json:"p25"`
	P75 jsonFloat `json:"p75"`
	P95 jsonFloat `json:"p95"`
	P99 jsonFloat `json:"p99"`
}

func (p Percentiles) MarshalJSON() ([]byte, error) {
	return json.Marshal(percentilesJSON{
		jsonFloat(p.P1), jsonFloat(p.P5), jsonFloat(p.P25),
		jsonFloat(p.P75), jsonFloat(p.P95), jsonFloat(p.P99),
	})
}

func (p *Percentiles) UnmarshalJSON(b []byte) error {
	var w percentilesJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = Percentiles{
		float64(w.P1), float64(w.P5), float64(w.P25),
		float64(w.P75), float64(w.P95), float64(w.P99),
	}
	return nil
}

type intervalJSON struct {
	Lower jsonFloat `json:"lower"`
	Upper jsonFloat `json:"upper"`
}

func (iv Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(intervalJSON{jsonFloat(iv.Lower), jsonFloat(iv.Upper)})
}

func (iv *Interval) UnmarshalJSON(b []byte) error {
	var w intervalJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*iv = Interval{float64(w.Lower), float64(w.Upper)}
	return nil
}

type histogramJSON struct {
	Min    jsonFloat `json:"min"`
	Max    jsonFloat `json:"max"`
	Width  jsonFloat `json:"width"`
	Counts []int     `json:"counts"`
}

func (h Histogram) MarshalJSON() ([]byte, error) {
	return json.Marshal(histogramJSON{jsonFloat(h.Min), jsonFloat(h.Max), jsonFloat(h.Width), h.Counts})
}

func (h *Histogram) UnmarshalJSON(b []byte) error {
	var w histogramJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*h = Histogram{float64(w.Min), float64(w.Max), float64(w.Width), w.Counts}
	return nil
}

type summaryJSON struct {
	Count       int         `json:"count"`
	Finite      int         `json:"finite"`
	NaN         int         `json:"nan"`
	PosInf      int         `json:"pos_inf"`
	NegInf      int         `json:"neg_inf"`
	Mean        jsonFloat   `json:"mean"`
	StdDev      jsonFloat   `json:"std_dev"`
	Variance    jsonFloat   `json:"variance"`
	Min         jsonFloat   `json:"min"`
	Max         jsonFloat   `json:"max"`
	Median      jsonFloat   `json:"median"`
	Skewness    jsonFloat   `json:"skewness"`
	Kurtosis    jsonFloat   `json:"excess_kurtosis"`
	Percentiles Percentiles `json:"percentiles"`
	MeanCI95    Interval    `json:"mean_ci95"`
	Histogram   Histogram   `json:"histogram"`
}

// MarshalJSON writes statistics that are undefined for the run (no finite
// outputs, overflow) as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{
		Count: s.Count, Finite: s.Finite, NaN: s.NaN, PosInf: s.PosInf, NegInf: s.NegInf,
		Mean: jsonFloat(s.Mean), StdDev: jsonFloat(s.StdDev), Variance: jsonFloat(s.Variance),
		Min: jsonFloat(s.Min), Max: jsonFloat(s.Max), Median: jsonFloat(s.Median),
		Skewness: jsonFloat(s.Skewness), Kurtosis: jsonFloat(s.Kurtosis),
		Percentiles: s.Percentiles, MeanCI95: s.MeanCI95, Histogram: s.Histogram,
	})
}

func (s *Summary) UnmarshalJSON(b []byte) error {
	var w summaryJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = Summary{
		Count: w.Count, Finite: w.Finite, NaN: w.NaN, PosInf: w.PosInf, NegInf: w.NegInf,
		Mean: float64(w.Mean), StdDev: float64(w.StdDev), Variance: float64(w.Variance),
		Min: float64(w.Min), Max: float64(w.Max), Median: float64(w.Median),
		Skewness: float64(w.Skewness), Kurtosis: float64(w.Kurtosis),
		Percentiles: w.Percentiles, MeanCI95: w.MeanCI95, Histogram: w.Histogram,
	}
	return nil
}
