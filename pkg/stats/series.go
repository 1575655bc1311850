package stats

import "math"

// Series holds descriptive statistics over a set of samples in seconds.
type Series struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

// NewSeries computes statistics over values. It returns nil when values is
// empty. StdDev is the sample standard deviation and is 0 for a single value.
func NewSeries(values []float64) *Series {
	if len(values) == 0 {
		return nil
	}

	s := &Series{
		Count: len(values),
		Min:   values[0],
		Max:   values[0],
	}

	var sum float64
	for _, v := range values {
		sum += v

		if v < s.Min {
			s.Min = v
		}

		if v > s.Max {
			s.Max = v
		}
	}

	s.Mean = sum / float64(len(values))

	if len(values) > 1 {
		var sq float64
		for _, v := range values {
			d := v - s.Mean
			sq += d * d
		}

		s.StdDev = math.Sqrt(sq / float64(len(values)-1))
	}

	return s
}
