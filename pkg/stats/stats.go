package stats

import (
	"sort"

	"github.com/ethpandaops/provisionoor/pkg/trial"
)

// DefaultOutlierStdDevs is the number of standard deviations above the mean
// beyond which an available time is reported as an outlier.
const DefaultOutlierStdDevs = 2.0

// Summary is the result of analysing a Dataset.
type Summary struct {
	TotalRuns      int `json:"total_runs"`
	SuccessfulRuns int `json:"successful_runs"`
	FailedRuns     int `json:"failed_runs"`

	Available  *Series `json:"available,omitempty"`
	PostCreate *Series `json:"postcreate,omitempty"`

	Fastest *FastestTrial `json:"fastest,omitempty"`

	// Combos is nil unless the dataset spans more than one
	// devcontainer:machine combination.
	Combos []ComboStats `json:"combos,omitempty"`

	OutlierThreshold float64   `json:"outlier_threshold,omitempty"`
	Outliers         []Outlier `json:"outliers"`
}

// FastestTrial identifies the trial with the lowest available time.
type FastestTrial struct {
	Iteration    string  `json:"iteration"`
	DevContainer string  `json:"devcontainer"`
	Machine      string  `json:"machine"`
	Time         float64 `json:"time"`
}

// ComboStats holds available-time statistics for one devcontainer:machine
// combination.
type ComboStats struct {
	Key          string `json:"combo"`
	DevContainer string `json:"devcontainer"`
	Machine      string `json:"machine"`
	Series
}

// Outlier is a trial whose available time exceeds the outlier threshold.
type Outlier struct {
	Iteration     string  `json:"iteration"`
	Time          float64 `json:"time"`
	Configuration string  `json:"configuration"`
}

// Options controls the analysis.
type Options struct {
	// OutlierStdDevs is the multiplier k in mean + k*stddev. Zero selects
	// DefaultOutlierStdDevs.
	OutlierStdDevs float64
}

// Compute analyses ds in a single pass over its trials.
func Compute(ds *trial.Dataset, opts Options) *Summary {
	var (
		available  = make([]float64, 0, len(ds.Trials))
		postCreate = make([]float64, 0, len(ds.Trials))
		combos     = newComboAccumulator()
		allCombos  = make(map[string]struct{}, 4)
		fastest    *FastestTrial
	)

	for i := range ds.Trials {
		t := &ds.Trials[i]

		dev, machine := ds.ComboLabels(t)
		allCombos[comboKey(dev, machine)] = struct{}{}

		if v, ok := t.Available(); ok {
			available = append(available, v)
			combos.add(dev, machine, v)

			if fastest == nil || v < fastest.Time {
				fastest = &FastestTrial{
					Iteration:    t.Iteration,
					DevContainer: t.DevContainer,
					Machine:      t.Machine,
					Time:         v,
				}
			}
		}

		if v, ok := t.PostCreate(); ok {
			postCreate = append(postCreate, v)
		}
	}

	s := &Summary{
		TotalRuns:      len(ds.Trials),
		SuccessfulRuns: len(available),
		FailedRuns:     len(ds.Trials) - len(available),
		Available:      NewSeries(available),
		PostCreate:     NewSeries(postCreate),
		Fastest:        fastest,
	}

	if len(allCombos) > 1 {
		s.Combos = combos.stats()
	}

	k := opts.OutlierStdDevs
	if k == 0 {
		k = DefaultOutlierStdDevs
	}

	s.OutlierThreshold, s.Outliers = DetectOutliers(ds.Trials, s.Available, k)

	return s
}

// DetectOutliers returns the threshold mean + k*stddev and every trial whose
// available time is strictly above it, in input order. With no available
// series there is no threshold and no outliers.
func DetectOutliers(
	trials []trial.Trial,
	available *Series,
	k float64,
) (float64, []Outlier) {
	outliers := make([]Outlier, 0)

	if available == nil {
		return 0, outliers
	}

	threshold := available.Mean + k*available.StdDev

	for i := range trials {
		t := &trials[i]

		v, ok := t.Available()
		if !ok || v <= threshold {
			continue
		}

		outliers = append(outliers, Outlier{
			Iteration:     t.Iteration,
			Time:          v,
			Configuration: t.Configuration(),
		})
	}

	return threshold, outliers
}

// FastestCombo returns the combination with the lowest mean, preferring the
// earliest on ties. It returns nil when combos is empty.
func FastestCombo(combos []ComboStats) *ComboStats {
	var best *ComboStats

	for i := range combos {
		if best == nil || combos[i].Mean < best.Mean {
			best = &combos[i]
		}
	}

	return best
}

// MostVariableCombo returns the combination with the highest standard
// deviation, preferring the earliest on ties. It returns nil when combos is
// empty.
func MostVariableCombo(combos []ComboStats) *ComboStats {
	var best *ComboStats

	for i := range combos {
		if best == nil || combos[i].StdDev > best.StdDev {
			best = &combos[i]
		}
	}

	return best
}

// SortedByMean returns a copy of combos ordered by ascending mean. Equal
// means keep their original order.
func SortedByMean(combos []ComboStats) []ComboStats {
	sorted := make([]ComboStats, len(combos))
	copy(sorted, combos)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Mean < sorted[j].Mean
	})

	return sorted
}

func comboKey(devcontainer, machine string) string {
	return devcontainer + ":" + machine
}

// comboAccumulator collects available times per combination, remembering
// the order in which combinations first produced a sample.
type comboAccumulator struct {
	order  []string
	labels map[string][2]string
	times  map[string][]float64
}

func newComboAccumulator() *comboAccumulator {
	return &comboAccumulator{
		labels: make(map[string][2]string, 4),
		times:  make(map[string][]float64, 4),
	}
}

func (c *comboAccumulator) add(devcontainer, machine string, v float64) {
	key := comboKey(devcontainer, machine)

	if _, ok := c.times[key]; !ok {
		c.order = append(c.order, key)
		c.labels[key] = [2]string{devcontainer, machine}
	}

	c.times[key] = append(c.times[key], v)
}

func (c *comboAccumulator) stats() []ComboStats {
	out := make([]ComboStats, 0, len(c.order))

	for _, key := range c.order {
		series := NewSeries(c.times[key])
		if series == nil {
			continue
		}

		out = append(out, ComboStats{
			Key:          key,
			DevContainer: c.labels[key][0],
			Machine:      c.labels[key][1],
			Series:       *series,
		})
	}

	return out
}
