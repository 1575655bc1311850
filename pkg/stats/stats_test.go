package stats

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/provisionoor/pkg/trial"
)

func mustDataset(t *testing.T, rows ...string) *trial.Dataset {
	t.Helper()

	content := "Iteration,DevContainer,Machine,Available_Time_Sec," +
		"PostCreate_Time_Sec,Poll_Interval_Sec,Timestamp\n" +
		strings.Join(rows, "\n") + "\n"

	ds, err := trial.Read(strings.NewReader(content))
	require.NoError(t, err)

	return ds
}

func TestNewSeries(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, NewSeries(nil))
	})

	t.Run("single sample has zero stddev", func(t *testing.T) {
		s := NewSeries([]float64{7.5})
		require.NotNil(t, s)
		assert.Equal(t, 1, s.Count)
		assert.Equal(t, 7.5, s.Mean)
		assert.Equal(t, 7.5, s.Min)
		assert.Equal(t, 7.5, s.Max)
		assert.Equal(t, 0.0, s.StdDev)
	})

	t.Run("sample stddev", func(t *testing.T) {
		s := NewSeries([]float64{2, 4, 4, 4, 5, 5, 7, 9})
		require.NotNil(t, s)
		assert.InDelta(t, 5.0, s.Mean, 1e-9)
		assert.Equal(t, 2.0, s.Min)
		assert.Equal(t, 9.0, s.Max)
		assert.InDelta(t, math.Sqrt(32.0/7.0), s.StdDev, 1e-9)
	})
}

func TestCompute(t *testing.T) {
	t.Run("counts and series", func(t *testing.T) {
		ds := mustDataset(t,
			"1,A,M,10,N/A,5,t1",
			"2,A,M,12,5,5,t2",
			"3,A,M,50,6,5,t3",
		)

		s := Compute(ds, Options{})

		assert.Equal(t, 3, s.TotalRuns)
		assert.Equal(t, 3, s.SuccessfulRuns)
		assert.Equal(t, 0, s.FailedRuns)

		require.NotNil(t, s.Available)
		assert.InDelta(t, 24.0, s.Available.Mean, 1e-9)
		assert.Equal(t, 10.0, s.Available.Min)
		assert.Equal(t, 50.0, s.Available.Max)
		assert.InDelta(t, math.Sqrt(508), s.Available.StdDev, 1e-9)

		require.NotNil(t, s.PostCreate)
		assert.Equal(t, 2, s.PostCreate.Count)
		assert.InDelta(t, 5.5, s.PostCreate.Mean, 1e-9)

		// mean + 2*stddev is about 69.08, so 50 is within range.
		assert.InDelta(t, 24+2*math.Sqrt(508), s.OutlierThreshold, 1e-9)
		assert.Empty(t, s.Outliers)

		require.NotNil(t, s.Fastest)
		assert.Equal(t, "1", s.Fastest.Iteration)
		assert.Equal(t, 10.0, s.Fastest.Time)

		assert.Nil(t, s.Combos)
	})

	t.Run("missing available times are failures", func(t *testing.T) {
		ds := mustDataset(t,
			"1,A,M,N/A,3,5,t1",
			"2,A,M,,4,5,t2",
			"3,A,M,bogus,5,5,t3",
			"4,A,M,20,6,5,t4",
		)

		s := Compute(ds, Options{})

		assert.Equal(t, 4, s.TotalRuns)
		assert.Equal(t, 1, s.SuccessfulRuns)
		assert.Equal(t, 3, s.FailedRuns)
		assert.Equal(t, s.TotalRuns, s.SuccessfulRuns+s.FailedRuns)

		require.NotNil(t, s.Available)
		assert.Equal(t, 1, s.Available.Count)
		assert.Equal(t, 20.0, s.Available.Mean)
		assert.Equal(t, 0.0, s.Available.StdDev)

		require.NotNil(t, s.PostCreate)
		assert.Equal(t, 4, s.PostCreate.Count)
	})

	t.Run("no samples", func(t *testing.T) {
		ds := mustDataset(t,
			"1,A,M,N/A,N/A,5,t1",
			"2,A,M,N/A,,5,t2",
		)

		s := Compute(ds, Options{})

		assert.Equal(t, 2, s.FailedRuns)
		assert.Nil(t, s.Available)
		assert.Nil(t, s.PostCreate)
		assert.Nil(t, s.Fastest)
		assert.Empty(t, s.Outliers)
	})

	t.Run("fastest keeps earliest on tie", func(t *testing.T) {
		ds := mustDataset(t,
			"1,A,M,15,1,5,t1",
			"2,B,M,9,1,5,t2",
			"3,C,M,9,1,5,t3",
		)

		s := Compute(ds, Options{})

		require.NotNil(t, s.Fastest)
		assert.Equal(t, "2", s.Fastest.Iteration)
		assert.Equal(t, "B", s.Fastest.DevContainer)
	})

	t.Run("outlier detected", func(t *testing.T) {
		rows := make([]string, 0, 11)
		for i := 1; i <= 10; i++ {
			rows = append(rows, strings.Join([]string{
				strconv.Itoa(i), "A", "M", "10", "1", "5", "ts",
			}, ","))
		}

		rows = append(rows, "11,A,M,100,1,5,ts")

		s := Compute(mustDataset(t, rows...), Options{})

		require.Len(t, s.Outliers, 1)
		assert.Equal(t, "11", s.Outliers[0].Iteration)
		assert.Equal(t, 100.0, s.Outliers[0].Time)
		assert.Equal(t, "A on M", s.Outliers[0].Configuration)
	})

	t.Run("custom multiplier", func(t *testing.T) {
		ds := mustDataset(t,
			"1,A,M,10,1,5,t1",
			"2,A,M,12,1,5,t2",
			"3,A,M,50,1,5,t3",
		)

		s := Compute(ds, Options{OutlierStdDevs: 1})

		require.Len(t, s.Outliers, 1)
		assert.Equal(t, "3", s.Outliers[0].Iteration)
	})
}

func TestDetectOutliersStrictThreshold(t *testing.T) {
	trials := []trial.Trial{
		{Iteration: "1", AvailableTime: "10"},
		{Iteration: "2", AvailableTime: "20"},
		{Iteration: "3", AvailableTime: "20.0001"},
		{Iteration: "4", AvailableTime: "N/A"},
	}

	series := &Series{Count: 3, Mean: 10, StdDev: 5}

	threshold, outliers := DetectOutliers(trials, series, 2)

	assert.Equal(t, 20.0, threshold)
	require.Len(t, outliers, 1)
	assert.Equal(t, "3", outliers[0].Iteration)
}

func TestDetectOutliersNoSeries(t *testing.T) {
	threshold, outliers := DetectOutliers(
		[]trial.Trial{{Iteration: "1", AvailableTime: "N/A"}}, nil, 2)

	assert.Equal(t, 0.0, threshold)
	assert.NotNil(t, outliers)
	assert.Empty(t, outliers)
}

func TestCombos(t *testing.T) {
	ds := mustDataset(t,
		"1,python,basic,30,1,5,t1",
		"2,node,large,12,1,5,t2",
		"3,python,basic,50,1,5,t3",
		"4,node,large,14,1,5,t4",
		"5,go,basic,N/A,1,5,t5",
	)

	s := Compute(ds, Options{})

	require.Len(t, s.Combos, 2)

	assert.Equal(t, "python:basic", s.Combos[0].Key)
	assert.Equal(t, "python", s.Combos[0].DevContainer)
	assert.Equal(t, "basic", s.Combos[0].Machine)
	assert.Equal(t, 2, s.Combos[0].Count)
	assert.InDelta(t, 40.0, s.Combos[0].Mean, 1e-9)

	assert.Equal(t, "node:large", s.Combos[1].Key)
	assert.InDelta(t, 13.0, s.Combos[1].Mean, 1e-9)

	fastest := FastestCombo(s.Combos)
	require.NotNil(t, fastest)
	assert.Equal(t, "node:large", fastest.Key)

	variable := MostVariableCombo(s.Combos)
	require.NotNil(t, variable)
	assert.Equal(t, "python:basic", variable.Key)

	sorted := SortedByMean(s.Combos)
	assert.Equal(t, "node:large", sorted[0].Key)
	assert.Equal(t, "python:basic", sorted[1].Key)
	assert.Equal(t, "python:basic", s.Combos[0].Key, "input left untouched")
}

func TestCombosCountFailedTrials(t *testing.T) {
	// The second combination only has failed trials, so it contributes to the
	// distinct count without producing a row.
	ds := mustDataset(t,
		"1,python,basic,30,1,5,t1",
		"2,node,large,N/A,1,5,t2",
	)

	s := Compute(ds, Options{})

	require.Len(t, s.Combos, 1)
	assert.Equal(t, "python:basic", s.Combos[0].Key)
}

func TestComboHelpersEmpty(t *testing.T) {
	assert.Nil(t, FastestCombo(nil))
	assert.Nil(t, MostVariableCombo(nil))
	assert.Empty(t, SortedByMean(nil))
}
