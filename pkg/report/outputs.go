package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethpandaops/provisionoor/pkg/stats"
	"github.com/ethpandaops/provisionoor/pkg/trial"
)

// Output is a single key=value metric for downstream CI jobs.
type Output struct {
	Key   string
	Value string
}

// Outputs returns the CI metrics for s in a stable order. Time metrics are
// only present when the corresponding samples exist.
func Outputs(s *stats.Summary) []Output {
	out := make([]Output, 0, 9)

	if s.Available != nil {
		out = append(out,
			Output{Key: "average_provisioning_time", Value: formatSeconds(s.Available.Mean)},
			Output{Key: "min_provisioning_time", Value: formatSeconds(s.Available.Min)},
			Output{Key: "max_provisioning_time", Value: formatSeconds(s.Available.Max)},
			Output{Key: "stddev_provisioning_time", Value: formatSeconds(s.Available.StdDev)},
		)
	}

	if s.PostCreate != nil {
		out = append(out, Output{
			Key:   "average_postcreate_time",
			Value: formatSeconds(s.PostCreate.Mean),
		})
	}

	out = append(out,
		Output{Key: "total_runs", Value: strconv.Itoa(s.TotalRuns)},
		Output{Key: "successful_runs", Value: strconv.Itoa(s.SuccessfulRuns)},
		Output{Key: "failed_runs", Value: strconv.Itoa(s.FailedRuns)},
		Output{Key: "outlier_count", Value: strconv.Itoa(len(s.Outliers))},
	)

	return out
}

// FormatOutputs renders outputs as newline-terminated key=value lines.
func FormatOutputs(outputs []Output) string {
	var sb strings.Builder

	for _, o := range outputs {
		fmt.Fprintf(&sb, "%s=%s\n", o.Key, o.Value)
	}

	return sb.String()
}

// Document is the machine-readable form of an analysis.
type Document struct {
	Source       string         `json:"source"`
	PollInterval string         `json:"poll_interval,omitempty"`
	Summary      *stats.Summary `json:"summary"`
	Trials       []trial.Trial  `json:"trials"`
}

// JSON renders the analysis as an indented JSON document.
func JSON(source string, ds *trial.Dataset, s *stats.Summary) ([]byte, error) {
	doc := Document{
		Source:       source,
		PollInterval: ds.PollInterval(),
		Summary:      s,
		Trials:       ds.Trials,
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}

	return append(data, '\n'), nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
