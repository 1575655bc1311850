package report

import (
	"fmt"
	"strings"

	"github.com/ethpandaops/provisionoor/pkg/stats"
	"github.com/ethpandaops/provisionoor/pkg/trial"
)

// DefaultTitle is the top-level heading of the report.
const DefaultTitle = "Codespace Provisioning Analysis"

// Options controls Markdown rendering.
type Options struct {
	// Title replaces DefaultTitle when set.
	Title string

	// MaxChars caps the report length. The detailed results table is the
	// last section and is truncated to fit. Zero means unlimited.
	MaxChars int
}

// Markdown renders the analysis of ds as a Markdown document.
func Markdown(ds *trial.Dataset, s *stats.Summary, opts Options) string {
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}

	poll := ds.PollInterval()

	var sb strings.Builder

	sb.Grow(4096)

	fmt.Fprintf(&sb, "# %s\n\n", title)
	writeOverall(&sb, s)
	writeFastest(&sb, s.Fastest)
	writeCombos(&sb, s.Combos)
	writeAvailable(&sb, s.Available, poll)
	writePostCreate(&sb, s.PostCreate)
	writeOutliers(&sb, s.Outliers)

	// Detailed results go last so they can be truncated.
	writeDetails(&sb, ds.Trials, poll, opts.MaxChars)

	return sb.String()
}

func writeOverall(sb *strings.Builder, s *stats.Summary) {
	sb.WriteString("## Overall Statistics\n")
	fmt.Fprintf(sb, "- **Total Runs**: %d\n", s.TotalRuns)
	fmt.Fprintf(sb, "- **Successful**: %d\n", s.SuccessfulRuns)
	fmt.Fprintf(sb, "- **Failed**: %d\n", s.FailedRuns)
	sb.WriteByte('\n')
}

func writeFastest(sb *strings.Builder, f *stats.FastestTrial) {
	if f == nil {
		return
	}

	sb.WriteString("## 🏆 Fastest Provision\n")
	fmt.Fprintf(sb, "- **Time**: %.2fs\n", f.Time)
	fmt.Fprintf(sb, "- **Configuration**: %s on %s\n", f.DevContainer, f.Machine)
	fmt.Fprintf(sb, "- **Iteration**: %s\n", f.Iteration)
	sb.WriteByte('\n')
}

func writeCombos(sb *strings.Builder, combos []stats.ComboStats) {
	fastest := stats.FastestCombo(combos)
	if fastest == nil {
		return
	}

	sb.WriteString("## ⚡ Fastest DevContainer:Machine Combo (by average)\n")
	fmt.Fprintf(sb, "- **Combo**: `%s`\n", fastest.Key)
	fmt.Fprintf(sb, "- **Average Time**: %.2fs\n", fastest.Mean)
	fmt.Fprintf(sb, "- **Min/Max**: %.2fs / %.2fs\n", fastest.Min, fastest.Max)
	fmt.Fprintf(sb, "- **Runs**: %d\n", fastest.Count)
	sb.WriteByte('\n')

	variable := stats.MostVariableCombo(combos)

	sb.WriteString("## 📊 Most Variable Combo (highest std dev)\n")
	fmt.Fprintf(sb, "- **Combo**: `%s`\n", variable.Key)
	fmt.Fprintf(sb, "- **Std Dev**: %.2fs\n", variable.StdDev)
	fmt.Fprintf(sb, "- **Average Time**: %.2fs\n", variable.Mean)
	fmt.Fprintf(sb, "- **Min/Max**: %.2fs / %.2fs\n", variable.Min, variable.Max)
	sb.WriteByte('\n')

	sb.WriteString("## DevContainer:Machine Comparison\n\n")
	sb.WriteString("| Combo | Average (s) | Min (s) | Max (s) " +
		"| Std Dev (s) | Runs |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")

	for _, c := range stats.SortedByMean(combos) {
		fmt.Fprintf(sb, "| `%s` | %.2f | %.2f | %.2f | %.2f | %d |\n",
			c.Key, c.Mean, c.Min, c.Max, c.StdDev, c.Count)
	}

	sb.WriteByte('\n')
}

func writeAvailable(sb *strings.Builder, s *stats.Series, poll string) {
	if s == nil {
		return
	}

	note := ""
	if poll != "" {
		note = fmt.Sprintf(" (accuracy ±%ss)", poll)
	}

	fmt.Fprintf(sb, "## Provisioning Time (Available State)%s\n", note)
	writeSeries(sb, s)
}

func writePostCreate(sb *strings.Builder, s *stats.Series) {
	if s == nil {
		return
	}

	sb.WriteString("## Post-Create Time\n")
	writeSeries(sb, s)
}

func writeSeries(sb *strings.Builder, s *stats.Series) {
	fmt.Fprintf(sb, "- **Average**: %.2fs\n", s.Mean)
	fmt.Fprintf(sb, "- **Min**: %.2fs\n", s.Min)
	fmt.Fprintf(sb, "- **Max**: %.2fs\n", s.Max)
	fmt.Fprintf(sb, "- **Std Dev**: %.2fs\n", s.StdDev)
	sb.WriteByte('\n')
}

func writeOutliers(sb *strings.Builder, outliers []stats.Outlier) {
	if len(outliers) == 0 {
		sb.WriteString("## ✅ No Outliers Detected\n")
		sb.WriteString("All runs completed within expected time range.\n\n")

		return
	}

	sb.WriteString("## ⚠️ Outliers Detected\n")
	sb.WriteString("Runs that took significantly longer than average:\n\n")

	for _, o := range outliers {
		fmt.Fprintf(sb, "- **Iteration %s**: %.2fs (%s)\n",
			o.Iteration, o.Time, o.Configuration)
	}

	sb.WriteByte('\n')
}

func writeDetails(
	sb *strings.Builder,
	trials []trial.Trial,
	poll string,
	maxChars int,
) {
	accuracy := ""
	if poll != "" {
		accuracy = fmt.Sprintf(" (accuracy ±%ss)", formatPollInterval(poll))
	}

	sb.WriteString("## Detailed Results\n\n")
	fmt.Fprintf(sb, "| Iteration | DevContainer | Machine "+
		"| Available Time (s)%s | Post-Create Time (s) | Timestamp |\n",
		accuracy)
	sb.WriteString("|---|---|---|---|---|---|\n")

	// Reserve space for the truncation message.
	const reserveChars = 100

	for i := range trials {
		t := &trials[i]

		row := fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			escapeCell(t.Iteration),
			escapeCell(t.DevContainer),
			escapeCell(t.Machine),
			escapeCell(t.AvailableTime),
			escapeCell(t.PostCreateTime),
			escapeCell(t.Timestamp),
		)

		if maxChars > 0 && sb.Len()+len(row)+reserveChars > maxChars {
			remaining := len(trials) - i
			fmt.Fprintf(sb,
				"\n*%d more result(s) not shown "+
					"(output truncated at %d chars)*\n",
				remaining, maxChars)

			return
		}

		sb.WriteString(row)
	}

	sb.WriteByte('\n')
}

// formatPollInterval renders a numeric poll interval zero-padded to two
// digits with no decimals. Non-numeric values are returned unchanged.
func formatPollInterval(poll string) string {
	v, ok := trial.ParseTime(poll)
	if !ok {
		return poll
	}

	return fmt.Sprintf("%02.0f", v)
}

// escapeCell protects pipe characters so a value cannot split a table cell.
func escapeCell(v string) string {
	return strings.ReplaceAll(v, "|", `\|`)
}
