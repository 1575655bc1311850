package trial

import (
	"math"
	"strconv"
	"strings"
)

// Column names recognised in the trials CSV header.
const (
	ColumnIteration    = "Iteration"
	ColumnDevContainer = "DevContainer"
	ColumnMachine      = "Machine"
	ColumnAvailable    = "Available_Time_Sec"
	ColumnPostCreate   = "PostCreate_Time_Sec"
	ColumnPollInterval = "Poll_Interval_Sec"
	ColumnTimestamp    = "Timestamp"
)

// MissingValue is the sentinel written by the trial runner when a milestone
// was never reached.
const MissingValue = "N/A"

// Trial is a single provisioning attempt as read from the CSV. Field values
// are kept verbatim so they can be reproduced in reports unchanged.
type Trial struct {
	Iteration      string `mapstructure:"Iteration" json:"iteration"`
	DevContainer   string `mapstructure:"DevContainer" json:"devcontainer"`
	Machine        string `mapstructure:"Machine" json:"machine"`
	AvailableTime  string `mapstructure:"Available_Time_Sec" json:"available_time_sec"`
	PostCreateTime string `mapstructure:"PostCreate_Time_Sec" json:"postcreate_time_sec"`
	PollInterval   string `mapstructure:"Poll_Interval_Sec" json:"poll_interval_sec"`
	Timestamp      string `mapstructure:"Timestamp" json:"timestamp"`
}

// Available returns the elapsed seconds until the environment became
// available, or false if the value is missing or malformed.
func (t *Trial) Available() (float64, bool) {
	return ParseTime(t.AvailableTime)
}

// PostCreate returns the elapsed seconds for post-create commands, or false
// if the value is missing or malformed.
func (t *Trial) PostCreate() (float64, bool) {
	return ParseTime(t.PostCreateTime)
}

// Configuration returns the "<devcontainer> on <machine>" label.
func (t *Trial) Configuration() string {
	return t.DevContainer + " on " + t.Machine
}

// ParseTime parses a time field. The MissingValue sentinel, empty strings
// and anything that is not a finite number are reported as missing.
func ParseTime(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == MissingValue {
		return 0, false
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}
