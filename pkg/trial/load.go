package trial

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var (
	// ErrNotFound is returned when the trials CSV does not exist.
	ErrNotFound = errors.New("csv file not found")

	// ErrNoResults is returned when the CSV holds no data rows.
	ErrNoResults = errors.New("no results found in csv file")
)

// UnknownLabel stands in for a devcontainer or machine when the CSV has no
// such column.
const UnknownLabel = "unknown"

// DefaultPollInterval is assumed when the CSV has no poll interval column.
const DefaultPollInterval = "5"

// Dataset is the ordered set of trials read from one CSV file.
type Dataset struct {
	Columns []string
	Trials  []Trial
}

// Load reads a header-delimited CSV file into a Dataset.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("opening csv file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds, err := Read(f)
	if err != nil {
		return nil, err
	}

	return ds, nil
}

// Read parses CSV content from r. Rows shorter than the header leave the
// trailing columns empty; surplus fields are ignored.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoResults
		}

		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}

		columns[i] = strings.TrimSpace(name)
	}

	ds := &Dataset{Columns: columns}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", line, err)
		}

		row := make(map[string]string, len(columns))
		for i, name := range columns {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}

		t, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("decoding csv row %d: %w", line, err)
		}

		ds.Trials = append(ds.Trials, t)
	}

	if len(ds.Trials) == 0 {
		return nil, ErrNoResults
	}

	return ds, nil
}

// decodeRow maps a header-keyed row onto a Trial. Column names must match
// exactly, the same way HasColumn compares them.
func decodeRow(row map[string]string) (Trial, error) {
	var t Trial

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &t,
		MatchName: func(mapKey, fieldName string) bool {
			return mapKey == fieldName
		},
	})
	if err != nil {
		return t, err
	}

	if err := dec.Decode(row); err != nil {
		return t, err
	}

	return t, nil
}

// HasColumn reports whether the header contained the named column.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}

	return false
}

// PollInterval returns the poll interval recorded on the first trial. It is
// DefaultPollInterval when the column is absent and may be empty.
func (d *Dataset) PollInterval() string {
	if len(d.Trials) == 0 {
		return ""
	}

	if !d.HasColumn(ColumnPollInterval) {
		return DefaultPollInterval
	}

	return d.Trials[0].PollInterval
}

// ComboLabels returns the devcontainer and machine used to group t,
// substituting UnknownLabel for columns the CSV does not have.
func (d *Dataset) ComboLabels(t *Trial) (devcontainer, machine string) {
	devcontainer, machine = t.DevContainer, t.Machine

	if !d.HasColumn(ColumnDevContainer) {
		devcontainer = UnknownLabel
	}

	if !d.HasColumn(ColumnMachine) {
		machine = UnknownLabel
	}

	return devcontainer, machine
}
