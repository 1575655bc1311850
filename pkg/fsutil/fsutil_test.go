package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOwner(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *OwnerConfig
		wantErr bool
	}{
		{name: "empty", input: "", want: nil},
		{name: "valid", input: "1000:1001", want: &OwnerConfig{UID: 1000, GID: 1001}},
		{name: "missing gid", input: "1000", wantErr: true},
		{name: "non numeric uid", input: "runner:1000", wantErr: true},
		{name: "non numeric gid", input: "1000:docker", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOwner(tt.input)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.env")

	require.NoError(t, os.WriteFile(path, []byte("existing=1\n"), 0o644))
	require.NoError(t, AppendFile(path, []byte("total_runs=3\n"), 0o644))
	require.NoError(t, AppendFile(path, []byte("failed_runs=0\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing=1\ntotal_runs=3\nfailed_runs=0\n", string(data))
}

func TestAppendFileCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")

	require.NoError(t, AppendFile(path, []byte("# Report\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Report\n", string(data))
}

func TestAppendFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "summary.md")

	require.Error(t, AppendFile(path, []byte("x"), 0o644))
}

func TestWriteFileCreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "analysis.json")

	require.NoError(t, WriteFile(path, []byte("{}\n"), 0o644, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}
