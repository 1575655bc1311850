package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentPreRunConfigValidation(t *testing.T) {
	t.Setenv("PROVISIONOOR_ANALYSIS_OUTLIER_STDDEVS", "0")

	t.Run("version skips config", func(t *testing.T) {
		require.NoError(t, rootCmd.PersistentPreRunE(versionCmd, nil))
	})

	t.Run("analysis validates config", func(t *testing.T) {
		err := rootCmd.PersistentPreRunE(rootCmd, []string{"results.csv"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
		assert.Contains(t, err.Error(), "analysis.outlier_stddevs")
	})
}
