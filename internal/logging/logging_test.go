package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger := SetupLogger(true, path)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("user", "alice").Info("Client IP:[10.0.0.1] alice attempting Duo Auth")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `msg="Client IP:[10.0.0.1] alice attempting Duo Auth"`)
	assert.Contains(t, string(data), "user=alice")
}

func TestSetupLoggerAppendsAfterTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger := SetupLogger(false, path)
	logger.Info("first")
	require.NoError(t, os.Truncate(path, 0))
	logger.Info("second")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
	assert.NotContains(t, string(data), "\x00")
}

func TestSetupLoggerFallsBackToStdout(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	logger := SetupLogger(false, filepath.Join(blocker, "app.log"))
	assert.Equal(t, os.Stdout, logger.Out)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
