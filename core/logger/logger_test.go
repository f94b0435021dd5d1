package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AzielCF/az-connect/core/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_LevelAndFormat(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	})

	require.NoError(t, Setup(config.LogConfig{Level: "warn", Format: "json"}, false))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	require.NoError(t, Setup(config.LogConfig{Level: "warn"}, true))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSetup_RotatingFile(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	file := filepath.Join(t.TempDir(), "logs", "connect.log")
	require.NoError(t, Setup(config.LogConfig{Level: "info", File: file}, false))

	logrus.Info("[TEST] rotating writer ready")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotating writer ready")
}
