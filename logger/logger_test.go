package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "astro.log")
	require.NoError(t, Init("debug", path))
	t.Cleanup(func() { Log = logrus.New() })

	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	Log.WithField("route", "/api/health").Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "route=/api/health")
}

func TestInit_BadLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init("shouty", ""))
	t.Cleanup(func() { Log = logrus.New() })
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}
