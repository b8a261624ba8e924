package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Off(t *testing.T) {
	for _, level := range []string{"", "off", " OFF "} {
		logger, err := New(level)
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(-1), "level %q should disable logging", level)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud")
	assert.Error(t, err)
}

func TestNewWithWriter_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter("warn", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "WARN")
}
