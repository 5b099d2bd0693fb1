package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("", "", &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("migration started", zap.String("from", "1.0.0"))
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "migration started")
	assert.Contains(t, out, `"from": "1.0.0"`)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", types.LogFormatJSON, &buf)
	require.NoError(t, err)

	log.Debug("step applied", zap.String("step", "v1.0.0-to-v1.0.1"))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "step applied", entry["msg"])
	assert.Equal(t, "v1.0.0-to-v1.0.1", entry["step"])
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", "", &bytes.Buffer{})
	assert.True(t, errors.Is(err, types.ErrLogLevelUnknown))

	_, err = New("info", "xml", &bytes.Buffer{})
	assert.True(t, errors.Is(err, types.ErrLogFormatUnknown))
}
