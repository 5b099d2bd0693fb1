package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.RunFinished(OutcomeCompleted, 2)
	m.RunFinished(OutcomeCompleted, 1)
	m.RunFinished(OutcomeFailed, 3)
	m.RunFinished(OutcomeUpToDate, 0)
	m.BackupCreated()
	m.RestoreFinished(nil)
	m.RestoreFinished(errors.New("boom"))
	m.RestoreFinished(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MigrationRuns.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MigrationRuns.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MigrationRuns.WithLabelValues(OutcomeUpToDate)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MigrationStepsTotal), "failed runs do not count steps")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackupsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackupRestores.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BackupRestores.WithLabelValues(OutcomeError)))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunFinished(OutcomeCompleted, 1)
		m.BackupCreated()
		m.RestoreFinished(nil)
	})
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.BackupCreated()

	path := filepath.Join(t.TempDir(), "checklist.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "checklist_backups_created_total 1"), string(data))

	assert.NoError(t, m.WriteTextfile(""))
	assert.Error(t, m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")))
}
