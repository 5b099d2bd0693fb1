// Package metrics counts migration runs, applied steps, backups and restores.
package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "checklist"

	outcomeLabelName = "outcome"

	// Run outcomes.
	OutcomeUpToDate  = "up_to_date"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeDryRun    = "dry_run"

	// Restore outcomes.
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the engine collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	MigrationRuns       *prometheus.CounterVec
	MigrationStepsTotal prometheus.Counter
	BackupsCreated      prometheus.Counter
	BackupRestores      *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MigrationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "runs_total",
			Help:      "Migration runs by outcome.",
		}, []string{outcomeLabelName}),
		MigrationStepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "steps_applied_total",
			Help:      "Migration steps applied in runs that completed.",
		}),
		BackupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backups",
			Name:      "created_total",
			Help:      "Snapshots written to the backup archive.",
		}),
		BackupRestores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "restores_total",
			Help:      "Restores from the backup archive by outcome.",
		}, []string{outcomeLabelName}),
	}
	m.registry.MustRegister(m.MigrationRuns, m.MigrationStepsTotal, m.BackupsCreated, m.BackupRestores)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RunFinished records a run outcome and, for completed runs, its step count.
func (m *Metrics) RunFinished(outcome string, steps int) {
	if m == nil {
		return
	}
	m.MigrationRuns.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCompleted {
		m.MigrationStepsTotal.Add(float64(steps))
	}
}

// BackupCreated records one snapshot.
func (m *Metrics) BackupCreated() {
	if m == nil {
		return
	}
	m.BackupsCreated.Inc()
}

// RestoreFinished records a restore outcome.
func (m *Metrics) RestoreFinished(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.BackupRestores.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return errors.Wrapf(prometheus.WriteToTextfile(path, m.registry), "writing metrics to %s", path)
}
