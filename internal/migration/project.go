// Package migration checks, previews, and runs schema migrations of the
// persisted progress file, and exposes the backup operations around them.
//
// All operations go through an Engine bound to one Project. Mutating
// operations hold the project lock exclusively; read-only ones share it.
package migration

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/checklist/internal/backup"
	"github.com/mesh-intelligence/checklist/internal/lock"
	"github.com/mesh-intelligence/checklist/internal/metrics"
	"github.com/mesh-intelligence/checklist/internal/registry"
	"github.com/mesh-intelligence/checklist/internal/store"
	"github.com/mesh-intelligence/checklist/internal/version"
	"github.com/mesh-intelligence/checklist/pkg/types"
)

// Project bundles everything the engine needs for one state file.
type Project struct {
	Dir      string
	Store    types.StateStore
	Registry *registry.Registry
	Resolver *version.Resolver
	Backups  *backup.Manager
	Lock     *lock.Lock
	Log      *zap.Logger
	Metrics  *metrics.Metrics
}

type projectOptions struct {
	backupDir   string
	lockDir     string
	compression string
	lockTimeout time.Duration
	log         *zap.Logger
	metrics     *metrics.Metrics
	clock       func() time.Time
}

// Option configures a Project.
type Option func(*projectOptions)

// WithBackupDir overrides the snapshot directory (default <dir>/backups).
func WithBackupDir(dir string) Option {
	return func(o *projectOptions) { o.backupDir = dir }
}

// WithLockDir overrides where the lock file lives (default dir).
func WithLockDir(dir string) Option {
	return func(o *projectOptions) { o.lockDir = dir }
}

// WithCompression selects the snapshot codec.
func WithCompression(c string) Option {
	return func(o *projectOptions) { o.compression = c }
}

// WithLockTimeout bounds how long an operation waits for the project lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *projectOptions) { o.lockTimeout = d }
}

// WithLogger sets the logger shared by all components.
func WithLogger(l *zap.Logger) Option {
	return func(o *projectOptions) { o.log = l }
}

// WithMetrics enables metrics collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *projectOptions) { o.metrics = m }
}

// WithClock overrides the backup timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *projectOptions) { o.clock = now }
}

// NewProject binds st and reg to the project directory dir, which holds the
// lock file and, unless overridden, the backup directory.
func NewProject(dir string, st types.StateStore, reg *registry.Registry, opts ...Option) *Project {
	o := projectOptions{
		compression: types.CompressionNone,
		lockTimeout: types.DefaultLockTimeout,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backupDir == "" {
		o.backupDir = filepath.Join(dir, types.DefaultBackupDir)
	}
	if o.lockDir == "" {
		o.lockDir = dir
	}

	backupOpts := []backup.Option{backup.WithCompression(o.compression), backup.WithLogger(o.log)}
	if o.clock != nil {
		backupOpts = append(backupOpts, backup.WithClock(o.clock))
	}

	return &Project{
		Dir:      dir,
		Store:    st,
		Registry: reg,
		Resolver: version.NewResolver(st, reg),
		Backups:  backup.NewManager(o.backupDir, st, backupOpts...),
		Lock:     lock.New(o.lockDir, o.lockTimeout),
		Log:      o.log.Named("migration"),
		Metrics:  o.metrics,
	}
}

// OpenProject builds a Project over the file store described by cfg. The lock
// file sits next to the state file, so every config that names the same state
// file shares one lock.
func OpenProject(cfg types.Config, reg *registry.Registry, opts ...Option) (*Project, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := projectOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	stateFile := cfg.StateFile
	if !filepath.IsAbs(stateFile) {
		stateFile = filepath.Join(cfg.DataDir, stateFile)
	}
	backupDir := cfg.BackupDir
	if backupDir != "" && !filepath.IsAbs(backupDir) {
		backupDir = filepath.Join(cfg.DataDir, backupDir)
	}

	all := append([]Option{
		WithBackupDir(backupDir),
		WithLockDir(filepath.Dir(stateFile)),
		WithCompression(cfg.BackupCompression),
		WithLockTimeout(cfg.LockTimeout),
	}, opts...)
	return NewProject(cfg.DataDir, store.NewFileStore(stateFile, o.log), reg, all...), nil
}
