package types

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Config holds the engine parameters loaded from config.yaml.
type Config struct {
	DataDir           string        `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	StateFile         string        `json:"state_file" yaml:"state_file" mapstructure:"state_file"`
	BackupDir         string        `json:"backup_dir" yaml:"backup_dir" mapstructure:"backup_dir"`
	BackupCompression string        `json:"backup_compression" yaml:"backup_compression" mapstructure:"backup_compression"`
	LockTimeout       time.Duration `json:"lock_timeout" yaml:"lock_timeout" mapstructure:"lock_timeout"`
	LogLevel          string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFormat         string        `json:"log_format" yaml:"log_format" mapstructure:"log_format"`
	MetricsFile       string        `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
}

// Snapshot compression codecs.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Log output formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Defaults applied by the config loader when a key is absent.
const (
	DefaultStateFile   = "progress.json"
	DefaultBackupDir   = "backups"
	DefaultLockTimeout = 30 * time.Second
	DefaultLogLevel    = "info"
)

// Config validation errors.
var (
	ErrDataDirEmpty       = errors.New("data_dir must not be empty")
	ErrStateFileEmpty     = errors.New("state_file must not be empty")
	ErrCompressionUnknown = errors.New("unknown backup compression")
	ErrLockTimeoutInvalid = errors.New("lock_timeout must be positive")
	ErrLogLevelUnknown    = errors.New("unknown log level")
	ErrLogFormatUnknown   = errors.New("unknown log format")
)

var knownCompressions = map[string]bool{
	"":              true,
	CompressionNone: true,
	CompressionZstd: true,
}

var knownLogLevels = map[string]bool{
	"":      true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var knownLogFormats = map[string]bool{
	"":               true,
	LogFormatConsole: true,
	LogFormatJSON:    true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.StateFile == "" {
		return ErrStateFileEmpty
	}
	if !knownCompressions[c.BackupCompression] {
		return errors.Wrapf(ErrCompressionUnknown, "%q", c.BackupCompression)
	}
	if c.LockTimeout <= 0 {
		return ErrLockTimeoutInvalid
	}
	if !knownLogLevels[c.LogLevel] {
		return errors.Wrapf(ErrLogLevelUnknown, "%q", c.LogLevel)
	}
	if !knownLogFormats[c.LogFormat] {
		return errors.Wrapf(ErrLogFormatUnknown, "%q", c.LogFormat)
	}
	return nil
}
