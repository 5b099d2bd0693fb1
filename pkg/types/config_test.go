package types

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

func validConfig() Config {
	return Config{
		DataDir:     "/tmp/data",
		StateFile:   DefaultStateFile,
		LockTimeout: DefaultLockTimeout,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty data dir returns ErrDataDirEmpty",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: ErrDataDirEmpty,
		},
		{
			name:    "empty state file returns ErrStateFileEmpty",
			mutate:  func(c *Config) { c.StateFile = "" },
			wantErr: ErrStateFileEmpty,
		},
		{
			name:    "unknown compression returns ErrCompressionUnknown",
			mutate:  func(c *Config) { c.BackupCompression = "lz4" },
			wantErr: ErrCompressionUnknown,
		},
		{
			name:    "zero lock timeout returns ErrLockTimeoutInvalid",
			mutate:  func(c *Config) { c.LockTimeout = 0 },
			wantErr: ErrLockTimeoutInvalid,
		},
		{
			name:    "unknown log level returns ErrLogLevelUnknown",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: ErrLogLevelUnknown,
		},
		{
			name:    "unknown log format returns ErrLogFormatUnknown",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: ErrLogFormatUnknown,
		},
		{
			name:   "zstd compression is valid",
			mutate: func(c *Config) { c.BackupCompression = CompressionZstd },
		},
		{
			name: "fully specified config is valid",
			mutate: func(c *Config) {
				c.BackupDir = "/tmp/data/backups"
				c.BackupCompression = CompressionNone
				c.LockTimeout = time.Second
				c.LogLevel = "debug"
				c.LogFormat = LogFormatJSON
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
