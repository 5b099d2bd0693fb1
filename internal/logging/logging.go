// Package logging builds the zap logger used by the checklist CLI.
package logging

import (
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// New returns a logger writing to w at level in the given format
// (types.LogFormatConsole or types.LogFormatJSON). Empty values select info
// and console.
func New(level, format string, w io.Writer) (*zap.Logger, error) {
	if level == "" {
		level = types.DefaultLogLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(types.ErrLogLevelUnknown, "%q", level)
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch format {
	case types.LogFormatConsole, "":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	case types.LogFormatJSON:
		enc = zapcore.NewJSONEncoder(cfg)
	default:
		return nil, errors.Wrapf(types.ErrLogFormatUnknown, "%q", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}
