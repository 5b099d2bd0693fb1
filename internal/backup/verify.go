package backup

import (
	"context"
	"runtime"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// VerifyResult is the integrity outcome for one snapshot. Err is nil when the
// snapshot decodes and matches its recorded size and checksum.
type VerifyResult struct {
	Record types.BackupRecord
	Err    error
}

// OK reports whether the snapshot passed.
func (r VerifyResult) OK() bool { return r.Err == nil }

// Verify checks every archived snapshot. Results keep ListBackups order.
// Per-snapshot failures are reported in the results, not as the returned
// error.
func (m *Manager) Verify(ctx context.Context) ([]VerifyResult, error) {
	records, err := m.ListBackups(ctx)
	if err != nil {
		return nil, err
	}

	results := lo.Map(records, func(rec types.BackupRecord, _ int) VerifyResult {
		return VerifyResult{Record: rec}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, results[i].Err = m.read(results[i].Record)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bad := lo.CountBy(results, func(r VerifyResult) bool { return !r.OK() })
	m.log.Info("backups verified", zap.Int("checked", len(results)), zap.Int("failed", bad))
	return results, nil
}
