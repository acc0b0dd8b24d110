// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pruner deletes records older than a cutoff and reports how many it removed.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob creates a job that deletes records older than keep from p
// once per interval. name and what label the job and its log lines.
func RetentionJob(name, what string, p Pruner, keep, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     name,
		Interval: interval,
		Run: func(ctx context.Context) error {
			deleted, err := p.DeleteOlderThan(ctx, time.Now().Add(-keep))
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("pruned old "+what,
					zap.Int64("deleted", deleted),
					zap.Duration("keep", keep))
			}
			return nil
		},
	}
}

// AuditRetentionJob prunes the audit trail daily.
func AuditRetentionJob(p Pruner, keep time.Duration, logger *zap.Logger) Job {
	return RetentionJob("audit-retention", "audit events", p, keep, 24*time.Hour, logger)
}

// APIStatsRetentionJob prunes API statistics buckets hourly.
func APIStatsRetentionJob(p Pruner, keep time.Duration, logger *zap.Logger) Job {
	return RetentionJob("api-stats-retention", "API stats buckets", p, keep, time.Hour, logger)
}
