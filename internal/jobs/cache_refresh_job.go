package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CacheRefreshJobName is the scheduler name of the report cache refresh
const CacheRefreshJobName = "dashboard-cache-refresh"

// ReportInvalidator drops cached dashboard reports
type ReportInvalidator interface {
	InvalidateReports(ctx context.Context) error
}

// CacheRefreshJob expires every cached dashboard report so that figures
// changed outside the API (imports, manual SQL) show up within one period.
type CacheRefreshJob struct {
	reports ReportInvalidator
	logger  *zap.Logger
	timeout time.Duration
}

func NewCacheRefreshJob(reports ReportInvalidator, logger *zap.Logger, timeout time.Duration) *CacheRefreshJob {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CacheRefreshJob{
		reports: reports,
		logger:  logger.With(zap.String("job", CacheRefreshJobName)),
		timeout: timeout,
	}
}

// Run invalidates the cache once. Failures are logged; the next tick retries.
func (j *CacheRefreshJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	if err := j.reports.InvalidateReports(ctx); err != nil {
		j.logger.Warn("failed to invalidate dashboard reports", zap.Error(err))
		return
	}
	j.logger.Info("dashboard reports invalidated", zap.Duration("duration", time.Since(start)))
}

// RegisterCacheRefreshJob schedules the job. An empty cronExpr leaves it unscheduled.
func RegisterCacheRefreshJob(scheduler *Scheduler, reports ReportInvalidator, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	if cronExpr == "" {
		logger.Info("dashboard cache refresh disabled")
		return nil
	}
	job := NewCacheRefreshJob(reports, logger, timeout)
	return scheduler.AddJob(CacheRefreshJobName, cronExpr, job.Run)
}
