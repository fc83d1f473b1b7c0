package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/internal/owid"
	"github.com/wonny/vaxtrack/internal/report"
	"github.com/wonny/vaxtrack/internal/reportconfig"
	"github.com/wonny/vaxtrack/internal/scheduler"
	"github.com/wonny/vaxtrack/pkg/httputil"
	"github.com/wonny/vaxtrack/pkg/logger"
)

// ReportRunner runs the report pipeline
type ReportRunner interface {
	Run(ctx context.Context, opts report.RunOptions) (*report.RunSummary, error)
}

// CacheInvalidator drops cached API responses
type CacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) (int, error)
}

// RefreshJob downloads the dataset, rebuilds every report and clears cached responses
type RefreshJob struct {
	runner   ReportRunner
	cache    CacheInvalidator
	schedule string
	retry    scheduler.RetryPolicy
	logger   *logger.Logger
}

// Option configures a RefreshJob
type Option func(*RefreshJob)

// WithRetry overrides how often a failed refresh is retried.
// The dataset is published once a day, so the default waits minutes, not seconds.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(j *RefreshJob) {
		j.retry = scheduler.RetryPolicy{MaxRetries: maxRetries, Delay: delay}
	}
}

// NewRefreshJob creates a new refresh job; cache may be nil
func NewRefreshJob(runner ReportRunner, cache CacheInvalidator, schedule string, log *logger.Logger, opts ...Option) *RefreshJob {
	j := &RefreshJob{
		runner:   runner,
		cache:    cache,
		schedule: schedule,
		retry:    scheduler.RetryPolicy{MaxRetries: 2, Delay: 10 * time.Minute},
		logger:   log,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "dataset_refresh"
}

// Schedule returns the cron schedule
func (j *RefreshJob) Schedule() string {
	return j.schedule
}

// RetryPolicy implements scheduler.Retrier
func (j *RefreshJob) RetryPolicy() scheduler.RetryPolicy {
	return j.retry
}

// Run executes the refresh
func (j *RefreshJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled dataset refresh")

	summary, err := j.runner.Run(ctx, report.RunOptions{Refresh: true})
	if err != nil {
		err = fmt.Errorf("report run failed: %w", err)
		if retryless(err) {
			return scheduler.Permanent(err)
		}
		return err
	}

	removed := 0
	if j.cache != nil {
		removed, err = j.cache.Invalidate(ctx, "")
		if err != nil {
			// Stale responses expire on their own
			j.logger.WithError(err).Warn("Cache invalidation failed")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":        summary.RunID.String(),
		"rows":          summary.Rows,
		"reports":       len(summary.Reports),
		"persisted":     summary.Persisted,
		"cache_removed": removed,
	}).Info("Dataset refresh completed")

	return nil
}

// retryless reports failures another attempt cannot fix: a moved dataset URL,
// a dataset that lost a column, or report definitions that do not validate
func retryless(err error) bool {
	var (
		serr *owid.StatusError
		verr reportconfig.ValidationError
	)
	if errors.As(err, &serr) {
		return !httputil.IsRetryableError(serr.Code)
	}
	return contracts.IsSchemaError(err) ||
		errors.Is(err, contracts.ErrUnknownReport) ||
		errors.As(err, &verr)
}
