package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vaxtrack/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	failures int32 // number of leading calls that fail
	calls    atomic.Int32
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if n <= j.failures {
		return errors.New("boom")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop(), WithRetry(2, 0), WithJobTimeout(time.Second))
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&stubJob{name: "b", schedule: "@daily"}))
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "0 30 6 * * *"}))

	err := s.AddJob(&stubJob{name: "a", schedule: "@daily"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	schedule, err := s.Schedule("a")
	require.NoError(t, err)
	assert.Equal(t, "0 30 6 * * *", schedule)
}

func TestAddJob_BadSchedule(t *testing.T) {
	s := newTestScheduler()

	err := s.AddJob(&stubJob{name: "bad", schedule: "not a cron"})
	require.Error(t, err)
	assert.Empty(t, s.GetAllJobs())
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
}

func TestRunJobWait_Success(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "ok", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobWait(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, result.Error)

	history, err := s.GetJobHistory("ok")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRunJobWait_Retries(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobWait(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), job.calls.Load())
}

func TestRunJobWait_Exhausted(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "broken", schedule: "@daily", failures: 100}))

	result, err := s.RunJobWait(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "boom", result.Error)

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	assert.Equal(t, "@daily", stats.Schedule)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunJobWait_CancelStopsRetrying(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	job := &stubJob{name: "slow", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.RunJobWait(ctx, "slow")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, context.Canceled.Error(), result.Error)
}

func TestRunJob_Unknown(t *testing.T) {
	s := newTestScheduler()

	assert.Error(t, s.RunJob("missing"))
	_, err := s.RunJobWait(context.Background(), "missing")
	assert.Error(t, err)
	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestRunJob_Async(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "bg", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("bg"))
	assert.Eventually(t, func() bool {
		history, _ := s.GetJobHistory("bg")
		return len(history) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNextRun(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@hourly"}))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return !s.NextRun()["a"].IsZero()
	}, time.Second, 10*time.Millisecond)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())
	assert.Empty(t, h.Latest(5))

	for i := 0; i < maxHistory+10; i++ {
		h.Add(JobResult{JobName: "x", Success: i%2 == 0})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.Latest(3), 3)
	assert.Len(t, h.Failed(), maxHistory/2)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
}

func TestJobHistory_StatsKeepLastSuccess(t *testing.T) {
	day := time.Date(2021, 11, 30, 6, 30, 0, 0, time.UTC)
	h := &JobHistory{}
	h.Add(JobResult{StartTime: day, Success: true})
	h.Add(JobResult{StartTime: day.Add(24 * time.Hour), Success: false})

	stats := h.Stats("dataset_refresh", "@daily")
	assert.Equal(t, 2, stats.TotalRuns)
	require.NotNil(t, stats.LastRun)
	require.NotNil(t, stats.LastSuccess)
	require.NotNil(t, stats.LastFailure)
	assert.Equal(t, day.Add(24*time.Hour), *stats.LastRun)
	assert.Equal(t, day, *stats.LastSuccess)
	assert.Equal(t, *stats.LastRun, *stats.LastFailure)
}

// policyJob carries its own retry policy
type policyJob struct {
	stubJob
	policy RetryPolicy
}

func (j *policyJob) RetryPolicy() RetryPolicy { return j.policy }

func TestRunJobWait_JobRetryPolicy(t *testing.T) {
	s := New(logger.Nop(), WithRetry(0, time.Hour), WithJobTimeout(time.Second))
	job := &policyJob{
		stubJob: stubJob{name: "own", schedule: "@daily", failures: 3},
		policy:  RetryPolicy{MaxRetries: 4},
	}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobWait(context.Background(), "own")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 4, result.Attempts)
}

func TestRunJobWait_NegativeRetriesRunOnce(t *testing.T) {
	s := newTestScheduler()
	job := &policyJob{
		stubJob: stubJob{name: "once", schedule: "@daily", failures: 100},
		policy:  RetryPolicy{MaxRetries: -1},
	}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobWait(context.Background(), "once")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

type permanentJob struct {
	calls atomic.Int32
}

func (j *permanentJob) Name() string     { return "schema" }
func (j *permanentJob) Schedule() string { return "@daily" }
func (j *permanentJob) Run(context.Context) error {
	j.calls.Add(1)
	return Permanent(errors.New("column people_vaccinated missing"))
}

func TestRunJobWait_PermanentErrorIsNotRetried(t *testing.T) {
	s := newTestScheduler()
	job := &permanentJob{}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobWait(context.Background(), "schema")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), job.calls.Load())
	assert.Equal(t, "column people_vaccinated missing", result.Error)
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))

	base := errors.New("bad config")
	err := fmt.Errorf("refresh: %w", Permanent(base))
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
}
