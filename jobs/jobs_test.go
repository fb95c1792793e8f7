package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRefresher struct {
	calls        atomic.Int32
	forceRefresh bool
	includeAll   bool
	hasDeadline  bool
	err          error
}

func (r *recordingRefresher) GetLiveListings(ctx context.Context, forceRefresh, includeAll bool) ([]models.LiveListing, error) {
	r.calls.Add(1)
	r.forceRefresh = forceRefresh
	r.includeAll = includeAll
	_, r.hasDeadline = ctx.Deadline()
	return []models.LiveListing{{Symbol: "ALPHA.NS"}}, r.err
}

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Name() string { return "counting" }
func (j *countingJob) Run()         { j.runs.Add(1) }

type metricsHolder struct {
	metrics *shared.ServiceMetrics
	reads   int
}

func (m *metricsHolder) Metrics() *shared.ServiceMetrics {
	m.reads++
	return m.metrics
}

func TestWarmupForcesFullRefresh(t *testing.T) {
	refresher := &recordingRefresher{}
	NewLiveListingsWarmupJob(refresher).Run()

	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.True(t, refresher.forceRefresh)
	assert.True(t, refresher.includeAll)
	assert.True(t, refresher.hasDeadline)
}

func TestWarmupSurvivesFailure(t *testing.T) {
	refresher := &recordingRefresher{err: errors.New("store down")}
	assert.NotPanics(t, NewLiveListingsWarmupJob(refresher).Run)
}

func TestCacheStatsReadsEverySource(t *testing.T) {
	a := &metricsHolder{metrics: shared.NewServiceMetrics("a")}
	b := &metricsHolder{metrics: shared.NewServiceMetrics("b")}

	NewCacheStatsJob(a, b).Run()
	assert.Equal(t, 1, a.reads)
	assert.Equal(t, 1, b.reads)
}

func TestSchedulerRegister(t *testing.T) {
	scheduler := NewScheduler()

	require.NoError(t, scheduler.Register("", &countingJob{}))
	assert.Empty(t, scheduler.Cron.Entries())

	require.NoError(t, scheduler.Register("0 */5 * * * *", &countingJob{}))
	assert.Len(t, scheduler.Cron.Entries(), 1)

	err := scheduler.Register("every minute", &countingJob{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "counting")
}

func TestSchedulerRunsJobs(t *testing.T) {
	scheduler := NewScheduler()
	job := &countingJob{}
	require.NoError(t, scheduler.Register("* * * * * *", job))

	scheduler.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	scheduler.Stop()
}
