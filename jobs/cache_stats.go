package jobs

import (
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/sirupsen/logrus"
)

// MetricsSource exposes a component's counters
type MetricsSource interface {
	Metrics() *shared.ServiceMetrics
}

// CacheStatsJob periodically logs cache and provider counters
type CacheStatsJob struct {
	Sources []MetricsSource
}

func NewCacheStatsJob(sources ...MetricsSource) *CacheStatsJob {
	return &CacheStatsJob{Sources: sources}
}

func (j *CacheStatsJob) Name() string { return "cache-stats" }

func (j *CacheStatsJob) Run() {
	logrus.WithField("component", "CacheStatsJob").Debug("Starting Cache Stats Job")
	for _, source := range j.Sources {
		source.Metrics().LogSummary()
	}
}
