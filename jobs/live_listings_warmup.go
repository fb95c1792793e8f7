package jobs

import (
	"context"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/sirupsen/logrus"
)

// LiveListingsRefresher recomputes the live listings view
type LiveListingsRefresher interface {
	GetLiveListings(ctx context.Context, forceRefresh, includeAll bool) ([]models.LiveListing, error)
}

// LiveListingsWarmupJob recomputes the live listings slot so user requests hit a warm cache
type LiveListingsWarmupJob struct {
	Listings LiveListingsRefresher
	Timeout  time.Duration
}

func NewLiveListingsWarmupJob(listings LiveListingsRefresher) *LiveListingsWarmupJob {
	return &LiveListingsWarmupJob{Listings: listings, Timeout: 5 * time.Minute}
}

func (j *LiveListingsWarmupJob) Name() string { return "live-listings-warmup" }

func (j *LiveListingsWarmupJob) Run() {
	logger := logrus.WithField("component", "LiveListingsWarmupJob")
	logger.Info("Starting Live Listings Warmup Job")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()

	listings, err := j.Listings.GetLiveListings(ctx, true, true)
	if err != nil {
		logger.WithError(err).Error("Live Listings Warmup Job failed")
		return
	}

	logger.WithFields(logrus.Fields{
		"listings": len(listings),
		"duration": time.Since(startTime).String(),
	}).Info("Live Listings Warmup Job completed")
}
