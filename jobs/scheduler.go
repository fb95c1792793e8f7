package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is a unit of background work
type Job interface {
	Name() string
	Run()
}

// Scheduler runs background jobs on cron specs with a seconds field.
// A job still running when its next tick fires is skipped.
type Scheduler struct {
	Cron *cron.Cron
}

func NewScheduler() *Scheduler {
	logger := cron.PrintfLogger(logrus.WithField("component", "Scheduler"))
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

// Register schedules job on spec. An empty spec disables the job.
func (s *Scheduler) Register(spec string, job Job) error {
	if spec == "" {
		logrus.WithFields(logrus.Fields{"component": "Scheduler", "job": job.Name()}).Info("Job disabled, no schedule configured")
		return nil
	}
	if _, err := s.Cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("register %s job: %w", job.Name(), err)
	}
	logrus.WithFields(logrus.Fields{
		"component": "Scheduler",
		"job":       job.Name(),
		"spec":      spec,
	}).Info("Job scheduled")
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	logrus.WithField("component", "Scheduler").Info("Scheduler started")
}

// Stop stops scheduling and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logrus.WithField("component", "Scheduler").Info("Scheduler stopped")
}
