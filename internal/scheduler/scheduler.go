package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"marketpulse/server/internal/cache"
	"marketpulse/server/internal/reports"
)

// Scheduler runs the nightly full recalculation and opportunistically
// purges expired cache entries.
type Scheduler struct {
	builder      *reports.Builder
	store        *cache.Store
	logger       *logrus.Logger
	scheduleHour int
	stopChan     chan struct{}
	wg           sync.WaitGroup
	jobMutex     sync.Mutex // Ensures sequential job execution
}

// NewScheduler creates a scheduler that triggers a full recalculation at
// the given hour of day.
func NewScheduler(builder *reports.Builder, store *cache.Store, scheduleHour int, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		builder:      builder,
		store:        store,
		logger:       logger,
		scheduleHour: scheduleHour,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the scheduled tasks.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	// Run the startup recalculation in a separate goroutine so reports
	// exist as soon as possible after boot; the job mutex keeps it from
	// overlapping a scheduled run.
	go func() {
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup recalculation")
		s.runRecalculation()
		s.logger.Info("Startup recalculation completed")
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(t)
		}
	}
}

func (s *Scheduler) executeScheduledJobs(t time.Time) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if t.Hour() == s.scheduleHour && t.Minute() == 0 {
		s.logger.Info("Starting scheduled recalculation run")
		s.runRecalculation()
		s.logger.Info("Completed scheduled recalculation run")
	}

	// Hourly cache maintenance
	if t.Minute() == 0 {
		if removed := s.store.Purge(); removed > 0 {
			s.logger.WithField("removed", removed).Debug("Purged expired cache entries")
		}
	}
}

func (s *Scheduler) runRecalculation() {
	summary, err := s.builder.Run(context.Background(), reports.Filter{})
	if err != nil {
		s.logger.WithError(err).Error("Scheduled recalculation failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":  summary.RunID,
		"total":   summary.Total,
		"created": summary.Created,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
	}).Info("Scheduled recalculation finished")
}
