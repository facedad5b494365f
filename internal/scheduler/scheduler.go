package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/wetter/internal/logger"
	"github.com/i474232898/wetter/internal/update"
)

// Updater runs one update-and-persist cycle.
type Updater interface {
	Update(ctx context.Context, historical bool) ([]update.Result, error)
}

// Scheduler periodically updates the measurement store.
type Scheduler struct {
	scheduler *gocron.Scheduler
	updater   Updater
	interval  time.Duration
	timeout   time.Duration
	log       *logger.Logger
}

// New creates a new Scheduler. Each run is bounded by timeout.
func New(updater Updater, interval, timeout time.Duration, log *logger.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		updater:   updater,
		interval:  interval,
		timeout:   timeout,
		log:       log.Named("scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval < time.Minute {
		s.log.Warnf("update interval %s is below one minute, using %s", s.interval, time.Hour)
		interval = time.Hour
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	s.log.Infof("running update job")

	timeout := s.timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	results, err := s.updater.Update(ctx, false)
	if err != nil {
		s.log.Errorf("update failed: %v", err)
		return
	}
	for _, r := range results {
		s.log.Infof("update %s %s: %d added, %d replaced", r.ID, r.State, r.Added, r.Replaced)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
