package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"

	"github.com/weatherpipe/weatherpipe/internal/weather"
)

// RunFunc executes one pipeline run for the given target date.
type RunFunc func(ctx context.Context, targetDate time.Time)

// Scheduler triggers the daily pipeline run at a fixed UTC wall-clock time.
type Scheduler struct {
	scheduler    *gocron.Scheduler
	run          RunFunc
	scheduleAt   string
	misfireGrace time.Duration
	runTimeout   time.Duration

	// now is replaceable in tests
	now func() time.Time
}

// New creates a Scheduler that fires run once per day at scheduleAt
// ("15:04", UTC). If the process starts within misfireGrace after today's
// trigger time, the missed run is executed immediately on Start.
func New(scheduleAt string, misfireGrace time.Duration, run RunFunc) *Scheduler {
	return &Scheduler{
		scheduler:    gocron.NewScheduler(time.UTC),
		run:          run,
		scheduleAt:   scheduleAt,
		misfireGrace: misfireGrace,
		runTimeout:   30 * time.Minute,
		now:          time.Now,
	}
}

// Start schedules the daily job and starts the underlying scheduler. The
// target date is always the day before the trigger fires, so every run
// covers a complete UTC day.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Day().At(s.scheduleAt).Do(func() {
		s.trigger("schedule")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Infof("scheduler started, daily run at %s UTC", s.scheduleAt)

	if s.missedToday() {
		log.Warn("startup is within the misfire grace window, running missed job now")
		go s.trigger("catch-up")
	}

	return nil
}

// Stop stops the scheduler and cancels any future jobs. In-flight runs
// finish on their own context.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) trigger(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	now := s.now().UTC()
	target := weather.YesterdayUTC(now)
	log.WithFields(log.Fields{"reason": reason, "date": weather.FormatDate(target)}).
		Info("triggering pipeline run")

	s.run(ctx, target)
}

// missedToday reports whether today's trigger time already passed but still
// falls within the misfire grace window.
func (s *Scheduler) missedToday() bool {
	if s.misfireGrace <= 0 {
		return false
	}

	at, err := time.Parse("15:04", s.scheduleAt)
	if err != nil {
		return false
	}

	now := s.now().UTC()
	trigger := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, time.UTC)
	return now.After(trigger) && now.Sub(trigger) <= s.misfireGrace
}
