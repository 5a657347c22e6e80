package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	derrors "github.com/torn-open/docsmith/internal/errors"
	"github.com/torn-open/docsmith/internal/events"
)

// Scheduler wraps gocron and turns a periodic tick into build requests on
// the event bus.
type Scheduler struct {
	scheduler gocron.Scheduler
	bus       *events.Bus
}

// NewScheduler creates a scheduler publishing to the given bus.
func NewScheduler(bus *events.Bus) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryDaemon, "create scheduler")
	}
	return &Scheduler{scheduler: s, bus: bus}, nil
}

// SchedulePeriodicRebuild publishes a BuildRequested event every interval.
// Returns the job ID for later management.
func (s *Scheduler) SchedulePeriodicRebuild(interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", derrors.ValidationError("rebuild interval must be > 0")
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.requestBuild),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CategoryDaemon, "create periodic rebuild job")
	}
	return job.ID().String(), nil
}

func (s *Scheduler) requestBuild() {
	err := s.bus.Publish(context.Background(), events.BuildRequested{
		Reason: "scheduled",
		At:     time.Now(),
	})
	if err != nil {
		slog.Warn("Scheduled build request dropped", slog.String("error", err.Error()))
	}
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
