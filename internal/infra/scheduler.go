package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	zlog "github.com/rs/zerolog/log"
)

// JobFunc is a unit of scheduled work
type JobFunc func(ctx context.Context) error

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron       *cron.Cron
	jobTimeout time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	jobs       []string
}

// NewScheduler creates a new scheduler. Each run gets its own timeout derived from jobTimeout.
func NewScheduler(jobTimeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		jobTimeout: jobTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// AddJob registers fn under spec. An empty spec leaves the job disabled.
func (s *Scheduler) AddJob(name, spec string, fn JobFunc) error {
	if spec == "" {
		zlog.Info().Str("job", name).Msg("Job disabled (empty schedule)")
		return nil
	}

	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
		defer cancel()

		err := fn(ctx)
		CronRun(name, err)
		if err != nil {
			zlog.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s (%s): %w", name, spec, err)
	}

	s.jobs = append(s.jobs, name+" ("+spec+")")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	zlog.Info().Strs("jobs", s.jobs).Msg("Scheduler started")
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	zlog.Info().Msg("Stopping scheduler...")
	s.cancel()
	<-s.cron.Stop().Done()
	zlog.Info().Msg("Scheduler stopped")
}
