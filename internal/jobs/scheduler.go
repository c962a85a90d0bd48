package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// MonthStartSpec fires at midnight on the first day of every month.
const MonthStartSpec = "0 0 1 * *"

type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(location *time.Location) *Scheduler {
	if location == nil {
		location = time.Local
	}
	return &Scheduler{cron: cron.New(cron.WithLocation(location))}
}

func (s *Scheduler) AddMonthRollover(job *MonthRolloverJob) (cron.EntryID, error) {
	return s.cron.AddJob(MonthStartSpec, job)
}

func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
