package provider

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/sweeney/callboard/internal/config"
)

// Scheduler runs the poller's fetch jobs on cron schedules. A job that is
// still running when its next tick fires is skipped.
type Scheduler struct {
	poller *Poller
	cron   *cron.Cron
	ctx    context.Context
	wg     sync.WaitGroup
}

// NewScheduler registers the three fetch jobs. It fails if a spec does not
// parse.
func NewScheduler(poller *Poller, specs config.ScheduleConfig) (*Scheduler, error) {
	s := &Scheduler{
		poller: poller,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:    context.Background(),
	}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"call_data", specs.CallData, s.fetchCallData},
		{"customer_data", specs.CustomerData, poller.FetchCustomerData},
		{"contacts", specs.Contacts, poller.FetchContacts},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, func() {
			if err := job.run(s.ctx); err != nil {
				slog.Error("fetch failed", "job", job.name, "error", err)
			}
		}); err != nil {
			return nil, err
		}
		slog.Info("scheduled fetch", "job", job.name, "schedule", job.spec)
	}
	return s, nil
}

func (s *Scheduler) fetchCallData(ctx context.Context) error {
	_, err := s.poller.FetchCallData(ctx)
	return err
}

// Start fetches call data once in the background and starts the cron
// ticker. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.fetchCallData(ctx); err != nil {
			slog.Error("initial fetch failed", "job", "call_data", "error", err)
		}
	}()
	s.cron.Start()
}

// Stop stops the ticker and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}
