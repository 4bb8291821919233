package jobs

import (
	"context"
	"fmt"
	"time"

	"food-dispatch/internal/mylogger"

	"github.com/robfig/cron/v3"
)

// Job runs fn on a fixed interval. Runs of the same job never overlap; runs
// of different jobs and in-flight requests may.
type Job struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       func(ctx context.Context) error
	cron     *cron.Cron
	log      mylogger.Logger
	cancel   context.CancelFunc
}

func New(name string, interval time.Duration, fn func(ctx context.Context) error, log mylogger.Logger) *Job {
	return &Job{
		name:     name,
		interval: interval,
		timeout:  interval,
		fn:       fn,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:      log.With("component", name),
	}
}

// Start schedules the job. Runs derive their context from ctx.
func (j *Job) Start(ctx context.Context) error {
	ctx, j.cancel = context.WithCancel(ctx)
	_, err := j.cron.AddFunc(fmt.Sprintf("@every %s", j.interval), func() {
		j.RunOnce(ctx)
	})
	if err != nil {
		j.cancel()
		return fmt.Errorf("schedule %s: %w", j.name, err)
	}
	j.cron.Start()
	j.log.Info("job started", "interval", j.interval.String())
	return nil
}

// RunOnce executes one iteration synchronously.
func (j *Job) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	if err := j.fn(runCtx); err != nil {
		j.log.Error("job run failed", err, "duration", time.Since(start).String())
		return
	}
	j.log.Debug("job run finished", "duration", time.Since(start).String())
}

// Stop stops scheduling and waits for a running iteration to return.
func (j *Job) Stop() {
	<-j.cron.Stop().Done()
	if j.cancel != nil {
		j.cancel()
	}
	j.log.Info("job stopped")
}

// Manager starts and stops a set of jobs together.
type Manager struct {
	jobs []*Job
}

func NewManager(jobs ...*Job) *Manager {
	return &Manager{jobs: jobs}
}

func (m *Manager) StartAll(ctx context.Context) error {
	for i, j := range m.jobs {
		if err := j.Start(ctx); err != nil {
			for _, started := range m.jobs[:i] {
				started.Stop()
			}
			return err
		}
	}
	return nil
}

func (m *Manager) StopAll() {
	for _, j := range m.jobs {
		j.Stop()
	}
}
