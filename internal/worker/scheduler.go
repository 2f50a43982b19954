package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/ignite/outreach-engine/internal/alert"
	"github.com/ignite/outreach-engine/internal/pkg/distlock"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/schedule"
	"github.com/ignite/outreach-engine/internal/storage"
)

// Runner performs one scheduling pass. *schedule.Service satisfies it.
type Runner interface {
	ScheduleDaily(ctx context.Context) (*schedule.Result, error)
}

// SchedulerOptions configures a DailyScheduler. Lock, Archive and Alerter
// are optional.
type SchedulerOptions struct {
	// Spec is a standard five-field cron expression evaluated in Location.
	Spec     string
	Location *time.Location
	Lock     distlock.DistLock
	Archive  storage.Archive
	Alerter  alert.Alerter
	// Timeout bounds a single run. Zero means no bound.
	Timeout time.Duration
}

// DailyScheduler triggers the scheduling pass on a cron schedule. Runs in
// this process never overlap; the distributed lock keeps replicas from
// running the same tick.
type DailyScheduler struct {
	runner Runner
	opts   SchedulerOptions
	cron   *cron.Cron
	entry  cron.EntryID
	now    func() time.Time
	newID  func() string

	mu sync.Mutex // serializes runs
}

// NewDailyScheduler validates the cron spec and builds the scheduler.
func NewDailyScheduler(runner Runner, opts SchedulerOptions) (*DailyScheduler, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	s := &DailyScheduler{
		runner: runner,
		opts:   opts,
		now:    time.Now,
		newID:  uuid.NewString,
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(opts.Location),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	entry, err := s.cron.AddFunc(opts.Spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", opts.Spec, err)
	}
	s.entry = entry
	return s, nil
}

// Job is an auxiliary task run on the scheduler's cron.
type Job func(ctx context.Context) error

// AddJob registers job on its own cron spec in the scheduler's location.
// The job runs under lock when one is given, is bounded by the scheduler
// timeout and raises an alert on failure. Must be called before Start.
func (s *DailyScheduler) AddJob(name, spec string, lock distlock.DistLock, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.RunJob(context.Background(), name, lock, job); err != nil && !errors.Is(err, distlock.ErrNotAcquired) {
			logger.Error("scheduled job failed", "component", "scheduler", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron spec %q for %s: %w", spec, name, err)
	}
	logger.Info("job registered", "component", "scheduler", "job", name, "spec", spec)
	return nil
}

// RunJob runs job once the way AddJob's cron entry does.
func (s *DailyScheduler) RunJob(ctx context.Context, name string, lock distlock.DistLock, job Job) error {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	var err error
	if lock != nil {
		err = distlock.WithLock(ctx, lock, job)
	} else {
		err = job(ctx)
	}
	switch {
	case errors.Is(err, distlock.ErrNotAcquired):
		logger.Info("job skipped, lock held elsewhere", "component", "scheduler", "job", name)
	case err != nil:
		s.alert(ctx, alert.JobFailed(name, err, s.now()))
	}
	return err
}

// Start begins firing on schedule. It does not block.
func (s *DailyScheduler) Start() {
	logger.Info("daily scheduler started",
		"component", "scheduler",
		"spec", s.opts.Spec,
		"location", s.opts.Location.String(),
	)
	s.cron.Start()
}

// Stop stops the cron and waits for a running pass to finish or ctx to
// expire.
func (s *DailyScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("scheduler stop timed out with a run in progress", "component", "scheduler")
	}
}

// Next returns the next fire time of the scheduling pass.
func (s *DailyScheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *DailyScheduler) tick() {
	if _, err := s.RunOnce(context.Background(), "cron"); err != nil && !errors.Is(err, distlock.ErrNotAcquired) {
		logger.Error("scheduled run failed", "component", "scheduler", "error", err)
	}
}

// RunOnce performs one scheduling pass under the lock, alerts on failure
// and archives the report. It returns distlock.ErrNotAcquired when another
// replica holds the lock.
func (s *DailyScheduler) RunOnce(ctx context.Context, trigger string) (*storage.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	report := &storage.RunReport{RunID: s.newID(), Trigger: trigger, StartedAt: s.now()}
	run := func(ctx context.Context) error {
		res, err := s.runner.ScheduleDaily(ctx)
		report.Result = res
		return err
	}

	var err error
	if s.opts.Lock != nil {
		err = distlock.WithLock(ctx, s.opts.Lock, run)
	} else {
		err = run(ctx)
	}
	report.FinishedAt = s.now()

	if errors.Is(err, distlock.ErrNotAcquired) {
		logger.Info("scheduling run skipped, lock held elsewhere", "component", "scheduler", "run_id", report.RunID)
		return nil, err
	}

	if err != nil {
		report.Error = err.Error()
		logger.Error("scheduling run aborted", "component", "scheduler", "run_id", report.RunID, "error", err)
		s.alert(ctx, alert.SchedulingFailed(report.RunID, err, report.FinishedAt))
	} else if res := report.Result; res != nil && res.Failed > 0 {
		s.alert(ctx, alert.SubmissionsFailed(report.RunID, res.Failed, res.Scheduled+res.Failed, report.FinishedAt))
	}

	if s.opts.Archive != nil {
		if aerr := s.opts.Archive.Save(context.WithoutCancel(ctx), *report); aerr != nil {
			logger.Warn("run report not archived", "component", "scheduler", "run_id", report.RunID, "error", aerr)
		}
	}
	return report, err
}

func (s *DailyScheduler) alert(ctx context.Context, a alert.Alert) {
	if s.opts.Alerter == nil {
		return
	}
	if err := s.opts.Alerter.Send(context.WithoutCancel(ctx), a); err != nil {
		logger.Warn("alert not sent", "component", "scheduler", "subject", a.Subject, "error", err)
	}
}

// cronLogger routes cron's own messages to the structured logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(msg, append([]interface{}{"component", "cron"}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(msg, append([]interface{}{"component", "cron", "error", err}, keysAndValues...)...)
}
