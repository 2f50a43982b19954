package schedule

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/allocation"
)

// Planner produces an allocation plan. *allocation.Engine satisfies it.
type Planner interface {
	Plan(ctx context.Context, cfg allocation.Config) (*allocation.Plan, error)
}

// Dispatcher durably schedules one message for delivery at or after its
// ScheduledAt and returns the message id.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.DispatchMessage) (string, error)
}

// Stats mirrors the allocation stats relevant to a scheduling run.
type Stats struct {
	RecipientsConsidered int `json:"recipients_considered"`
	AvailableSlots       int `json:"available_slots"`
	Assignments          int `json:"assignments"`
}

// Result summarizes one ScheduleDaily run.
type Result struct {
	Success   bool `json:"success"`
	Scheduled int  `json:"scheduled"`
	Failed    int  `json:"failed"`
	// ScheduledTimes holds the send time of every successful submission in
	// assignment order.
	ScheduledTimes []time.Time    `json:"scheduled_times"`
	Stats          Stats          `json:"stats"`
	Duration       time.Duration  `json:"duration"`
	Failures       []FailedSubmit `json:"failures,omitempty"`
}

// FailedSubmit records one submission the dispatcher rejected.
type FailedSubmit struct {
	Index      int               `json:"index"`
	Assignment domain.Assignment `json:"assignment"`
	Error      string            `json:"error"`
}

// Timed is an assignment with its computed send time.
type Timed struct {
	domain.Assignment
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Preview is the dry-run output: the plan and the times it would use.
type Preview struct {
	Plan  *allocation.Plan `json:"plan"`
	Times []Timed          `json:"times"`
}

// Service runs the daily scheduling job.
type Service struct {
	planner    Planner
	dispatcher Dispatcher
	cfg        Config
	now        func() time.Time

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand sets the random source for send-time offsets.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// NewService creates a scheduling service. Zero-valued config fields take
// their defaults.
func NewService(planner Planner, dispatcher Dispatcher, cfg Config, opts ...Option) *Service {
	s := &Service{
		planner:    planner,
		dispatcher: dispatcher,
		cfg:        cfg.WithDefaults(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// ScheduleDaily plans today's assignments and submits them to the
// dispatcher. Planning errors are returned unchanged and nothing is
// dispatched. Submission errors are counted in the result.
func (s *Service) ScheduleDaily(ctx context.Context) (*Result, error) {
	started := s.now()
	if err := s.cfg.validate(); err != nil {
		return nil, err
	}
	loc, err := s.cfg.location()
	if err != nil {
		return nil, err
	}

	logger.Info("starting daily scheduling", "component", "schedule")
	plan, err := s.planner.Plan(ctx, s.cfg.Allocation)
	if err != nil {
		logger.Error("allocation failed", "component", "schedule", "error", err)
		return nil, err
	}

	res := &Result{
		Success:        true,
		ScheduledTimes: []time.Time{},
		Stats: Stats{
			RecipientsConsidered: plan.Stats.RecipientsConsidered,
			AvailableSlots:       plan.Stats.AvailableSlots,
			Assignments:          len(plan.Assignments),
		},
	}
	if len(plan.Assignments) == 0 {
		logger.Info("no assignments to schedule", "component", "schedule")
		res.Duration = s.now().Sub(started)
		return res, nil
	}

	times := s.sendTimes(len(plan.Assignments), loc)
	ok := make([]bool, len(plan.Assignments))
	errs := make([]error, len(plan.Assignments))

	total := len(plan.Assignments)
	batches := (total + s.cfg.BatchSize - 1) / s.cfg.BatchSize
	for b := 0; b < batches; b++ {
		from := b * s.cfg.BatchSize
		to := min(from+s.cfg.BatchSize, total)

		var wg sync.WaitGroup
		for i := from; i < to; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				msg := domain.DispatchMessage{
					Assignment:      plan.Assignments[i],
					ScheduledAt:     times[i],
					Retries:         s.cfg.EffectiveRetries(),
					FailureCallback: s.cfg.FailureCallback,
				}
				if _, err := s.dispatcher.Dispatch(ctx, msg); err != nil {
					errs[i] = err
					logger.Error("dispatch failed",
						"component", "schedule",
						"index", i,
						"recipient_id", msg.Assignment.RecipientID,
						"error", err,
					)
					return
				}
				ok[i] = true
			}(i)
		}
		wg.Wait()
		logger.Debug("batch submitted", "component", "schedule", "batch", b+1, "batches", batches, "submitted", to)
	}

	for i, done := range ok {
		if done {
			res.Scheduled++
			res.ScheduledTimes = append(res.ScheduledTimes, times[i])
			continue
		}
		res.Failed++
		res.Failures = append(res.Failures, FailedSubmit{
			Index:      i,
			Assignment: plan.Assignments[i],
			Error:      errs[i].Error(),
		})
	}
	res.Success = res.Failed == 0
	res.Duration = s.now().Sub(started)

	logger.Info("daily scheduling complete",
		"component", "schedule",
		"scheduled", res.Scheduled,
		"failed", res.Failed,
		"duration", res.Duration,
	)
	return res, nil
}

// Preview plans and computes send times without dispatching.
func (s *Service) Preview(ctx context.Context, cfg allocation.Config) (*Preview, error) {
	loc, err := s.cfg.location()
	if err != nil {
		return nil, err
	}
	plan, err := s.planner.Plan(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	times := s.sendTimes(len(plan.Assignments), loc)
	out := &Preview{Plan: plan, Times: make([]Timed, len(times))}
	for i, t := range times {
		out.Times[i] = Timed{Assignment: plan.Assignments[i], ScheduledAt: t}
	}
	return out, nil
}

// sendTimes computes all timestamps up front so one seeded source yields
// the same sequence regardless of submission interleaving.
func (s *Service) sendTimes(n int, loc *time.Location) []time.Time {
	now := s.now()
	start, end := Window(now, loc, s.cfg.StartHour, s.cfg.EndHour)
	if now.After(start) {
		logger.Warn("started after window opened, spreading from now",
			"component", "schedule", "window_start", start)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return SendTimes(n, now, start, end, s.cfg.EffectiveMaxOffset(), s.rng)
}
