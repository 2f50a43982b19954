package ingest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Defaults for Options.
const (
	DefaultBatchSize   = 500
	DefaultConcurrency = 25
	DefaultBatchPause  = time.Second
)

// Options tunes an ingestion pass.
type Options struct {
	// MinRegistrationDate drops companies registered earlier. Zero uses
	// the bulletin day itself.
	MinRegistrationDate time.Time
	// BatchSize is how many extracts are fetched between pauses.
	BatchSize int
	// Concurrency bounds extract lookups in flight within a batch.
	Concurrency int
	// BatchPause is the wait between batches. Negative disables it.
	BatchPause time.Duration
	// Location decides which calendar day "yesterday" is.
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.BatchPause == 0 {
		o.BatchPause = DefaultBatchPause
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// Result summarizes one ingestion pass.
type Result struct {
	Day string `json:"day"`
	// Found is the number of entries in the bulletin.
	Found int `json:"found"`
	// LookupFailed counts extracts that could not be fetched or parsed.
	LookupFailed int `json:"lookup_failed"`
	// Skipped counts companies dropped for missing data or an early
	// registration date.
	Skipped int `json:"skipped"`
	Saved   int `json:"saved"`
	Failed  int `json:"failed"`
}

// Service runs ingestion passes. It is safe for concurrent use.
type Service struct {
	registry Registry
	repo     Repository
	opts     Options
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewService creates an ingestion service.
func NewService(registry Registry, repo Repository, opts Options) *Service {
	return &Service{
		registry: registry,
		repo:     repo,
		opts:     opts.withDefaults(),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// IngestYesterday ingests the bulletin of the previous calendar day in
// the configured location.
func (s *Service) IngestYesterday(ctx context.Context) (*Result, error) {
	return s.Ingest(ctx, s.now().In(s.opts.Location).AddDate(0, 0, -1))
}

// Ingest reads the bulletin for day, fetches and filters the listed
// companies and upserts them. Bulletin and repository errors are
// returned; per-company lookup failures are counted.
func (s *Service) Ingest(ctx context.Context, day time.Time) (*Result, error) {
	res := &Result{Day: day.Format("2006-01-02")}
	minDate := s.opts.MinRegistrationDate
	if minDate.IsZero() {
		minDate = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	}
	logger.Info("registry ingestion started",
		"component", "ingest", "day", res.Day, "min_registration_date", minDate.Format("2006-01-02"))

	numbers, err := s.registry.Bulletin(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("read bulletin %s: %w", res.Day, err)
	}
	res.Found = len(numbers)
	if len(numbers) == 0 {
		logger.Info("no new companies in bulletin", "component", "ingest", "day", res.Day)
		return res, nil
	}

	// Newest entries come last in the bulletin.
	numbers = slices.Clone(numbers)
	slices.Reverse(numbers)

	companies, failed, err := s.fetchAll(ctx, numbers)
	if err != nil {
		return nil, err
	}
	res.LookupFailed = failed

	toSave := make([]domain.RegistryCompany, 0, len(companies))
	for _, c := range companies {
		switch {
		case c.RegistryNumber == "" || c.Name == "" || c.RegisteredAt.IsZero():
			logger.Warn("skipping company with missing data",
				"component", "ingest", "registry_number", c.RegistryNumber, "name", c.Name)
			res.Skipped++
		case c.RegisteredAt.Before(minDate):
			logger.Debug("skipping company registered before minimum date",
				"component", "ingest", "registry_number", c.RegistryNumber,
				"registered_at", c.RegisteredAt.Format("2006-01-02"))
			res.Skipped++
		default:
			toSave = append(toSave, *c)
		}
	}

	if len(toSave) > 0 {
		up, err := s.repo.UpsertRecipients(ctx, toSave)
		if err != nil {
			return nil, fmt.Errorf("save companies: %w", err)
		}
		res.Saved, res.Failed = up.Saved, up.Failed
	}

	logger.Info("registry ingestion finished",
		"component", "ingest",
		"day", res.Day,
		"found", res.Found,
		"lookup_failed", res.LookupFailed,
		"skipped", res.Skipped,
		"saved", res.Saved,
		"failed", res.Failed,
	)
	return res, nil
}

// fetchAll looks up extracts batch by batch, pausing between batches.
// Only context cancellation aborts the pass.
func (s *Service) fetchAll(ctx context.Context, numbers []string) ([]*domain.RegistryCompany, int, error) {
	var (
		out    []*domain.RegistryCompany
		failed int
	)
	batches := (len(numbers) + s.opts.BatchSize - 1) / s.opts.BatchSize
	for b := 0; b < batches; b++ {
		from := b * s.opts.BatchSize
		to := min(from+s.opts.BatchSize, len(numbers))
		batch := numbers[from:to]
		logger.Debug("fetching extract batch",
			"component", "ingest", "batch", b+1, "batches", batches, "size", len(batch))

		found := make([]*domain.RegistryCompany, len(batch))
		errs := make([]error, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Concurrency)
		for i, number := range batch {
			i, number := i, number
			g.Go(func() error {
				found[i], errs[i] = s.registry.Company(gctx, number)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		for i := range batch {
			switch {
			case errs[i] != nil:
				failed++
				if !errors.Is(errs[i], ErrNotFound) {
					logger.Warn("extract lookup failed",
						"component", "ingest", "registry_number", batch[i], "error", errs[i])
				}
			case found[i] != nil:
				out = append(out, found[i])
			default:
				failed++
			}
		}

		if to < len(numbers) && s.opts.BatchPause > 0 {
			if err := s.sleep(ctx, s.opts.BatchPause); err != nil {
				return nil, 0, err
			}
		}
	}
	return out, failed, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
