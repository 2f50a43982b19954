package allocation

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Plan is the output of one allocation run.
type Plan struct {
	Assignments []domain.Assignment `json:"assignments"`
	Stats       Stats               `json:"stats"`
}

// Stats summarizes an allocation run.
type Stats struct {
	RecipientsConsidered int `json:"recipients_considered"`
	// AvailableSlots is the slot total at the start of stage 5: slots left
	// after the run plus slots consumed by assignments.
	AvailableSlots int            `json:"available_slots"`
	Quotas         map[string]int `json:"quotas"`
	PerSender      map[string]int `json:"per_sender"`
	PerCampaign    map[string]int `json:"per_campaign"`
	Passes         int            `json:"passes"`
}

// Engine plans allocations over data read from a Source.
type Engine struct {
	src Source
	now func() time.Time

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for the recency window.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand sets the random source used by the random selection strategy.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// NewEngine creates an engine reading from src.
func NewEngine(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan loads a snapshot and allocates over it. Zero-valued config fields
// take their defaults. Source errors are returned wrapped; the allocation
// itself never fails.
func (e *Engine) Plan(ctx context.Context, cfg Config) (*Plan, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	snap, err := LoadSnapshot(ctx, e.src, cfg, e.now())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	plan := Allocate(snap, cfg, e.rng)
	e.mu.Unlock()

	logger.Info("allocation planned",
		"component", "allocation",
		"campaigns", len(snap.Campaigns),
		"senders", len(snap.Senders),
		"recipients", plan.Stats.RecipientsConsidered,
		"available_slots", plan.Stats.AvailableSlots,
		"assignments", len(plan.Assignments),
		"passes", plan.Stats.Passes,
		"duration", time.Since(start),
	)
	return plan, nil
}

// Allocate runs stages 2-5 over snap. It is deterministic for the
// round_robin and least_loaded strategies; random draws from rng, or from
// the global source when rng is nil.
func Allocate(snap *Snapshot, cfg Config, rng *rand.Rand) *Plan {
	ix := buildIndex(snap, cfg)
	totalSlots := ix.totalSlots()

	counts := make([]int, len(ix.senders))
	for si := range ix.senders {
		counts[si] = len(ix.candidatesBySender[si])
	}
	quotas := computeQuotas(cfg.QuotaStrategy, totalSlots, counts, cfg.MaxAssignmentsPerSender)

	d := distribute(ix, quotas, newSelector(cfg.CampaignSelection, rng))

	plan := &Plan{
		Assignments: make([]domain.Assignment, 0, len(d.placements)),
		Stats: Stats{
			RecipientsConsidered: len(snap.Recipients),
			AvailableSlots:       ix.totalSlots() + len(d.placements),
			Quotas:               make(map[string]int, len(ix.senders)),
			PerSender:            make(map[string]int, len(ix.senders)),
			PerCampaign:          make(map[string]int, len(ix.campaigns)),
			Passes:               d.passes,
		},
	}
	for _, p := range d.placements {
		plan.Assignments = append(plan.Assignments, domain.Assignment{
			CampaignID:  ix.campaigns[p.campaign].ID,
			SenderID:    ix.senders[p.sender].ID,
			RecipientID: ix.recipients[p.recipient].ID,
		})
	}
	for si, s := range ix.senders {
		plan.Stats.Quotas[s.ID] = quotas[si]
		plan.Stats.PerSender[s.ID] = d.perSender[si]
	}
	for ci, c := range ix.campaigns {
		plan.Stats.PerCampaign[c.ID] = d.perCampaign[ci]
	}
	return plan
}
