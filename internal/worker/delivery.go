package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/queue"
)

// Deliverer sends one assignment. *delivery.Service satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, a domain.Assignment) error
}

// DeliveryWorker is the queue handler for scheduled sends. Each sender
// identity gets its own token bucket so one busy mailbox cannot starve
// the others or trip provider limits.
type DeliveryWorker struct {
	deliverer Deliverer
	limit     rate.Limit
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDeliveryWorker creates the handler. A non-positive ratePerMinute
// disables throttling.
func NewDeliveryWorker(d Deliverer, ratePerMinute float64, burst int) *DeliveryWorker {
	limit := rate.Inf
	if ratePerMinute > 0 {
		limit = rate.Limit(ratePerMinute / time.Minute.Seconds())
	}
	if burst < 1 {
		burst = 1
	}
	return &DeliveryWorker{
		deliverer: d,
		limit:     limit,
		burst:     burst,
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (w *DeliveryWorker) limiter(senderID string) *rate.Limiter {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.limiters[senderID]
	if !ok {
		l = rate.NewLimiter(w.limit, w.burst)
		w.limiters[senderID] = l
	}
	return l
}

// Handle implements queue.Handler. Malformed messages are permanent
// failures; a throttle wait cut short by the deadline is retried.
func (w *DeliveryWorker) Handle(ctx context.Context, env *queue.Envelope) error {
	if env.Destination != queue.SendEmailDestination {
		return queue.Permanent(fmt.Errorf("unknown destination %q", env.Destination))
	}

	var body queue.EmailBody
	if err := json.Unmarshal(env.Body, &body); err != nil {
		return queue.Permanent(fmt.Errorf("decode message %s: %w", env.ID, err))
	}
	a := domain.Assignment{
		CampaignID:  body.CampaignID,
		SenderID:    body.SenderID,
		RecipientID: body.RecipientID,
	}
	if a.CampaignID == "" || a.SenderID == "" || a.RecipientID == "" {
		return queue.Permanent(fmt.Errorf("message %s: incomplete assignment", env.ID))
	}

	if err := w.limiter(a.SenderID).Wait(ctx); err != nil {
		return fmt.Errorf("throttle sender %s: %w", a.SenderID, err)
	}

	logger.Debug("delivering",
		"component", "worker",
		"message_id", env.ID,
		"attempt", env.Retried+1,
		"sender_id", a.SenderID,
		"recipient_id", a.RecipientID,
		"campaign_id", a.CampaignID,
		"scheduled_at", body.ScheduledAt,
	)
	return w.deliverer.Deliver(ctx, a)
}
