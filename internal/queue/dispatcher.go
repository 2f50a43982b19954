package queue

import (
	"context"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// SendEmailDestination names the handler scheduled sends are routed to.
const SendEmailDestination = "send-email"

const readableLayout = "2006-01-02 15:04:05 MST"

// Dispatcher publishes scheduled assignments onto a Queue.
type Dispatcher struct {
	queue *Queue
	loc   *time.Location
}

// NewDispatcher creates a dispatcher; loc is used for the human-readable
// time in the message body.
func NewDispatcher(q *Queue, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{queue: q, loc: loc}
}

// Dispatch publishes msg for delivery at msg.ScheduledAt.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.DispatchMessage) (string, error) {
	return d.queue.Publish(ctx, PublishRequest{
		Destination: SendEmailDestination,
		Body: EmailBody{
			SenderID:            msg.Assignment.SenderID,
			RecipientID:         msg.Assignment.RecipientID,
			CampaignID:          msg.Assignment.CampaignID,
			ScheduledAt:         msg.ScheduledAt.UTC().Format(time.RFC3339),
			ScheduledAtReadable: msg.ScheduledAt.In(d.loc).Format(readableLayout),
		},
		NotBefore:       msg.ScheduledAt,
		Retries:         msg.Retries,
		FailureCallback: msg.FailureCallback,
	})
}
