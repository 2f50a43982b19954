package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Handler processes one message. Returning an error schedules a retry
// unless the error is Permanent.
type Handler func(ctx context.Context, env *Envelope) error

const (
	DefaultPollInterval = time.Second
	DefaultConcurrency  = 4
	ackTimeout          = 10 * time.Second
)

// Consumer claims due messages and runs them through a handler with
// bounded concurrency.
type Consumer struct {
	queue       *Queue
	handler     Handler
	concurrency int
	poll        time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer creates a consumer. Non-positive values take defaults.
func NewConsumer(q *Queue, handler Handler, concurrency int, poll time.Duration) *Consumer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Consumer{queue: q, handler: handler, concurrency: concurrency, poll: poll}
}

// Start polls until ctx is cancelled or Stop is called. It blocks and
// returns after in-flight handlers finish.
func (c *Consumer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()
	defer close(done)
	defer cancel()

	logger.Info("consumer starting", "component", "queue", "concurrency", c.concurrency, "poll", c.poll)
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		if _, err := c.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Error("poll failed", "component", "queue", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("consumer stopped", "component", "queue")
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels Start and waits for it to return.
func (c *Consumer) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// ProcessOnce claims up to the concurrency limit of due messages, handles
// them concurrently and waits for all of them. It returns how many were
// claimed.
func (c *Consumer) ProcessOnce(ctx context.Context) (int, error) {
	envs, err := c.queue.Claim(ctx, c.concurrency)
	if err != nil {
		return 0, err
	}
	var wg sync.WaitGroup
	for _, env := range envs {
		wg.Add(1)
		go func(env *Envelope) {
			defer wg.Done()
			c.handle(ctx, env)
		}(env)
	}
	wg.Wait()
	return len(envs), nil
}

func (c *Consumer) handle(ctx context.Context, env *Envelope) {
	// Handlers outlive a shutdown signal but not the visibility timeout.
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.queue.visibility)
	defer cancel()

	err := c.safeHandle(hctx, env)

	actx, acancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
	defer acancel()
	if err == nil {
		if aerr := c.queue.Ack(actx, env.ID); aerr != nil {
			logger.Error("ack failed", "component", "queue", "id", env.ID, "error", aerr)
		}
		return
	}
	if _, ferr := c.queue.Fail(actx, env, err); ferr != nil {
		logger.Error("fail bookkeeping failed", "component", "queue", "id", env.ID, "error", ferr)
	}
}

func (c *Consumer) safeHandle(ctx context.Context, env *Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler(ctx, env)
}
