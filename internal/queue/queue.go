package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

const (
	DefaultVisibilityTimeout = 2 * time.Minute
	DefaultRetryBackoff      = time.Minute
	MaxRetryBackoff          = time.Hour

	// StatusTransient and StatusPermanent are reported in FailurePayload.Status.
	StatusTransient = http.StatusInternalServerError
	StatusPermanent = http.StatusUnprocessableEntity
)

var (
	claimScript = redis.NewScript(`
		local ids = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, ARGV[3])
		for _, id in ipairs(ids) do
			redis.call("ZREM", KEYS[1], id)
			redis.call("ZADD", KEYS[2], ARGV[2], id)
		end
		return ids
	`)
	recoverScript = redis.NewScript(`
		local ids = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
		for _, id in ipairs(ids) do
			redis.call("ZREM", KEYS[1], id)
			redis.call("ZADD", KEYS[2], ARGV[1], id)
		end
		return #ids
	`)
)

// Queue is a Redis-backed delayed queue. It is safe for concurrent use.
type Queue struct {
	client     *redis.Client
	prefix     string
	visibility time.Duration
	backoff    time.Duration
	notifier   FailureNotifier
	now        func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithVisibilityTimeout sets how long a claimed message stays invisible.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(q *Queue) { q.visibility = d }
}

// WithRetryBackoff sets the base delay before the first retry; later
// retries double it up to MaxRetryBackoff.
func WithRetryBackoff(d time.Duration) Option {
	return func(q *Queue) { q.backoff = d }
}

// WithFailureNotifier sets who is told about dead-lettered messages.
func WithFailureNotifier(n FailureNotifier) Option {
	return func(q *Queue) { q.notifier = n }
}

// WithClock overrides the clock used for scores.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New creates a queue storing its keys under prefix.
func New(client *redis.Client, prefix string, opts ...Option) *Queue {
	q := &Queue{
		client:     client,
		prefix:     prefix,
		visibility: DefaultVisibilityTimeout,
		backoff:    DefaultRetryBackoff,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) msgKey() string        { return q.prefix + ":msg" }
func (q *Queue) readyKey() string      { return q.prefix + ":ready" }
func (q *Queue) processingKey() string { return q.prefix + ":processing" }
func (q *Queue) deadKey() string       { return q.prefix + ":dead" }

// Publish stores a message to become claimable at req.NotBefore.
func (q *Queue) Publish(ctx context.Context, req PublishRequest) (string, error) {
	body, err := json.Marshal(req.Body)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	notBefore := req.NotBefore
	if notBefore.IsZero() {
		notBefore = q.now()
	}
	env := &Envelope{
		ID:              uuid.NewString(),
		Destination:     req.Destination,
		Body:            body,
		NotBefore:       notBefore,
		MaxRetries:      req.Retries,
		FailureCallback: req.FailureCallback,
		CreatedAt:       q.now(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, q.msgKey(), env.ID, data)
		p.ZAdd(ctx, q.readyKey(), redis.Z{Score: float64(score(notBefore)), Member: env.ID})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", env.ID, err)
	}
	return env.ID, nil
}

// Claim moves up to limit due messages to processing and returns them.
func (q *Queue) Claim(ctx context.Context, limit int) ([]*Envelope, error) {
	if limit <= 0 {
		return nil, nil
	}
	now := q.now()
	ids, err := claimScript.Run(ctx, q.client,
		[]string{q.readyKey(), q.processingKey()},
		score(now), score(now.Add(q.visibility)), limit,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	raw, err := q.client.HMGet(ctx, q.msgKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load claimed: %w", err)
	}
	out := make([]*Envelope, 0, len(ids))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			// Envelope vanished; drop the dangling id.
			q.client.ZRem(ctx, q.processingKey(), ids[i])
			continue
		}
		var env Envelope
		if err := json.Unmarshal([]byte(s), &env); err != nil {
			logger.Error("corrupt envelope", "component", "queue", "id", ids[i], "error", err)
			q.client.ZRem(ctx, q.processingKey(), ids[i])
			continue
		}
		out = append(out, &env)
	}
	return out, nil
}

// Ack removes a successfully handled message.
func (q *Queue) Ack(ctx context.Context, id string) error {
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, q.processingKey(), id)
		p.HDel(ctx, q.msgKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ack %s: %w", id, err)
	}
	return nil
}

// Fail records a handler failure. The message is re-scheduled with backoff
// while retries remain and cause is not permanent; otherwise it is
// dead-lettered and the failure callback, if any, is notified. It reports
// whether the message was dead-lettered.
func (q *Queue) Fail(ctx context.Context, env *Envelope, cause error) (bool, error) {
	env.LastError = cause.Error()
	env.LastStatus = StatusTransient
	if IsPermanent(cause) {
		env.LastStatus = StatusPermanent
	}

	if env.LastStatus == StatusTransient && env.Retried < env.MaxRetries {
		env.Retried++
		env.NotBefore = q.now().Add(q.retryDelay(env.Retried))
		data, err := json.Marshal(env)
		if err != nil {
			return false, err
		}
		_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, q.msgKey(), env.ID, data)
			p.ZRem(ctx, q.processingKey(), env.ID)
			p.ZAdd(ctx, q.readyKey(), redis.Z{Score: float64(score(env.NotBefore)), Member: env.ID})
			return nil
		})
		if err != nil {
			return false, fmt.Errorf("reschedule %s: %w", env.ID, err)
		}
		logger.Warn("message rescheduled",
			"component", "queue",
			"id", env.ID,
			"retried", env.Retried,
			"max_retries", env.MaxRetries,
			"not_before", env.NotBefore,
			"error", cause,
		)
		return false, nil
	}

	env.DLQID = uuid.NewString()
	data, err := json.Marshal(env)
	if err != nil {
		return false, err
	}
	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, q.msgKey(), env.ID, data)
		p.ZRem(ctx, q.processingKey(), env.ID)
		p.LPush(ctx, q.deadKey(), env.ID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("dead-letter %s: %w", env.ID, err)
	}
	logger.Error("message dead-lettered",
		"component", "queue",
		"id", env.ID,
		"dlq_id", env.DLQID,
		"retried", env.Retried,
		"error", cause,
	)

	if env.FailureCallback != "" && q.notifier != nil {
		if err := q.notifier.NotifyFailure(ctx, env.FailureCallback, q.failurePayload(env)); err != nil {
			logger.Error("failure callback failed", "component", "queue", "id", env.ID, "error", err)
		}
	}
	return true, nil
}

func (q *Queue) failurePayload(env *Envelope) FailurePayload {
	return FailurePayload{
		Status:          env.LastStatus,
		Body:            base64.StdEncoding.EncodeToString([]byte(env.LastError)),
		Retried:         env.Retried,
		MaxRetries:      env.MaxRetries,
		DLQID:           env.DLQID,
		SourceMessageID: env.ID,
		URL:             env.Destination,
		SourceBody:      base64.StdEncoding.EncodeToString(env.Body),
		CreatedAt:       q.now().UnixMilli(),
	}
}

func (q *Queue) retryDelay(retried int) time.Duration {
	d := q.backoff
	for i := 1; i < retried && d < MaxRetryBackoff; i++ {
		d *= 2
	}
	return min(d, MaxRetryBackoff)
}

// Recover returns messages whose visibility timeout expired to the ready
// set, making them claimable immediately. It returns how many moved.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	n, err := recoverScript.Run(ctx, q.client,
		[]string{q.processingKey(), q.readyKey()},
		score(q.now()),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("recover: %w", err)
	}
	return n, nil
}

// Get returns the stored envelope for id.
func (q *Queue) Get(ctx context.Context, id string) (*Envelope, error) {
	s, err := q.client.HGet(ctx, q.msgKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return &env, nil
}

// DeadLetters returns up to limit dead-lettered messages, newest first.
func (q *Queue) DeadLetters(ctx context.Context, limit int) ([]*Envelope, error) {
	ids, err := q.client.LRange(ctx, q.deadKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	out := make([]*Envelope, 0, len(ids))
	for _, id := range ids {
		env, err := q.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

// Stats counts messages per state.
type Stats struct {
	Ready      int64 `json:"ready"`
	Processing int64 `json:"processing"`
	Dead       int64 `json:"dead"`
}

// Stats returns current queue depths.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var ready, processing, dead *redis.IntCmd
	_, err := q.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		ready = p.ZCard(ctx, q.readyKey())
		processing = p.ZCard(ctx, q.processingKey())
		dead = p.LLen(ctx, q.deadKey())
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return Stats{Ready: ready.Val(), Processing: processing.Val(), Dead: dead.Val()}, nil
}

func score(t time.Time) int64 {
	return t.UnixMilli()
}
