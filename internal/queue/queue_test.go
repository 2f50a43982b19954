package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu       sync.Mutex
	url      string
	payloads []FailurePayload
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, url string, p FailurePayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.url = url
	n.payloads = append(n.payloads, p)
	return nil
}

func setupTestQueue(t *testing.T, opts ...Option) (*Queue, *testClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clk := &testClock{t: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}
	opts = append([]Option{
		WithClock(clk.Now),
		WithVisibilityTimeout(time.Minute),
		WithRetryBackoff(10 * time.Second),
	}, opts...)
	return New(client, "test:dispatch", opts...), clk
}

func publish(t *testing.T, q *Queue, notBefore time.Time, retries int) string {
	t.Helper()
	id, err := q.Publish(context.Background(), PublishRequest{
		Destination:     SendEmailDestination,
		Body:            map[string]string{"recipient_id": "R1"},
		NotBefore:       notBefore,
		Retries:         retries,
		FailureCallback: "https://worker.example/api/queue/failures",
	})
	require.NoError(t, err)
	return id
}

func claimOne(t *testing.T, q *Queue) *Envelope {
	t.Helper()
	envs, err := q.Claim(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	return envs[0]
}

func TestQueue_MessageInvisibleUntilNotBefore(t *testing.T) {
	q, clk := setupTestQueue(t)
	ctx := context.Background()
	id := publish(t, q, clk.Now().Add(30*time.Minute), 2)

	envs, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, envs)

	clk.Advance(30 * time.Minute)
	env := claimOne(t, q)
	assert.Equal(t, id, env.ID)
	assert.JSONEq(t, `{"recipient_id":"R1"}`, string(env.Body))
	assert.Equal(t, 2, env.MaxRetries)

	// Claimed messages are not handed out twice.
	envs, err = q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestQueue_AckRemovesMessage(t *testing.T) {
	q, clk := setupTestQueue(t)
	ctx := context.Background()
	id := publish(t, q, clk.Now(), 2)

	claimOne(t, q)
	require.NoError(t, q.Ack(ctx, id))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	_, err = q.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueue_FailReschedulesWithBackoff(t *testing.T) {
	q, clk := setupTestQueue(t)
	ctx := context.Background()
	publish(t, q, clk.Now(), 2)

	env := claimOne(t, q)
	dead, err := q.Fail(ctx, env, errors.New("smtp timeout"))
	require.NoError(t, err)
	assert.False(t, dead)

	envs, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, envs, "retry must wait for backoff")

	clk.Advance(10 * time.Second)
	env = claimOne(t, q)
	assert.Equal(t, 1, env.Retried)
	assert.Equal(t, "smtp timeout", env.LastError)

	// Second retry waits twice as long.
	_, err = q.Fail(ctx, env, errors.New("smtp timeout"))
	require.NoError(t, err)
	clk.Advance(10 * time.Second)
	envs, err = q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, envs)
	clk.Advance(10 * time.Second)
	claimOne(t, q)
}

func TestQueue_ExhaustedRetriesDeadLetterAndNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	q, clk := setupTestQueue(t, WithFailureNotifier(notifier))
	ctx := context.Background()
	id := publish(t, q, clk.Now(), 2)

	var dead bool
	for attempt := 0; attempt < 3; attempt++ {
		env := claimOne(t, q)
		var err error
		dead, err = q.Fail(ctx, env, errors.New("gmail 503"))
		require.NoError(t, err)
		clk.Advance(time.Hour)
	}
	assert.True(t, dead)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Dead: 1}, stats)

	letters, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, id, letters[0].ID)
	assert.NotEmpty(t, letters[0].DLQID)

	require.Len(t, notifier.payloads, 1)
	p := notifier.payloads[0]
	assert.Equal(t, "https://worker.example/api/queue/failures", notifier.url)
	assert.Equal(t, StatusTransient, p.Status)
	assert.Equal(t, 2, p.Retried)
	assert.Equal(t, 2, p.MaxRetries)
	assert.Equal(t, id, p.SourceMessageID)
	assert.Equal(t, letters[0].DLQID, p.DLQID)
	assert.Equal(t, SendEmailDestination, p.URL)

	src, err := base64.StdEncoding.DecodeString(p.SourceBody)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recipient_id":"R1"}`, string(src))
	body, err := base64.StdEncoding.DecodeString(p.Body)
	require.NoError(t, err)
	assert.Equal(t, "gmail 503", string(body))
}

func TestQueue_PermanentErrorSkipsRetries(t *testing.T) {
	notifier := &recordingNotifier{}
	q, clk := setupTestQueue(t, WithFailureNotifier(notifier))
	publish(t, q, clk.Now(), 2)

	env := claimOne(t, q)
	dead, err := q.Fail(context.Background(), env, Permanent(errors.New("recipient has no email")))
	require.NoError(t, err)
	assert.True(t, dead)

	require.Len(t, notifier.payloads, 1)
	assert.Equal(t, StatusPermanent, notifier.payloads[0].Status)
	assert.Equal(t, 0, notifier.payloads[0].Retried)
}

func TestQueue_RecoverReturnsExpiredClaims(t *testing.T) {
	q, clk := setupTestQueue(t)
	ctx := context.Background()
	id := publish(t, q, clk.Now(), 2)
	claimOne(t, q)

	n, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "visibility not yet expired")

	clk.Advance(2 * time.Minute)
	n, err = q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	env := claimOne(t, q)
	assert.Equal(t, id, env.ID)
}

func TestQueue_ClaimRespectsLimit(t *testing.T) {
	q, clk := setupTestQueue(t)
	for i := 0; i < 5; i++ {
		publish(t, q, clk.Now().Add(time.Duration(i)*time.Second), 0)
	}
	clk.Advance(time.Minute)

	envs, err := q.Claim(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, envs, 3)

	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Ready: 2, Processing: 3}, stats)
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.Nil(t, Permanent(nil))
}

func TestEnvelopeJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(FailurePayload{DLQID: "d", SourceMessageID: "m", MaxRetries: 2})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dlqId":"d"`)
	assert.Contains(t, string(data), `"sourceMessageId":"m"`)
	assert.Contains(t, string(data), `"maxRetries":2`)
}
