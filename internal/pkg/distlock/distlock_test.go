package distlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_ExclusiveUntilReleased(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "daily", time.Minute)
	b := NewRedisLock(client, "daily", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// b does not own the lock, so its release must not free it.
	require.NoError(t, b.Release(ctx))
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx))
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "daily", time.Second)
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = NewRedisLock(client, "daily", time.Second).Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_Extend(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "daily", time.Second)
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, a.Extend(ctx, time.Minute))
	assert.Greater(t, mr.TTL(a.Key()), 30*time.Second)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, a.Extend(ctx, time.Minute), ErrLockLost)
}

func TestWithLock(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	ran := false
	err := WithLock(ctx, NewRedisLock(client, "job", time.Minute), func(context.Context) error {
		ran = true
		held, err := NewRedisLock(client, "job", time.Minute).Acquire(ctx)
		require.NoError(t, err)
		assert.False(t, held)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// Released afterwards.
	ok, err := NewRedisLock(client, "job", time.Minute).Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithLock_NotAcquiredSkipsFn(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "job", time.Minute)
	_, err := holder.Acquire(ctx)
	require.NoError(t, err)

	err = WithLock(ctx, NewRedisLock(client, "job", time.Minute), func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestWithLock_ReturnsFnError(t *testing.T) {
	_, client := setupTestRedis(t)
	boom := errors.New("boom")

	err := WithLock(context.Background(), NewRedisLock(client, "job", time.Minute), func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPGAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "daily")

	mock.ExpectQuery(`SELECT pg_try_advisory_lock\(\$1\)`).
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(`SELECT pg_advisory_unlock\(\$1\)`).
		WithArgs(l.lockID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Release(ctx))
	require.NoError(t, l.Release(ctx), "second release is a no-op")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_Busy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "daily")
	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, l.conn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewLock_PrefersRedis(t *testing.T) {
	_, client := setupTestRedis(t)
	assert.IsType(t, &RedisLock{}, NewLock(client, nil, "k", time.Minute))
	assert.IsType(t, &PGAdvisoryLock{}, NewLock(nil, nil, "k", time.Minute))
}
