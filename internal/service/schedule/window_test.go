package schedule

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_UsesBusinessLocation(t *testing.T) {
	loc := warsaw(t)
	// 05:30 UTC on a winter day is 06:30 in Warsaw.
	now := time.Date(2026, 1, 15, 5, 30, 0, 0, time.UTC)

	start, end := Window(now, loc, 8, 18)

	assert.Equal(t, time.Date(2026, 1, 15, 8, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2026, 1, 15, 18, 0, 0, 0, loc), end)
	assert.Equal(t, 7*time.Hour, start.Sub(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestSendTimes_EvenSpacingWithoutOffset(t *testing.T) {
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)

	times := SendTimes(4, start.Add(-time.Hour), start, end, 0, rand.New(rand.NewSource(1)))

	require.Len(t, times, 4)
	for i, ts := range times {
		assert.Equal(t, start.Add(time.Duration(i)*2*time.Hour), ts)
	}
}

func TestSendTimes_OffsetIsBoundedAndClamped(t *testing.T) {
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Hour)
	rng := rand.New(rand.NewSource(5))

	for n := 1; n <= 50; n++ {
		base := 10 * time.Hour / time.Duration(n)
		times := SendTimes(n, start, start, end, 15*time.Minute, rng)
		for i, ts := range times {
			assert.False(t, ts.Before(start))
			expected := start.Add(base * time.Duration(i))
			assert.LessOrEqual(t, ts.Sub(expected), 15*time.Minute)
			if i > 0 {
				assert.GreaterOrEqual(t, ts.Sub(expected), -15*time.Minute)
			}
		}
	}
}

func TestSendTimes_LateStartKeepsFullWindowSpacing(t *testing.T) {
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Hour)
	now := start.Add(4 * time.Hour)

	times := SendTimes(5, now, start, end, 0, rand.New(rand.NewSource(1)))

	assert.Equal(t, now, times[0])
	assert.Equal(t, now.Add(2*time.Hour), times[1])
}

func TestSendTimes_Empty(t *testing.T) {
	assert.Nil(t, SendTimes(0, time.Now(), time.Now(), time.Now(), time.Minute, rand.New(rand.NewSource(1))))
}
