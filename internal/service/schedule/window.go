package schedule

import (
	"math/rand"
	"time"
)

// Window returns today's business window in loc: [startHour:00, endHour:00).
func Window(now time.Time, loc *time.Location, startHour, endHour int) (start, end time.Time) {
	local := now.In(loc)
	y, m, d := local.Date()
	start = time.Date(y, m, d, startHour, 0, 0, 0, loc)
	end = time.Date(y, m, d, endHour, 0, 0, 0, loc)
	return start, end
}

// SendTimes computes n send times spread across [windowStart, windowEnd).
// The spacing is always window/n. When now is already past windowStart the
// sequence starts at now instead. Each time gets a uniform offset in
// [-maxOffset, +maxOffset] and is never earlier than the sequence start.
func SendTimes(n int, now, windowStart, windowEnd time.Time, maxOffset time.Duration, rng *rand.Rand) []time.Time {
	if n <= 0 {
		return nil
	}
	base := windowEnd.Sub(windowStart) / time.Duration(n)
	start := windowStart
	if now.After(windowStart) {
		start = now
	}

	times := make([]time.Time, n)
	for i := range times {
		delay := base*time.Duration(i) + jitter(rng, maxOffset)
		if delay < 0 {
			delay = 0
		}
		times[i] = start.Add(delay)
	}
	return times
}

func jitter(rng *rand.Rand, maxOffset time.Duration) time.Duration {
	if maxOffset <= 0 {
		return 0
	}
	return time.Duration((rng.Float64()*2 - 1) * float64(maxOffset))
}
