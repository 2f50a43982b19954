package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeQuotas(t *testing.T) {
	tests := []struct {
		name     string
		strategy QuotaStrategy
		total    int
		counts   []int
		max      int
		want     []int
	}{
		{"equal remainder to first", QuotaEqual, 10, []int{5, 5, 5}, 0, []int{4, 3, 3}},
		{"equal remainder skips capped sender", QuotaEqual, 10, []int{1, 10, 10}, 0, []int{1, 4, 3}},
		{"equal fewer slots than senders", QuotaEqual, 2, []int{3, 3, 3}, 0, []int{1, 1, 0}},
		{"equal capped by max", QuotaEqual, 12, []int{10, 10}, 2, []int{2, 2}},
		{"equal all capped drops remainder", QuotaEqual, 7, []int{1, 1}, 0, []int{1, 1}},
		{"equal no slots", QuotaEqual, 0, []int{3, 3}, 0, []int{0, 0}},
		{"equal no senders", QuotaEqual, 5, nil, 0, []int{}},
		{"proportional floors shares", QuotaProportional, 10, []int{1, 3}, 0, []int{1, 3}},
		{"proportional uneven", QuotaProportional, 9, []int{2, 6}, 0, []int{2, 6}},
		{"proportional small total", QuotaProportional, 3, []int{2, 2}, 0, []int{1, 1}},
		{"proportional capped by max", QuotaProportional, 100, []int{50, 50}, 5, []int{5, 5}},
		{"proportional zero candidates", QuotaProportional, 10, []int{0, 0}, 0, []int{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeQuotas(tt.strategy, tt.total, tt.counts, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSenderCap(t *testing.T) {
	assert.Equal(t, 4, senderCap(4, 0))
	assert.Equal(t, 2, senderCap(4, 2))
	assert.Equal(t, 4, senderCap(4, 10))
}
