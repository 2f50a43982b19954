package allocation

// senderCap bounds a sender's quota by its candidate count and the
// per-sender maximum (zero means unbounded).
func senderCap(candidates, maxPerSender int) int {
	if maxPerSender > 0 && maxPerSender < candidates {
		return maxPerSender
	}
	return candidates
}

// computeQuotas splits totalSlots across senders with the given candidate
// counts. The result is index-aligned with counts.
func computeQuotas(strategy QuotaStrategy, totalSlots int, counts []int, maxPerSender int) []int {
	if strategy == QuotaProportional {
		return proportionalQuotas(totalSlots, counts, maxPerSender)
	}
	return equalQuotas(totalSlots, counts, maxPerSender)
}

func equalQuotas(totalSlots int, counts []int, maxPerSender int) []int {
	quotas := make([]int, len(counts))
	if len(counts) == 0 || totalSlots <= 0 {
		return quotas
	}

	base := totalSlots / len(counts)
	rest := totalSlots % len(counts)
	for i, c := range counts {
		quotas[i] = min(base, senderCap(c, maxPerSender))
	}

	for rest > 0 {
		gave := false
		for i, c := range counts {
			if rest == 0 {
				break
			}
			if quotas[i] < senderCap(c, maxPerSender) {
				quotas[i]++
				rest--
				gave = true
			}
		}
		if !gave {
			break
		}
	}
	return quotas
}

func proportionalQuotas(totalSlots int, counts []int, maxPerSender int) []int {
	quotas := make([]int, len(counts))
	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum == 0 || totalSlots <= 0 {
		return quotas
	}
	for i, c := range counts {
		share := int(int64(totalSlots) * int64(c) / int64(sum))
		quotas[i] = min(share, senderCap(c, maxPerSender))
	}
	return quotas
}
