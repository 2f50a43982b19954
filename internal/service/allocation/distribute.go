package allocation

import "math/rand"

// selector picks one campaign out of the eligible ones for a pair. load is
// the number of assignments each campaign has received so far.
type selector func(eligible []int, load []int) int

func newSelector(strategy SelectionStrategy, rng *rand.Rand) selector {
	switch strategy {
	case SelectRoundRobin:
		return func(eligible []int, _ []int) int { return eligible[0] }
	case SelectRandom:
		if rng == nil {
			return func(eligible []int, _ []int) int { return eligible[rand.Intn(len(eligible))] }
		}
		return func(eligible []int, _ []int) int { return eligible[rng.Intn(len(eligible))] }
	default:
		return leastLoaded
	}
}

// leastLoaded returns the first eligible campaign with the fewest
// assignments so far.
func leastLoaded(eligible []int, load []int) int {
	best := eligible[0]
	for _, ci := range eligible[1:] {
		if load[ci] < load[best] {
			best = ci
		}
	}
	return best
}

type placement struct {
	campaign, sender, recipient int
}

type distribution struct {
	placements  []placement
	perSender   []int
	perCampaign []int
	passes      int
}

// distribute runs greedy round-robin passes over senders. Each pass gives
// every sender with remaining quota at most one new assignment. A sender
// that finds nothing assignable in a pass has its quota zeroed. The loop
// ends after the first pass with no progress, so it runs at most
// sum(quotas)+1 passes.
//
// cursor[s] only moves past recipients that can never become assignable
// for s again: slots only decrease and every assigned pair is consumed.
func distribute(ix *index, quotas []int, pick selector) distribution {
	d := distribution{
		perSender:   make([]int, len(ix.senders)),
		perCampaign: make([]int, len(ix.campaigns)),
	}
	remaining := append([]int(nil), quotas...)
	cursor := make([]int, len(ix.senders))
	eligible := make([]int, 0, 8)

	for progress := true; progress; {
		progress = false
		d.passes++

		for si := range ix.senders {
			if remaining[si] <= 0 {
				continue
			}
			assigned := false
			cands := ix.candidatesBySender[si]
			for cursor[si] < len(cands) {
				ri := cands[cursor[si]]
				cursor[si]++
				if ix.slots[ri] <= 0 {
					continue
				}

				eligible = eligible[:0]
				for _, ci := range ix.campaignsBySender[si] {
					if _, ok := ix.campaignHas[ci][ri]; ok {
						eligible = append(eligible, ci)
					}
				}
				if len(eligible) == 0 {
					continue
				}

				ci := pick(eligible, d.perCampaign)
				d.placements = append(d.placements, placement{campaign: ci, sender: si, recipient: ri})
				ix.slots[ri]--
				remaining[si]--
				d.perSender[si]++
				d.perCampaign[ci]++
				assigned = true
				progress = true
				break
			}
			if !assigned {
				remaining[si] = 0
			}
		}
	}
	return d
}
