package allocation

import "github.com/ignite/outreach-engine/internal/domain"

// index holds the integer-keyed view of a snapshot that stages 2-5 run on.
// Campaigns, senders and recipients are referred to by their position.
type index struct {
	campaigns  []domain.Campaign
	senders    []domain.SenderIdentity
	recipients []domain.Recipient // slot-eligible only, input order

	slots   []int  // remaining slots per recipient
	matched []bool // recipient is a candidate of at least one campaign

	campaignsBySender    [][]int
	candidatesByCampaign [][]int
	campaignHas          []map[int]struct{}
	candidatesBySender   [][]int
}

func buildIndex(snap *Snapshot, cfg Config) *index {
	ix := &index{campaigns: snap.Campaigns}

	// Stage 1: sender→campaigns and remaining slots.
	campaignsByAccount := make(map[string][]int)
	for ci, c := range snap.Campaigns {
		campaignsByAccount[c.AccountID] = append(campaignsByAccount[c.AccountID], ci)
	}
	for _, s := range snap.Senders {
		cs := campaignsByAccount[s.AccountID]
		if len(cs) == 0 {
			continue
		}
		ix.senders = append(ix.senders, s)
		ix.campaignsBySender = append(ix.campaignsBySender, cs)
	}
	for _, r := range snap.Recipients {
		n := r.RemainingSlots(cfg.MaxExposurePerRecipient)
		if n <= 0 || !r.Contactable() {
			continue
		}
		ix.recipients = append(ix.recipients, r)
		ix.slots = append(ix.slots, n)
	}

	// Stage 2: per-campaign candidates.
	ix.candidatesByCampaign = make([][]int, len(ix.campaigns))
	ix.campaignHas = make([]map[int]struct{}, len(ix.campaigns))
	ix.matched = make([]bool, len(ix.recipients))
	for ci, c := range ix.campaigns {
		tags := make(map[string]struct{}, len(c.Categories))
		for _, t := range c.Categories {
			tags[t] = struct{}{}
		}
		has := make(map[int]struct{})
		for ri, r := range ix.recipients {
			if sharesTag(tags, r.Categories) {
				ix.candidatesByCampaign[ci] = append(ix.candidatesByCampaign[ci], ri)
				has[ri] = struct{}{}
				ix.matched[ri] = true
			}
		}
		ix.campaignHas[ci] = has
	}

	// Stage 3: per-sender candidates, ordered union minus exclusions.
	ix.candidatesBySender = make([][]int, len(ix.senders))
	for si, s := range ix.senders {
		seen := make(map[int]struct{})
		for _, ci := range ix.campaignsBySender[si] {
			for _, ri := range ix.candidatesByCampaign[ci] {
				if _, ok := seen[ri]; ok {
					continue
				}
				seen[ri] = struct{}{}
				rid := ix.recipients[ri].ID
				if snap.Suppressed.Has(s.ID, rid) || snap.Contacted.Has(s.ID, rid) {
					continue
				}
				ix.candidatesBySender[si] = append(ix.candidatesBySender[si], ri)
			}
		}
	}
	return ix
}

func sharesTag(tags map[string]struct{}, categories []string) bool {
	for _, c := range categories {
		if _, ok := tags[c]; ok {
			return true
		}
	}
	return false
}

// totalSlots sums the remaining slots of recipients that match at least
// one campaign. Recipients no campaign can reach do not count.
func (ix *index) totalSlots() int {
	total := 0
	for ri, n := range ix.slots {
		if ix.matched[ri] {
			total += n
		}
	}
	return total
}
