package allocation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Snapshot is the immutable input of one allocation run.
type Snapshot struct {
	Campaigns  []domain.Campaign
	Recipients []domain.Recipient
	// Senders are grouped by account in order of the account's first
	// appearance among Campaigns, then in per-account list order.
	Senders    []domain.SenderIdentity
	Suppressed domain.PairSet
	Contacted  domain.PairSet
}

// LoadSnapshot reads everything a run needs from src. Independent reads run
// concurrently; sender lists are fetched once per distinct campaign account
// after campaigns are known. The first error cancels the rest.
func LoadSnapshot(ctx context.Context, src Source, cfg Config, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{}
	query := RecipientQuery{
		MaxExposure:  cfg.MaxExposurePerRecipient,
		CreatedSince: now.AddDate(0, 0, -cfg.RecencyWindowDays),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		campaigns, err := src.ActiveCampaigns(gctx)
		if err != nil {
			return fmt.Errorf("load campaigns: %w", err)
		}
		snap.Campaigns = eligibleCampaigns(campaigns)
		return nil
	})
	g.Go(func() error {
		recipients, err := src.EligibleRecipients(gctx, query)
		if err != nil {
			return fmt.Errorf("load recipients: %w", err)
		}
		snap.Recipients = recipients
		return nil
	})
	g.Go(func() error {
		suppressed, err := src.SuppressedPairs(gctx)
		if err != nil {
			return fmt.Errorf("load suppressions: %w", err)
		}
		snap.Suppressed = suppressed
		return nil
	})
	g.Go(func() error {
		contacted, err := src.ContactedPairs(gctx)
		if err != nil {
			return fmt.Errorf("load contacts: %w", err)
		}
		snap.Contacted = contacted
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accounts := campaignAccounts(snap.Campaigns)
	perAccount := make([][]domain.SenderIdentity, len(accounts))
	g, gctx = errgroup.WithContext(ctx)
	for i, accountID := range accounts {
		i, accountID := i, accountID
		g.Go(func() error {
			senders, err := src.ActiveSenders(gctx, accountID)
			if err != nil {
				return fmt.Errorf("load senders for account %s: %w", accountID, err)
			}
			perAccount[i] = senders
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for i, senders := range perAccount {
		for _, s := range senders {
			if !s.Active || s.AccountID != accounts[i] {
				continue
			}
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			snap.Senders = append(snap.Senders, s)
		}
	}

	if snap.Suppressed == nil {
		snap.Suppressed = domain.PairSet{}
	}
	if snap.Contacted == nil {
		snap.Contacted = domain.PairSet{}
	}
	return snap, nil
}

func eligibleCampaigns(in []domain.Campaign) []domain.Campaign {
	out := make([]domain.Campaign, 0, len(in))
	for _, c := range in {
		if c.Eligible() {
			out = append(out, c)
		}
	}
	return out
}

// campaignAccounts returns distinct account ids in first-appearance order.
func campaignAccounts(campaigns []domain.Campaign) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, c := range campaigns {
		if _, ok := seen[c.AccountID]; ok {
			continue
		}
		seen[c.AccountID] = struct{}{}
		ids = append(ids, c.AccountID)
	}
	return ids
}
