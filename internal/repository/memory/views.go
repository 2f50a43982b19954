package memory

import (
	"context"
	"sort"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/campaign"
	"github.com/ignite/outreach-engine/internal/service/suppression"
)

type suppressionView struct{ s *Store }

func (v suppressionView) IsSuppressed(_ context.Context, senderID, recipientID string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	_, ok := v.s.suppressions[domain.PairKey{SenderID: senderID, RecipientID: recipientID}]
	return ok, nil
}

func (v suppressionView) Suppress(_ context.Context, sup *domain.Suppression) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.suppressions[sup.Key()]; ok {
		return false, nil
	}
	cp := *sup
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = v.s.now()
	}
	v.s.suppressions[sup.Key()] = cp
	return true, nil
}

func (v suppressionView) List(_ context.Context, f suppression.ListFilter) ([]domain.Suppression, int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Suppression
	for _, sup := range v.s.suppressions {
		if f.SenderID != "" && sup.SenderID != f.SenderID {
			continue
		}
		if f.Reason != "" && string(sup.Reason) != f.Reason {
			continue
		}
		out = append(out, sup)
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID) })
	return page(out, f.Offset, f.Limit), len(out), nil
}

type campaignView struct{ s *Store }

func (v campaignView) Get(_ context.Context, accountID, id string) (*domain.Campaign, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	c, ok := v.s.campaigns[id]
	if !ok || c.AccountID != accountID {
		return nil, campaign.ErrNotFound
	}
	cp := copyCampaign(c)
	return &cp, nil
}

func (v campaignView) List(_ context.Context, accountID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Campaign
	for _, c := range v.s.campaigns {
		if c.AccountID != accountID || (f.Active != nil && c.Active != *f.Active) {
			continue
		}
		out = append(out, copyCampaign(c))
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID) })
	return page(out, f.Offset, f.Limit), len(out), nil
}

func (v campaignView) Create(_ context.Context, c *domain.Campaign) error {
	v.s.PutCampaign(*c)
	return nil
}

func (v campaignView) SetActive(_ context.Context, accountID, id string, active bool) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c, ok := v.s.campaigns[id]
	if !ok || c.AccountID != accountID {
		return campaign.ErrNotFound
	}
	c.Active = active
	return nil
}

func (v campaignView) SetSender(_ context.Context, accountID, id, senderID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c, ok := v.s.campaigns[id]
	if !ok || c.AccountID != accountID {
		return campaign.ErrNotFound
	}
	c.SenderID = senderID
	return nil
}

func (v campaignView) SenderAccount(_ context.Context, senderID string) (string, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	si, ok := v.s.senders[senderID]
	if !ok {
		return "", campaign.ErrNotFound
	}
	return si.AccountID, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
