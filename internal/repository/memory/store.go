package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/allocation"
	"github.com/ignite/outreach-engine/internal/service/campaign"
	"github.com/ignite/outreach-engine/internal/service/delivery"
	"github.com/ignite/outreach-engine/internal/service/suppression"
)

// Store holds all entities behind one mutex. Getters return copies.
type Store struct {
	mu           sync.RWMutex
	campaigns    map[string]*domain.Campaign
	recipients   map[string]*domain.Recipient
	senders      map[string]*domain.SenderIdentity
	suppressions map[domain.PairKey]domain.Suppression
	contacts     map[domain.PairKey]time.Time
	logs         map[string]*domain.EmailLog
	now          func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		campaigns:    map[string]*domain.Campaign{},
		recipients:   map[string]*domain.Recipient{},
		senders:      map[string]*domain.SenderIdentity{},
		suppressions: map[domain.PairKey]domain.Suppression{},
		contacts:     map[domain.PairKey]time.Time{},
		logs:         map[string]*domain.EmailLog{},
		now:          time.Now,
	}
}

var (
	_ allocation.Source   = (*Store)(nil)
	_ delivery.Repository = (*Store)(nil)
)

// PutCampaign inserts or replaces a campaign.
func (s *Store) PutCampaign(c domain.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Categories = append([]string(nil), c.Categories...)
	s.campaigns[c.ID] = &c
}

// PutRecipient inserts or replaces a recipient.
func (s *Store) PutRecipient(r domain.Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Categories = append([]string(nil), r.Categories...)
	s.recipients[r.ID] = &r
}

// PutSender inserts or replaces a sender identity.
func (s *Store) PutSender(si domain.SenderIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.senders[si.ID] = &si
}

// --- allocation.Source ---

func (s *Store) ActiveCampaigns(_ context.Context) ([]domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if c.Eligible() {
			out = append(out, copyCampaign(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) EligibleRecipients(_ context.Context, q allocation.RecipientQuery) ([]domain.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Recipient
	for _, r := range s.recipients {
		if r.ExposureCount >= q.MaxExposure || r.CreatedAt.Before(q.CreatedSince) || !r.Contactable() {
			continue
		}
		out = append(out, copyRecipient(r))
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) ActiveSenders(_ context.Context, accountID string) ([]domain.SenderIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SenderIdentity
	for _, si := range s.senders {
		if si.AccountID == accountID && si.Active {
			out = append(out, *si)
		}
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) SuppressedPairs(_ context.Context) (domain.PairSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.PairSet, len(s.suppressions))
	for k := range s.suppressions {
		out[k] = struct{}{}
	}
	return out, nil
}

func (s *Store) ContactedPairs(_ context.Context) (domain.PairSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.PairSet, len(s.contacts))
	for k := range s.contacts {
		out[k] = struct{}{}
	}
	return out, nil
}

// --- contact.Repository ---

func (s *Store) InsertFirstContact(_ context.Context, senderID, recipientID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.PairKey{SenderID: senderID, RecipientID: recipientID}
	if _, ok := s.contacts[key]; ok {
		return false, nil
	}
	s.contacts[key] = s.now()
	if r, ok := s.recipients[recipientID]; ok {
		r.ExposureCount++
	}
	return true, nil
}

// --- delivery.Repository ---

func (s *Store) Sender(_ context.Context, id string) (*domain.SenderIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	si, ok := s.senders[id]
	if !ok {
		return nil, delivery.ErrNotFound
	}
	cp := *si
	return &cp, nil
}

func (s *Store) Recipient(_ context.Context, id string) (*domain.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipients[id]
	if !ok {
		return nil, delivery.ErrNotFound
	}
	cp := copyRecipient(r)
	return &cp, nil
}

func (s *Store) Campaign(_ context.Context, id string) (*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, delivery.ErrNotFound
	}
	cp := copyCampaign(c)
	return &cp, nil
}

func (s *Store) DeactivateSender(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	si, ok := s.senders[id]
	if !ok {
		return delivery.ErrNotFound
	}
	si.Active = false
	si.RefreshToken = ""
	return nil
}

func (s *Store) CreateEmailLog(_ context.Context, l *domain.EmailLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.logs[l.ID] = &cp
	return nil
}

func (s *Store) UpdateEmailLog(_ context.Context, id string, status domain.EmailLogStatus, messageID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[id]
	if !ok {
		return delivery.ErrNotFound
	}
	l.Status, l.MessageID, l.Error = status, messageID, errMsg
	return nil
}

// EmailLogs returns all email logs ordered by creation time.
func (s *Store) EmailLogs() []domain.EmailLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.EmailLog, 0, len(s.logs))
	for _, l := range s.logs {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out
}

// Suppressions returns a view implementing suppression.Repository.
func (s *Store) Suppressions() suppression.Repository { return suppressionView{s} }

// Campaigns returns a view implementing campaign.Repository.
func (s *Store) Campaigns() campaign.Repository { return campaignView{s} }

func copyCampaign(c *domain.Campaign) domain.Campaign {
	cp := *c
	cp.Categories = append([]string(nil), c.Categories...)
	return cp
}

func copyRecipient(r *domain.Recipient) domain.Recipient {
	cp := *r
	cp.Categories = append([]string(nil), r.Categories...)
	return cp
}

func createdBefore(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA < idB
}
