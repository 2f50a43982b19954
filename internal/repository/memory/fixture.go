package memory

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Fixture is the YAML layout accepted by LoadFixture.
type Fixture struct {
	Senders      []domain.SenderIdentity `yaml:"senders"`
	Campaigns    []domain.Campaign       `yaml:"campaigns"`
	Recipients   []domain.Recipient      `yaml:"recipients"`
	Suppressions []FixturePair           `yaml:"suppressions"`
	Contacts     []FixturePair           `yaml:"contacts"`
}

// FixturePair names a sender/recipient pair.
type FixturePair struct {
	SenderID    string `yaml:"sender_id"`
	RecipientID string `yaml:"recipient_id"`
	Reason      string `yaml:"reason"`
}

// LoadFixture reads a YAML fixture file into a new store. Recipients and
// senders without created_at are stamped with the load time.
func LoadFixture(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	s := New()
	s.Apply(f)
	return s, nil
}

// Apply loads the fixture into the store.
func (s *Store) Apply(f Fixture) {
	now := time.Now().UTC()
	for _, si := range f.Senders {
		if si.CreatedAt.IsZero() {
			si.CreatedAt = now
		}
		s.PutSender(si)
	}
	for _, c := range f.Campaigns {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		s.PutCampaign(c)
	}
	for _, r := range f.Recipients {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		s.PutRecipient(r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range f.Suppressions {
		reason := domain.SuppressionReason(p.Reason)
		if reason == "" {
			reason = domain.ReasonManual
		}
		key := domain.PairKey{SenderID: p.SenderID, RecipientID: p.RecipientID}
		s.suppressions[key] = domain.Suppression{
			ID:          fmt.Sprintf("fixture-%d", i),
			SenderID:    p.SenderID,
			RecipientID: p.RecipientID,
			Reason:      reason,
			CreatedAt:   now,
		}
	}
	for _, p := range f.Contacts {
		s.contacts[domain.PairKey{SenderID: p.SenderID, RecipientID: p.RecipientID}] = now
	}
}
