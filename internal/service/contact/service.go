package contact

import (
	"context"
	"fmt"

	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Service records contacts.
type Service struct {
	repo Repository
}

// NewService creates a contact service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordContact marks the pair as contacted. It returns false without error
// when the pair had already been recorded.
func (s *Service) RecordContact(ctx context.Context, senderID, recipientID string) (bool, error) {
	if senderID == "" || recipientID == "" {
		return false, ErrInvalidPair
	}
	inserted, err := s.repo.InsertFirstContact(ctx, senderID, recipientID)
	if err != nil {
		return false, fmt.Errorf("record contact %s/%s: %w", senderID, recipientID, err)
	}
	if !inserted {
		logger.Debug("contact already recorded", "component", "contact", "sender_id", senderID, "recipient_id", recipientID)
	}
	return inserted, nil
}
