package suppression

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Service implements suppression business logic. It is safe for concurrent use.
type Service struct {
	repo   Repository
	tokens *Tokens
}

// NewService creates a suppression service backed by the given repository.
func NewService(repo Repository, tokens *Tokens) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Tokens returns the token codec used for unsubscribe links.
func (s *Service) Tokens() *Tokens { return s.tokens }

// IsSuppressed checks whether the pair is blocked.
func (s *Service) IsSuppressed(ctx context.Context, senderID, recipientID string) (bool, error) {
	return s.repo.IsSuppressed(ctx, senderID, recipientID)
}

// Suppress adds the pair to the suppression list. Idempotent: if the pair
// is already suppressed the existing record is preserved and false is
// returned.
func (s *Service) Suppress(ctx context.Context, senderID, recipientID string, reason domain.SuppressionReason) (bool, error) {
	senderID = strings.TrimSpace(senderID)
	recipientID = strings.TrimSpace(recipientID)
	if senderID == "" || recipientID == "" {
		return false, ErrInvalidPair
	}
	if reason == "" {
		reason = domain.ReasonManual
	}

	added, err := s.repo.Suppress(ctx, &domain.Suppression{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("suppress %s/%s: %w", senderID, recipientID, err)
	}
	logger.Info("pair suppressed",
		"component", "suppression",
		"sender_id", senderID,
		"recipient_id", recipientID,
		"reason", string(reason),
		"added", added,
	)
	return added, nil
}

// Unsubscribe verifies an unsubscribe token and suppresses its pair.
func (s *Service) Unsubscribe(ctx context.Context, token string) (domain.PairKey, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return domain.PairKey{}, err
	}
	if _, err := s.Suppress(ctx, claims.SenderID, claims.RecipientID, domain.ReasonUnsubscribe); err != nil {
		return domain.PairKey{}, err
	}
	return domain.PairKey{SenderID: claims.SenderID, RecipientID: claims.RecipientID}, nil
}

// List returns suppression entries matching the given filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]domain.Suppression, int, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}
