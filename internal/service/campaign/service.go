package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/delivery"
)

// Service implements campaign business logic. All public methods are safe
// for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a campaign service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, accountID, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, accountID, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, accountID string, f ListFilter) ([]domain.Campaign, int, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return s.repo.List(ctx, accountID, f)
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name         string   `json:"name"`
	TemplateHTML string   `json:"template_html"`
	Categories   []string `json:"categories"`
	SenderID     string   `json:"sender_id"`
}

// Create validates and persists a new, inactive campaign.
func (s *Service) Create(ctx context.Context, accountID string, in CreateInput) (*domain.Campaign, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if unknown := delivery.UnknownPlaceholders(in.TemplateHTML); len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariables, strings.Join(unknown, ", "))
	}
	if in.SenderID != "" {
		if err := s.checkSender(ctx, accountID, in.SenderID); err != nil {
			return nil, err
		}
	}

	c := &domain.Campaign{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		SenderID:     in.SenderID,
		Name:         strings.TrimSpace(in.Name),
		TemplateHTML: in.TemplateHTML,
		Categories:   dedupe(in.Categories),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return c, nil
}

// AssignSender sets the campaign's sender identity.
func (s *Service) AssignSender(ctx context.Context, accountID, id, senderID string) error {
	if err := s.checkSender(ctx, accountID, senderID); err != nil {
		return err
	}
	return s.repo.SetSender(ctx, accountID, id, senderID)
}

// Activate includes the campaign in future allocation runs.
func (s *Service) Activate(ctx context.Context, accountID, id string) error {
	c, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return err
	}
	if c.SenderID == "" {
		return ErrNoSender
	}
	if err := s.repo.SetActive(ctx, accountID, id, true); err != nil {
		return err
	}
	logger.Info("campaign activated", "component", "campaign", "campaign_id", id, "account_id", accountID)
	return nil
}

// Deactivate removes the campaign from future allocation runs. Already
// queued sends are not cancelled.
func (s *Service) Deactivate(ctx context.Context, accountID, id string) error {
	if err := s.repo.SetActive(ctx, accountID, id, false); err != nil {
		return err
	}
	logger.Info("campaign deactivated", "component", "campaign", "campaign_id", id, "account_id", accountID)
	return nil
}

func (s *Service) checkSender(ctx context.Context, accountID, senderID string) error {
	owner, err := s.repo.SenderAccount(ctx, senderID)
	if err != nil {
		return fmt.Errorf("look up sender %s: %w", senderID, err)
	}
	if owner != accountID {
		return ErrForeignSender
	}
	return nil
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
