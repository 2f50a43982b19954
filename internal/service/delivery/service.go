package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/esp"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/queue"
)

// UnsubscribePath is appended to the app URL to build unsubscribe links.
const UnsubscribePath = "/unsubscribe"

// Service delivers assignments. It is safe for concurrent use.
type Service struct {
	repo     Repository
	mailer   esp.Mailer
	tokens   TokenIssuer
	contacts ContactRecorder
	renderer *Renderer
	appURL   string
	now      func() time.Time
}

// NewService creates a delivery service. appURL is the public base URL
// that serves the unsubscribe endpoint.
func NewService(repo Repository, mailer esp.Mailer, tokens TokenIssuer, contacts ContactRecorder, appURL string) *Service {
	return &Service{
		repo:     repo,
		mailer:   mailer,
		tokens:   tokens,
		contacts: contacts,
		renderer: NewRenderer(),
		appURL:   strings.TrimRight(appURL, "/"),
		now:      time.Now,
	}
}

// Deliver sends the assignment's e-mail. Returned errors wrapped with
// queue.Permanent must not be retried.
func (s *Service) Deliver(ctx context.Context, a domain.Assignment) error {
	sender, recipient, campaign, err := s.load(ctx, a)
	if err != nil {
		return err
	}
	if !recipient.Contactable() {
		logger.Warn("recipient has no e-mail, skipping",
			"component", "delivery", "recipient_id", recipient.ID, "campaign_id", campaign.ID)
		return queue.Permanent(fmt.Errorf("%w: %s", ErrNoRecipientEmail, recipient.ID))
	}

	token, err := s.tokens.Issue(sender.ID, recipient.ID)
	if err != nil {
		return fmt.Errorf("issue unsubscribe token: %w", err)
	}
	entry := &domain.EmailLog{
		ID:               uuid.NewString(),
		CampaignID:       campaign.ID,
		SenderID:         sender.ID,
		RecipientID:      recipient.ID,
		UnsubscribeToken: token,
		Status:           domain.EmailPending,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.repo.CreateEmailLog(ctx, entry); err != nil {
		return fmt.Errorf("create email log: %w", err)
	}

	link := s.UnsubscribeLink(token)
	html, err := s.renderer.Render(campaign.TemplateHTML, map[string]string{
		VarCompanyName:     recipient.Name,
		VarUnsubscribeLink: link,
	})
	if err != nil {
		s.markFailed(ctx, entry.ID, err)
		return queue.Permanent(err)
	}

	logger.Info("sending e-mail",
		"component", "delivery",
		"sender_id", sender.ID,
		"recipient_id", recipient.ID,
		"campaign_id", campaign.ID,
		"provider", s.mailer.Name(),
	)
	messageID, err := s.mailer.Send(ctx, sender, &esp.Message{
		To:      recipient.Email,
		Subject: campaign.Name,
		HTML:    html,
		Headers: map[string]string{
			"List-Unsubscribe":      "<" + link + ">",
			"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
		},
		Metadata: map[string]string{"campaign_id": campaign.ID, "email_log_id": entry.ID},
	})
	if err != nil {
		s.markFailed(ctx, entry.ID, err)
		if errors.Is(err, ErrTokenExpired) {
			s.deactivate(ctx, sender.ID)
			return queue.Permanent(err)
		}
		return fmt.Errorf("send: %w", err)
	}

	if err := s.repo.UpdateEmailLog(ctx, entry.ID, domain.EmailSent, messageID, ""); err != nil {
		logger.Error("mark email log sent failed", "component", "delivery", "email_log_id", entry.ID, "error", err)
	}
	// The message is out; failing here would resend it on retry.
	if _, err := s.contacts.RecordContact(ctx, sender.ID, recipient.ID); err != nil {
		logger.Error("record contact failed",
			"component", "delivery", "sender_id", sender.ID, "recipient_id", recipient.ID, "error", err)
	}

	logger.Info("e-mail sent",
		"component", "delivery", "email_log_id", entry.ID, "message_id", messageID)
	return nil
}

// UnsubscribeLink builds the public unsubscribe URL for a token.
func (s *Service) UnsubscribeLink(token string) string {
	return s.appURL + UnsubscribePath + "?token=" + url.QueryEscape(token)
}

func (s *Service) load(ctx context.Context, a domain.Assignment) (*domain.SenderIdentity, *domain.Recipient, *domain.Campaign, error) {
	var (
		sender    *domain.SenderIdentity
		recipient *domain.Recipient
		campaign  *domain.Campaign
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sender, err = s.repo.Sender(gctx, a.SenderID)
		return err
	})
	g.Go(func() (err error) {
		recipient, err = s.repo.Recipient(gctx, a.RecipientID)
		return err
	})
	g.Go(func() (err error) {
		campaign, err = s.repo.Campaign(gctx, a.CampaignID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Error("assignment data not found",
				"component", "delivery",
				"sender_id", a.SenderID,
				"recipient_id", a.RecipientID,
				"campaign_id", a.CampaignID,
			)
			return nil, nil, nil, queue.Permanent(fmt.Errorf("%w: %v", ErrMissingData, err))
		}
		return nil, nil, nil, fmt.Errorf("load assignment: %w", err)
	}
	if sender == nil || recipient == nil || campaign == nil {
		return nil, nil, nil, queue.Permanent(ErrMissingData)
	}
	return sender, recipient, campaign, nil
}

func (s *Service) markFailed(ctx context.Context, logID string, cause error) {
	if err := s.repo.UpdateEmailLog(ctx, logID, domain.EmailFailed, "", cause.Error()); err != nil {
		logger.Error("mark email log failed", "component", "delivery", "email_log_id", logID, "error", err)
	}
}

func (s *Service) deactivate(ctx context.Context, senderID string) {
	logger.Warn("sender grant expired, deactivating until reconnected", "component", "delivery", "sender_id", senderID)
	if err := s.repo.DeactivateSender(ctx, senderID); err != nil {
		logger.Error("deactivate sender failed", "component", "delivery", "sender_id", senderID, "error", err)
	}
}
