package esp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// GmailConfig holds the OAuth client used to refresh sender tokens.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GmailMailer sends through the Gmail API as the sender's own mailbox.
type GmailMailer struct {
	oauth    *oauth2.Config
	endpoint string
	now      func() time.Time
}

// GmailOption configures a GmailMailer.
type GmailOption func(*GmailMailer)

// WithGmailEndpoint points the API client at a different base URL.
func WithGmailEndpoint(url string) GmailOption {
	return func(m *GmailMailer) { m.endpoint = url }
}

// WithTokenURL overrides Google's token endpoint.
func WithTokenURL(url string) GmailOption {
	return func(m *GmailMailer) {
		m.oauth.Endpoint = oauth2.Endpoint{TokenURL: url, AuthStyle: oauth2.AuthStyleInParams}
	}
}

// NewGmailMailer creates a Gmail mailer.
func NewGmailMailer(cfg GmailConfig, opts ...GmailOption) (*GmailMailer, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("google client id and secret are required")
	}
	m := &GmailMailer{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailSendScope},
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Name implements Mailer.
func (m *GmailMailer) Name() string { return "gmail" }

// Send implements Mailer.
func (m *GmailMailer) Send(ctx context.Context, sender *domain.SenderIdentity, msg *Message) (string, error) {
	if sender.RefreshToken == "" {
		return "", fmt.Errorf("sender %s has no refresh token: %w", sender.ID, ErrTokenExpired)
	}

	raw, err := buildMIME(sender.Email, msg, m.now())
	if err != nil {
		return "", err
	}

	ts := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: sender.RefreshToken})
	opts := []option.ClientOption{option.WithHTTPClient(&http.Client{
		Timeout:   30 * time.Second,
		Transport: &oauth2.Transport{Source: ts},
	})}
	if m.endpoint != "" {
		opts = append(opts, option.WithEndpoint(m.endpoint))
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create gmail service: %w", err)
	}

	sent, err := svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		if isInvalidGrant(err) {
			logger.Warn("gmail grant rejected", "component", "esp", "sender_id", sender.ID)
			return "", fmt.Errorf("gmail send: %w", ErrTokenExpired)
		}
		return "", fmt.Errorf("gmail send: %w", err)
	}
	return sent.Id, nil
}

func isInvalidGrant(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" {
			return true
		}
		return strings.Contains(string(re.Body), "invalid_grant")
	}
	return strings.Contains(err.Error(), "invalid_grant")
}
