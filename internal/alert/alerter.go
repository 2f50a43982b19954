// Package alert notifies operators about dead-lettered deliveries and failed
// scheduling runs.
package alert

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Alert is a plain-text operator notification.
type Alert struct {
	Subject string
	Summary string
	Fields  map[string]string
	Time    time.Time
}

// Body renders the alert as plain text.
func (a Alert) Body() string {
	var b strings.Builder
	b.WriteString(a.Summary)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(a.Summary)))
	b.WriteString("\n\n")

	keys := make([]string, 0, len(a.Fields))
	width := 0
	for k := range a.Fields {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%-*s  %s\n", width+1, k+":", a.Fields[k])
	}
	if !a.Time.IsZero() {
		fmt.Fprintf(&b, "\nTime: %s\n", a.Time.Format(time.RFC3339))
	}
	b.WriteString("\n---\nAutomated alert from the outreach engine.\n")
	return b.String()
}

// Alerter delivers alerts.
type Alerter interface {
	Send(ctx context.Context, a Alert) error
}

// SMTPConfig holds SMTP alerter configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type sendMailFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPAlerter sends alerts as plain-text e-mail.
type SMTPAlerter struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

// NewSMTPAlerter creates an SMTP alerter.
func NewSMTPAlerter(cfg SMTPConfig) *SMTPAlerter {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPAlerter{cfg: cfg, sendMail: smtp.SendMail}
}

// Send implements Alerter. With no host or recipients configured the alert
// is only logged.
func (a *SMTPAlerter) Send(_ context.Context, al Alert) error {
	if a.cfg.Host == "" || len(a.cfg.To) == 0 {
		logger.Warn("alert not sent, smtp not configured", "component", "alert", "subject", al.Subject)
		return nil
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		a.cfg.From, strings.Join(a.cfg.To, ","), al.Subject, strings.ReplaceAll(al.Body(), "\n", "\r\n"))

	var auth smtp.Auth
	if a.cfg.Username != "" {
		auth = smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", a.cfg.Host, a.cfg.Port)
	if err := a.sendMail(addr, auth, a.cfg.From, a.cfg.To, []byte(msg)); err != nil {
		return fmt.Errorf("send alert %q: %w", al.Subject, err)
	}
	return nil
}

// LogAlerter writes alerts to the structured log.
type LogAlerter struct{}

// Send implements Alerter.
func (LogAlerter) Send(_ context.Context, a Alert) error {
	kv := []interface{}{"component", "alert", "subject", a.Subject}
	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kv = append(kv, k, a.Fields[k])
	}
	logger.Error(a.Summary, kv...)
	return nil
}
