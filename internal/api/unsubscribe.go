package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/suppression"
)

// Unsubscribe suppresses the pair named by the token and redirects to the
// app's unsubscribe page with the outcome.
//
//	GET /unsubscribe?token=...
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		h.redirectUnsubscribe(w, r, "missing")
		return
	}
	if h.deps.Unsubscriber == nil {
		h.redirectUnsubscribe(w, r, "error")
		return
	}

	pair, err := h.deps.Unsubscriber.Unsubscribe(r.Context(), token)
	switch {
	case errors.Is(err, suppression.ErrInvalidToken):
		logger.Warn("invalid unsubscribe token", "component", "api", "error", err)
		h.redirectUnsubscribe(w, r, "invalid")
	case err != nil:
		logger.Error("unsubscribe failed", "component", "api", "error", err)
		h.redirectUnsubscribe(w, r, "error")
	default:
		logger.Info("recipient unsubscribed",
			"component", "api",
			"sender_id", pair.SenderID,
			"recipient_id", pair.RecipientID,
		)
		h.redirectUnsubscribe(w, r, "success")
	}
}

func (h *Handlers) redirectUnsubscribe(w http.ResponseWriter, r *http.Request, status string) {
	target := strings.TrimRight(h.appURL, "/") + "/unsubscribe?status=" + url.QueryEscape(status)
	http.Redirect(w, r, target, http.StatusFound)
}
