package api

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ignite/outreach-engine/internal/alert"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/queue"
)

const maxCallbackBytes = 1 << 20

type failureResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	DLQID           string `json:"dlqId,omitempty"`
	SourceMessageID string `json:"sourceMessageId,omitempty"`
}

// QueueFailure receives the callback for a dead-lettered message, logs the
// decoded payloads and raises an alert.
//
//	POST /api/queue/failures
func (h *Handlers) QueueFailure(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBytes))
	if err != nil {
		httputil.BadRequest(w, "unreadable body")
		return
	}
	if len(h.callbackSecret) > 0 && !queue.VerifySignature(h.callbackSecret, body, r.Header.Get(queue.SignatureHeader)) {
		httputil.Unauthorized(w, "invalid signature")
		return
	}

	var p queue.FailurePayload
	if err := json.Unmarshal(body, &p); err != nil {
		httputil.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	response := decodeField(p.Body)
	request := decodeField(p.SourceBody)

	logger.Error("scheduled delivery failed permanently",
		"component", "api",
		"source_message_id", p.SourceMessageID,
		"dlq_id", p.DLQID,
		"status", p.Status,
		"retried", p.Retried,
		"max_retries", p.MaxRetries,
		"url", p.URL,
		"response", response,
		"request", request,
	)

	at := h.now()
	if p.CreatedAt > 0 {
		at = time.UnixMilli(p.CreatedAt)
	}
	if h.deps.Alerter != nil {
		a := alert.DeliveryFailed(alert.DeliveryFailure{
			MessageID:  p.SourceMessageID,
			DLQID:      p.DLQID,
			Status:     p.Status,
			Retried:    p.Retried,
			MaxRetries: p.MaxRetries,
			URL:        p.URL,
			Response:   response,
			Request:    request,
		}, at)
		if err := h.deps.Alerter.Send(r.Context(), a); err != nil {
			logger.Warn("failure alert not sent", "component", "api", "error", err)
		}
	}

	httputil.OK(w, failureResponse{
		Success:         true,
		Message:         "failure recorded",
		DLQID:           p.DLQID,
		SourceMessageID: p.SourceMessageID,
	})
}

// decodeField base64-decodes a payload field, falling back to the raw
// text when it is not valid base64.
func decodeField(s string) string {
	if s == "" {
		return ""
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(b)
}
