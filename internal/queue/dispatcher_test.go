package queue

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
)

func TestDispatcher_PublishesEmailBody(t *testing.T) {
	q, _ := setupTestQueue(t)
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	at := time.Date(2026, 3, 10, 9, 30, 0, 0, loc)

	id, err := NewDispatcher(q, loc).Dispatch(context.Background(), domain.DispatchMessage{
		Assignment:      domain.Assignment{CampaignID: "C1", SenderID: "S1", RecipientID: "R1"},
		ScheduledAt:     at,
		Retries:         2,
		FailureCallback: "https://cb.example",
	})
	require.NoError(t, err)

	env, err := q.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, env.NotBefore.Equal(at))
	assert.Equal(t, 2, env.MaxRetries)
	assert.Equal(t, "https://cb.example", env.FailureCallback)

	var body EmailBody
	require.NoError(t, json.Unmarshal(env.Body, &body))
	assert.Equal(t, EmailBody{
		SenderID:            "S1",
		RecipientID:         "R1",
		CampaignID:          "C1",
		ScheduledAt:         "2026-03-10T08:30:00Z",
		ScheduledAtReadable: "2026-03-10 09:30:00 CET",
	}, body)
}

func TestHTTPFailureNotifier_SignsPayload(t *testing.T) {
	secret := []byte("cb-secret")
	var got FailurePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !VerifySignature(secret, body, r.Header.Get(SignatureHeader)) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewHTTPFailureNotifier(srv.Client(), string(secret))
	err := n.NotifyFailure(context.Background(), srv.URL, FailurePayload{Status: 500, DLQID: "dlq-1", SourceMessageID: "m-1"})
	require.NoError(t, err)
	assert.Equal(t, "dlq-1", got.DLQID)

	bad := NewHTTPFailureNotifier(srv.Client(), "wrong")
	assert.Error(t, bad.NotifyFailure(context.Background(), srv.URL, FailurePayload{}))
}

func TestVerifySignature(t *testing.T) {
	secret := []byte("s")
	body := []byte(`{"a":1}`)
	sig := Sign(secret, body)

	assert.True(t, VerifySignature(secret, body, sig))
	assert.False(t, VerifySignature(secret, []byte(`{"a":2}`), sig))
	assert.False(t, VerifySignature(secret, body, "md5=abc"))
	assert.False(t, VerifySignature(secret, body, "sha256=zz"))
}
