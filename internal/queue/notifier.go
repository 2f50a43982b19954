package queue

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ignite/outreach-engine/internal/pkg/httpretry"
)

// SignatureHeader carries the HMAC-SHA256 of a callback body.
const SignatureHeader = "X-Outreach-Signature"

// FailureNotifier is told about messages that exhausted their retries.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, url string, payload FailurePayload) error
}

// HTTPFailureNotifier POSTs the payload as signed JSON.
type HTTPFailureNotifier struct {
	client httpretry.HTTPDoer
	secret []byte
}

// NewHTTPFailureNotifier creates a notifier. A nil client gets a retrying
// default client.
func NewHTTPFailureNotifier(client httpretry.HTTPDoer, secret string) *HTTPFailureNotifier {
	if client == nil {
		client = httpretry.NewRetryClient(nil, 3)
	}
	return &HTTPFailureNotifier{client: client, secret: []byte(secret)}
}

// NotifyFailure sends payload to url.
func (n *HTTPFailureNotifier) NotifyFailure(ctx context.Context, url string, payload FailurePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(n.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failure callback: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("failure callback: status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns "sha256=<hex hmac>" of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a header produced by Sign in constant time.
func VerifySignature(secret, body []byte, header string) bool {
	got, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
