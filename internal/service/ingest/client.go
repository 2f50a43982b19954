package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/httpretry"
)

// DefaultBaseURL is the public KRS API.
const DefaultBaseURL = "https://api-krs.ms.gov.pl/api/krs"

// maxExtractBytes caps a single extract response.
const maxExtractBytes = 8 << 20

// KRSClient reads the court register's public API. Requests go through a
// retrying client so throttling and transient 5xx are absorbed.
type KRSClient struct {
	baseURL string
	http    httpretry.HTTPDoer
}

// NewKRSClient creates a register client. A nil doer uses a retry client
// with the package defaults.
func NewKRSClient(baseURL string, doer httpretry.HTTPDoer) *KRSClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if doer == nil {
		doer = httpretry.NewRetryClient(nil, 3)
	}
	return &KRSClient{baseURL: strings.TrimRight(baseURL, "/"), http: doer}
}

var _ Registry = (*KRSClient)(nil)

// Bulletin lists the register numbers published in the day's bulletin,
// covering the whole day.
func (c *KRSClient) Bulletin(ctx context.Context, day time.Time) ([]string, error) {
	endpoint := fmt.Sprintf("%s/biuletyn/%s?godzinaOd=00&godzinaDo=23", c.baseURL, day.Format("2006-01-02"))
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: bulletin %s: status %d", ErrRegistry, day.Format("2006-01-02"), status)
	}
	var numbers []string
	if err := json.Unmarshal(body, &numbers); err != nil {
		return nil, fmt.Errorf("%w: decode bulletin: %v", ErrRegistry, err)
	}
	for i, n := range numbers {
		numbers[i] = padNumber(n)
	}
	return numbers, nil
}

// Company fetches the number's current extract from both registers at
// once. The business register wins when both answer.
func (c *KRSClient) Company(ctx context.Context, number string) (*domain.RegistryCompany, error) {
	registers := []string{RegisterBusiness, RegisterAssociations}
	found := make([]*domain.RegistryCompany, len(registers))
	errs := make([]error, len(registers))

	var g errgroup.Group
	for i, reg := range registers {
		i, reg := i, reg
		g.Go(func() error {
			found[i], errs[i] = c.extract(ctx, number, reg)
			return nil
		})
	}
	_ = g.Wait()

	for _, company := range found {
		if company != nil {
			return company, nil
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, number)
}

func (c *KRSClient) extract(ctx context.Context, number, register string) (*domain.RegistryCompany, error) {
	endpoint := fmt.Sprintf("%s/OdpisAktualny/%s?rejestr=%s&format=json",
		c.baseURL, url.PathEscape(number), url.QueryEscape(register))
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound || status == http.StatusNoContent:
		return nil, nil
	case status != http.StatusOK:
		return nil, fmt.Errorf("%w: extract %s/%s: status %d", ErrRegistry, register, number, status)
	}
	return parseExtract(body, register)
}

func (c *KRSClient) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRegistry, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExtractBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", ErrRegistry, err)
	}
	return body, resp.StatusCode, nil
}
