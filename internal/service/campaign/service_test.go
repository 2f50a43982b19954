package campaign_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/campaign"
)

// memRepo is an in-memory campaign repository for unit testing.
type memRepo struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign // keyed by id
	senders   map[string]string           // sender id -> account id
}

func newMemRepo() *memRepo {
	return &memRepo{
		campaigns: make(map[string]*domain.Campaign),
		senders:   map[string]string{"S1": "A1", "S9": "A2"},
	}
}

func (m *memRepo) Get(_ context.Context, accountID, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.AccountID != accountID {
		return nil, campaign.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, accountID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.AccountID != accountID {
			continue
		}
		if f.Active != nil && c.Active != *f.Active {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(out) || f.Limit <= 0 {
		end = len(out)
	}
	return out[f.Offset:end], total, nil
}

func (m *memRepo) Create(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[cp.ID] = &cp
	return nil
}

func (m *memRepo) SetActive(_ context.Context, accountID, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.AccountID != accountID {
		return campaign.ErrNotFound
	}
	c.Active = active
	return nil
}

func (m *memRepo) SetSender(_ context.Context, accountID, id, senderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.AccountID != accountID {
		return campaign.ErrNotFound
	}
	c.SenderID = senderID
	return nil
}

func (m *memRepo) SenderAccount(_ context.Context, senderID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.senders[senderID]
	if !ok {
		return "", campaign.ErrNotFound
	}
	return acc, nil
}

func TestCreate(t *testing.T) {
	svc := campaign.NewService(newMemRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, "A1", campaign.CreateInput{
		Name:         "  Spring offer ",
		TemplateHTML: "<p>Hi @COMPANY_NAME</p>",
		Categories:   []string{"62.01", "62.01", " ", "70.22"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Name != "Spring offer" {
		t.Errorf("name = %q", c.Name)
	}
	if c.Active {
		t.Error("new campaigns must start inactive")
	}
	if len(c.Categories) != 2 {
		t.Errorf("categories = %v, want 2 unique", c.Categories)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := campaign.NewService(newMemRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "A1", campaign.CreateInput{}); err == nil {
		t.Error("expected error for missing name")
	}

	_, err := svc.Create(ctx, "A1", campaign.CreateInput{Name: "x", TemplateHTML: "Hi @FIRST_NAME"})
	if !errors.Is(err, campaign.ErrUnknownVariables) {
		t.Errorf("expected ErrUnknownVariables, got %v", err)
	}

	_, err = svc.Create(ctx, "A1", campaign.CreateInput{Name: "x", SenderID: "S9"})
	if !errors.Is(err, campaign.ErrForeignSender) {
		t.Errorf("expected ErrForeignSender, got %v", err)
	}
}

func TestActivate_RequiresSender(t *testing.T) {
	repo := newMemRepo()
	svc := campaign.NewService(repo)
	ctx := context.Background()

	c, err := svc.Create(ctx, "A1", campaign.CreateInput{Name: "Flow"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Activate(ctx, "A1", c.ID); err != campaign.ErrNoSender {
		t.Fatalf("expected ErrNoSender, got %v", err)
	}

	if err := svc.AssignSender(ctx, "A1", c.ID, "S1"); err != nil {
		t.Fatalf("AssignSender: %v", err)
	}
	if err := svc.Activate(ctx, "A1", c.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	got, _ := svc.Get(ctx, "A1", c.ID)
	if !got.Eligible() {
		t.Error("activated campaign with sender should be eligible")
	}

	if err := svc.Deactivate(ctx, "A1", c.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	got, _ = svc.Get(ctx, "A1", c.ID)
	if got.Active {
		t.Error("expected inactive after Deactivate")
	}
}

func TestAccountIsolation(t *testing.T) {
	svc := campaign.NewService(newMemRepo())
	ctx := context.Background()

	c, _ := svc.Create(ctx, "A1", campaign.CreateInput{Name: "Flow", SenderID: "S1"})

	if _, err := svc.Get(ctx, "A2", c.ID); err != campaign.ErrNotFound {
		t.Errorf("expected ErrNotFound across accounts, got %v", err)
	}
	if err := svc.Activate(ctx, "A2", c.ID); err != campaign.ErrNotFound {
		t.Errorf("expected ErrNotFound across accounts, got %v", err)
	}
	if err := svc.AssignSender(ctx, "A1", c.ID, "S9"); !errors.Is(err, campaign.ErrForeignSender) {
		t.Errorf("expected ErrForeignSender, got %v", err)
	}
}

func TestList_ActiveFilter(t *testing.T) {
	svc := campaign.NewService(newMemRepo())
	ctx := context.Background()

	a, _ := svc.Create(ctx, "A1", campaign.CreateInput{Name: "a", SenderID: "S1"})
	_, _ = svc.Create(ctx, "A1", campaign.CreateInput{Name: "b", SenderID: "S1"})
	if err := svc.Activate(ctx, "A1", a.ID); err != nil {
		t.Fatal(err)
	}

	active := true
	items, total, err := svc.List(ctx, "A1", campaign.ListFilter{Active: &active})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != a.ID {
		t.Errorf("got total=%d items=%v", total, items)
	}

	_, total, _ = svc.List(ctx, "A1", campaign.ListFilter{})
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}
