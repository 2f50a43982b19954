package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/service/allocation"
	"github.com/ignite/outreach-engine/internal/service/campaign"
	"github.com/ignite/outreach-engine/internal/service/schedule"
	"github.com/ignite/outreach-engine/internal/service/suppression"
)

// Unsubscriber verifies an unsubscribe token and suppresses its pair.
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, token string) (domain.PairKey, error)
}

// SuppressionLister pages through suppression entries.
type SuppressionLister interface {
	List(ctx context.Context, filter suppression.ListFilter) ([]domain.Suppression, int, error)
}

// Previewer computes an allocation plan and send times without dispatching.
type Previewer interface {
	Preview(ctx context.Context, cfg allocation.Config) (*schedule.Preview, error)
	Config() schedule.Config
}

// CampaignManager is the campaign administration surface.
type CampaignManager interface {
	Get(ctx context.Context, accountID, id string) (*domain.Campaign, error)
	List(ctx context.Context, accountID string, f campaign.ListFilter) ([]domain.Campaign, int, error)
	Create(ctx context.Context, accountID string, in campaign.CreateInput) (*domain.Campaign, error)
	AssignSender(ctx context.Context, accountID, id, senderID string) error
	Activate(ctx context.Context, accountID, id string) error
	Deactivate(ctx context.Context, accountID, id string) error
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	deps           Deps
	appURL         string
	callbackSecret []byte
	now            func() time.Time
}

func notConfigured(w http.ResponseWriter) {
	httputil.Error(w, http.StatusServiceUnavailable, "not configured")
}
