package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/service/campaign"
)

const accountHeader = "X-Account-ID"

type accountKey struct{}

// requireAccount reads the account id from the X-Account-ID header.
func requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(accountHeader))
		if id == "" {
			httputil.BadRequest(w, accountHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, id)))
	})
}

func accountID(r *http.Request) string {
	id, _ := r.Context().Value(accountKey{}).(string)
	return id
}

// campaignError maps service errors to responses.
func campaignError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		httputil.Error(w, http.StatusNotFound, "campaign not found")
	case errors.Is(err, campaign.ErrNoSender),
		errors.Is(err, campaign.ErrForeignSender),
		errors.Is(err, campaign.ErrUnknownVariables):
		httputil.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		httputil.InternalError(w, r, err)
	}
}

// ListCampaigns lists the account's campaigns. ?active=true|false filters.
//
//	GET /api/campaigns
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	if h.deps.Campaigns == nil {
		notConfigured(w)
		return
	}
	p := parsePage(r, 50, 200)
	f := campaign.ListFilter{Limit: p.Limit, Offset: p.offset()}
	switch r.URL.Query().Get("active") {
	case "true":
		v := true
		f.Active = &v
	case "false":
		v := false
		f.Active = &v
	}
	items, total, err := h.deps.Campaigns.List(r.Context(), accountID(r), f)
	if err != nil {
		campaignError(w, r, err)
		return
	}
	httputil.OK(w, newListResponse(items, p, total))
}

type createCampaignRequest struct {
	Name         string   `json:"name"`
	TemplateHTML string   `json:"template_html"`
	Categories   []string `json:"categories"`
	SenderID     string   `json:"sender_id"`
}

// CreateCampaign creates an inactive campaign.
//
//	POST /api/campaigns
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	if h.deps.Campaigns == nil {
		notConfigured(w)
		return
	}
	var req createCampaignRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.BadRequest(w, "name is required")
		return
	}
	c, err := h.deps.Campaigns.Create(r.Context(), accountID(r), campaign.CreateInput{
		Name:         req.Name,
		TemplateHTML: req.TemplateHTML,
		Categories:   req.Categories,
		SenderID:     req.SenderID,
	})
	if err != nil {
		campaignError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, c)
}

// GetCampaign returns one campaign.
//
//	GET /api/campaigns/{id}
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	if h.deps.Campaigns == nil {
		notConfigured(w)
		return
	}
	c, err := h.deps.Campaigns.Get(r.Context(), accountID(r), chi.URLParam(r, "id"))
	if err != nil {
		campaignError(w, r, err)
		return
	}
	httputil.OK(w, c)
}

// AssignSender sets the campaign's sender identity.
//
//	PUT /api/campaigns/{id}/sender
func (h *Handlers) AssignSender(w http.ResponseWriter, r *http.Request) {
	if h.deps.Campaigns == nil {
		notConfigured(w)
		return
	}
	var req struct {
		SenderID string `json:"sender_id"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.SenderID == "" {
		httputil.BadRequest(w, "sender_id is required")
		return
	}
	if err := h.deps.Campaigns.AssignSender(r.Context(), accountID(r), chi.URLParam(r, "id"), req.SenderID); err != nil {
		campaignError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true})
}

// ActivateCampaign makes the campaign eligible for allocation.
//
//	POST /api/campaigns/{id}/activate
func (h *Handlers) ActivateCampaign(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// DeactivateCampaign removes the campaign from allocation.
//
//	POST /api/campaigns/{id}/deactivate
func (h *Handlers) DeactivateCampaign(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handlers) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	if h.deps.Campaigns == nil {
		notConfigured(w)
		return
	}
	id := chi.URLParam(r, "id")
	var err error
	if active {
		err = h.deps.Campaigns.Activate(r.Context(), accountID(r), id)
	} else {
		err = h.deps.Campaigns.Deactivate(r.Context(), accountID(r), id)
	}
	if err != nil {
		campaignError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true, "active": active})
}
