package api

import (
	"errors"
	"net/http"

	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/service/allocation"
)

// PreviewAllocation runs the allocation with optional config overrides and
// returns the plan with its send times. Nothing is dispatched.
//
//	POST /api/allocation/preview
func (h *Handlers) PreviewAllocation(w http.ResponseWriter, r *http.Request) {
	p := h.deps.Previewer
	if p == nil {
		notConfigured(w)
		return
	}

	var overrides allocation.Overrides
	if !httputil.Decode(w, r, &overrides) {
		return
	}
	cfg := p.Config().Allocation.Apply(overrides)
	if err := cfg.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	preview, err := p.Preview(r.Context(), cfg)
	if err != nil {
		if errors.Is(err, allocation.ErrInvalidConfig) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{
		"config":  cfg,
		"preview": preview,
	})
}
