package api

import (
	"net/http"

	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/service/suppression"
)

// ListSuppressions pages through suppression entries, optionally filtered
// by sender_id and reason.
//
//	GET /api/suppressions
func (h *Handlers) ListSuppressions(w http.ResponseWriter, r *http.Request) {
	if h.deps.Suppressions == nil {
		notConfigured(w)
		return
	}
	p := parsePage(r, 100, 500)
	q := r.URL.Query()
	items, total, err := h.deps.Suppressions.List(r.Context(), suppression.ListFilter{
		SenderID: q.Get("sender_id"),
		Reason:   q.Get("reason"),
		Limit:    p.Limit,
		Offset:   p.offset(),
	})
	if err != nil {
		httputil.InternalError(w, r, err)
		return
	}
	httputil.OK(w, newListResponse(items, p, total))
}
