package api

import (
	"net/http"
	"strconv"
)

// page holds the parsed ?page=&limit= query.
type page struct {
	Number int
	Limit  int
}

func (p page) offset() int { return (p.Number - 1) * p.Limit }

// listResponse wraps a list with paging metadata.
type listResponse struct {
	Data    any  `json:"data"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// parsePage reads page and limit, clamping limit to maxLimit.
func parsePage(r *http.Request, defaultLimit, maxLimit int) page {
	q := r.URL.Query()
	n, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if n < 1 {
		n = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page{Number: n, Limit: limit}
}

func newListResponse(data any, p page, total int) listResponse {
	return listResponse{
		Data:    data,
		Page:    p.Number,
		Limit:   p.Limit,
		Total:   total,
		HasMore: p.offset()+p.Limit < total,
	}
}
