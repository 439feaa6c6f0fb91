// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"encoding/json"
	"strings"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/usermsg"
	"gwin/internal/domain"
	"gwin/internal/domain/filter"
	"gwin/internal/form"
)

// --- Pagination ---

// PageRequest holds the query parameters of list and grid requests.
type PageRequest struct {
	PageStart int    `form:"pageStart" binding:"min=0"`
	PageSize  int    `form:"pageSize" binding:"min=0,max=500"`
	OrderBy   string `form:"orderBy"`
	// Include is a comma separated list of relationship properties.
	Include string `form:"include"`
	// Filter is a JSON array of filter.Item.
	Filter string `form:"filter"`
}

// Query converts the request to a domain query. A page start without a page
// size gets defaultSize.
func (r PageRequest) Query(defaultSize int) (domain.Query, error) {
	q := domain.Query{
		PageStart: r.PageStart,
		PageSize:  r.PageSize,
		OrderBy:   r.OrderBy,
	}
	if q.PageStart > 0 && q.PageSize == 0 {
		q.PageSize = defaultSize
	}
	for _, name := range strings.Split(r.Include, ",") {
		if name = strings.TrimSpace(name); name != "" {
			q.Include = append(q.Include, name)
		}
	}
	if r.Filter != "" {
		var items []filter.Item
		if err := json.Unmarshal([]byte(r.Filter), &items); err != nil {
			return q, apperror.NewInvalidInput("invalid filter format").WithDetail("error", err.Error())
		}
		q.Where = items
	}
	return q, nil
}

// ListResponse wraps one page of entities.
type ListResponse struct {
	Items      []entity.Entity   `json:"items"`
	TotalCount int64             `json:"totalCount"`
	PageStart  int               `json:"pageStart,omitempty"`
	PageSize   int               `json:"pageSize,omitempty"`
	Messages   []usermsg.Message `json:"messages,omitempty"`
}

// --- Forms ---

// SubmitRequest carries the control values of an entry form, keyed by property name.
// Criteria pre-fill a new entity, usually the values of the filter the form
// was opened from.
type SubmitRequest struct {
	Values   map[string]any `json:"values" binding:"required"`
	Criteria map[string]any `json:"criteria,omitempty"`
}

// ChangeRequest replays the edit of one control on an entry form. Values hold
// the other controls as currently shown.
type ChangeRequest struct {
	ID     int64          `json:"id" binding:"min=0"`
	Values map[string]any `json:"values"`
	Field  string         `json:"field" binding:"required"`
	Value  any            `json:"value"`
}

// SearchRequest carries the filter control values and the page to show.
type SearchRequest struct {
	Values    map[string]any `json:"values"`
	PageStart int            `json:"pageStart" binding:"min=0"`
	PageSize  int            `json:"pageSize" binding:"min=0,max=500"`
}

// FormResponse is an entry form with the messages raised while building it.
type FormResponse struct {
	Form     form.Model        `json:"form"`
	Messages []usermsg.Message `json:"messages,omitempty"`
}

// SaveResponse reports a submitted entry form.
type SaveResponse struct {
	ID       int64             `json:"id"`
	Affected int64             `json:"affected"`
	Form     form.Model        `json:"form"`
	Messages []usermsg.Message `json:"messages,omitempty"`
}

// DeleteResponse reports a delete.
type DeleteResponse struct {
	Affected int64             `json:"affected"`
	Messages []usermsg.Message `json:"messages,omitempty"`
}

// FilterResponse is the filter surface of an entity.
type FilterResponse struct {
	Entity   string          `json:"entity"`
	Controls []*form.Control `json:"controls"`
}

// GridResponse is a rendered grid with the messages of the business object.
type GridResponse struct {
	*form.Grid
	Messages []usermsg.Message `json:"messages,omitempty"`
}
