package server

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"tudor/internal/models"
	"tudor/internal/service"
	"tudor/internal/store"
)

func parseVisibility(r *http.Request) (service.Visibility, error) {
	showDone, err := queryBool(r, "show_done")
	if err != nil {
		return service.Visibility{}, err
	}
	showDeleted, err := queryBool(r, "show_deleted")
	if err != nil {
		return service.Visibility{}, err
	}
	return service.Visibility{ShowDone: showDone, ShowDeleted: showDeleted}, nil
}

// parseListOptions reads the task listing query: show_done, show_deleted,
// parent_id, top_level, tag_id, q, order_by, page and per_page.
func parseListOptions(r *http.Request) (service.ListOptions, error) {
	vis, err := parseVisibility(r)
	if err != nil {
		return service.ListOptions{}, err
	}
	parentID, err := queryInt64(r, "parent_id")
	if err != nil {
		return service.ListOptions{}, err
	}
	topLevel, err := queryBool(r, "top_level")
	if err != nil {
		return service.ListOptions{}, err
	}
	if topLevel && parentID != 0 {
		return service.ListOptions{}, badRequestCode(fmt.Errorf("parent_id and top_level are exclusive"), ErrCodeInvalidQuery)
	}
	tagID, err := queryInt64(r, "tag_id")
	if err != nil {
		return service.ListOptions{}, err
	}
	orderBy, err := parseOrderBy(r.URL.Query().Get("order_by"))
	if err != nil {
		return service.ListOptions{}, err
	}
	page, err := queryInt(r, "page")
	if err != nil {
		return service.ListOptions{}, err
	}
	perPage, err := queryInt(r, "per_page")
	if err != nil {
		return service.ListOptions{}, err
	}
	perPage = min(perPage, models.MaxPerPage)

	return service.ListOptions{
		Visibility: vis,
		ParentID:   parentID,
		TopLevel:   topLevel,
		TagID:      tagID,
		SearchTerm: strings.TrimSpace(r.URL.Query().Get("q")),
		OrderBy:    orderBy,
		PageNum:    page,
		PerPage:    perPage,
	}, nil
}

// parseOrderBy reads "field[:dir],field[:dir]". The first key is the primary
// sort, so the list is reversed into the store's last-dominant order.
func parseOrderBy(raw string) ([]store.OrderBy, error) {
	parts := splitCSV(raw)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]store.OrderBy, 0, len(parts))
	for _, part := range parts {
		name, dir, _ := strings.Cut(part, ":")
		field, err := models.ParseOrderField(name)
		if err != nil {
			return nil, badRequestCode(err, ErrCodeInvalidOrderBy)
		}
		direction, err := models.ParseSortDirection(dir)
		if err != nil {
			return nil, badRequestCode(err, ErrCodeInvalidOrderBy)
		}
		out = append(out, store.OrderBy{Field: field, Direction: direction})
	}
	slices.Reverse(out)
	return out, nil
}
