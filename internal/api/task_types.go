package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskCreateRequest defines the payload for creating a task.
type TaskCreateRequest struct {
	Summary                 string           `json:"summary"`
	Description             string           `json:"description,omitempty"`
	ParentID                int64            `json:"parent_id,omitempty"`
	IsPublic                bool             `json:"is_public,omitempty"`
	IsDone                  bool             `json:"is_done,omitempty"`
	Deadline                *time.Time       `json:"deadline,omitempty"`
	ExpectedDurationMinutes *int             `json:"expected_duration_minutes,omitempty"`
	ExpectedCost            *decimal.Decimal `json:"expected_cost,omitempty"`
	Tags                    []string         `json:"tags,omitempty"`
}

// TaskUpdateRequest maps field names to new values. A null value clears an
// optional field; "parent" takes a task id or null.
type TaskUpdateRequest map[string]any

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID                      int64            `json:"id"`
	Summary                 string           `json:"summary"`
	Description             string           `json:"description"`
	IsDone                  bool             `json:"is_done"`
	IsDeleted               bool             `json:"is_deleted"`
	IsPublic                bool             `json:"is_public"`
	Deadline                *time.Time       `json:"deadline"`
	ExpectedDurationMinutes *int             `json:"expected_duration_minutes"`
	ExpectedCost            *decimal.Decimal `json:"expected_cost"`
	OrderNum                int64            `json:"order_num"`
	ParentID                *int64           `json:"parent_id"`
	ChildIDs                []int64          `json:"child_ids"`
	Tags                    []string         `json:"tags"`
	UserIDs                 []int64          `json:"user_ids"`
	DependeeIDs             []int64          `json:"dependee_ids"`
	PrioritizeBeforeIDs     []int64          `json:"prioritize_before_ids"`
}

// TaskPageResponse is one page of a task listing.
type TaskPageResponse struct {
	Tasks    []TaskResponse `json:"tasks"`
	PageNum  int            `json:"page_num"`
	PerPage  int            `json:"per_page"`
	Total    int            `json:"total"`
	NumPages int            `json:"num_pages"`
}
