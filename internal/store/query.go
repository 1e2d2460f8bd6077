package store

import (
	"database/sql"

	"tudor/internal/models"
)

// OrderBy is one sort key. Multiple keys are applied as successive stable
// sorts, so the last key is the most significant.
type OrderBy struct {
	Field     models.OrderField    `json:"field"`
	Direction models.SortDirection `json:"direction"`
}

// TaskQuery filters committed tasks. Zero values mean "no filter" except
// where noted.
type TaskQuery struct {
	IsDone    *bool
	IsDeleted *bool
	IsPublic  *bool

	// ParentID nil means any parent; a non-Valid value selects top-level tasks.
	ParentID *sql.NullInt64
	// ParentIDIn, TaskIDIn and TaskIDNotIn apply whenever non-nil, so an
	// empty non-nil ParentIDIn or TaskIDIn matches nothing.
	ParentIDIn  []int64
	TaskIDIn    []int64
	TaskIDNotIn []int64

	UsersContains int64
	// IsPublicOrUsersContains keeps public tasks and tasks the user is
	// authorized for. A pointer to 0 keeps public tasks only.
	IsPublicOrUsersContains *int64
	TagsContains            int64

	DeadlineIsNotNone bool
	// SearchTerm is a case-sensitive substring match against summary or
	// description.
	SearchTerm string

	OrderNumGreaterEq *int64
	OrderNumLessEq    *int64

	OrderBy []OrderBy
	// Limit nil or negative means no limit.
	Limit *int
}

// Validate rejects unknown sort fields and directions.
func (q TaskQuery) Validate() error {
	for _, ob := range q.OrderBy {
		if !models.IsValidOrderField(ob.Field) {
			return models.InvalidArgumentf("unsupported order_by field %q", ob.Field)
		}
		if !models.IsValidSortDirection(ob.Direction) {
			return models.InvalidArgumentf("unsupported order_by direction %q", ob.Direction)
		}
	}
	return nil
}

type TagQuery struct {
	Value  string
	TaskID int64
	Limit  *int
}

// NoteQuery orders by timestamp when OrderBy is set; notes without a
// timestamp sort last.
type NoteQuery struct {
	TaskID  int64
	OrderBy models.SortDirection
	Limit   *int
}

func (q NoteQuery) Validate() error {
	if q.OrderBy != "" && !models.IsValidSortDirection(q.OrderBy) {
		return models.InvalidArgumentf("unsupported note order %q", q.OrderBy)
	}
	return nil
}

type AttachmentQuery struct {
	TaskID int64
	Limit  *int
}

type UserQuery struct {
	Email   string
	TaskID  int64
	IsAdmin *bool
	Limit   *int
}

type OptionQuery struct {
	KeyPrefix string
	Limit     *int
}

func limitOf(limit *int) int {
	if limit == nil || *limit < 0 {
		return -1
	}
	return *limit
}

func truncate[T any](items []T, limit int) []T {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// Pager is one page of a task listing.
type Pager struct {
	Items    []*models.Task
	PageNum  int
	PerPage  int
	Total    int
	NumPages int
}

func (p *Pager) HasPrev() bool { return p.PageNum > 1 }

func (p *Pager) HasNext() bool { return p.PageNum < p.NumPages }

func newPager(ids []int64, pageNum, perPage int) (pager *Pager, page []int64) {
	if pageNum <= 0 {
		pageNum = models.DefaultPageNum
	}
	if perPage <= 0 {
		perPage = models.DefaultPerPage
	}
	total := len(ids)
	pager = &Pager{
		PageNum:  pageNum,
		PerPage:  perPage,
		Total:    total,
	}
	if total > 0 {
		pager.NumPages = (total-1)/perPage + 1
	}
	if total == 0 || pageNum-1 > (total-1)/perPage {
		return pager, nil
	}
	start := (pageNum - 1) * perPage
	end := min(start+perPage, total)
	return pager, ids[start:end]
}

// Bool, Int and Int64 return pointers for optional query fields.
func Bool(v bool) *bool { return &v }

func Int(v int) *int { return &v }

func Int64(v int64) *int64 { return &v }

// TopLevel selects tasks without a parent.
func TopLevel() *sql.NullInt64 { return &sql.NullInt64{} }

// ParentIs selects the children of id.
func ParentIs(id int64) *sql.NullInt64 { return &sql.NullInt64{Int64: id, Valid: true} }
