package service

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tudor/internal/models"
	"tudor/internal/store"
)

// TaskInput carries the fields of a new task.
type TaskInput struct {
	Summary                 string
	Description             string
	ParentID                int64
	IsPublic                bool
	IsDone                  bool
	Deadline                *time.Time
	ExpectedDurationMinutes *int
	ExpectedCost            decimal.NullDecimal
	Tags                    []string
}

// ListOptions selects a page of tasks.
type ListOptions struct {
	Visibility
	ParentID   int64
	TopLevel   bool
	TagID      int64
	SearchTerm string
	OrderBy    []store.OrderBy
	PageNum    int
	PerPage    int
}

// updatable lists the fields UpdateTask accepts. Relationships other than
// parent have dedicated operations.
var updatable = map[models.Field]struct{}{
	models.FieldSummary:                 {},
	models.FieldDescription:             {},
	models.FieldIsDone:                  {},
	models.FieldIsDeleted:               {},
	models.FieldIsPublic:                {},
	models.FieldDeadline:                {},
	models.FieldExpectedDurationMinutes: {},
	models.FieldExpectedCost:            {},
	models.FieldOrderNum:                {},
	models.FieldParent:                  {},
}

// CreateTask creates a task owned by user and places it above its siblings.
func (s *Service) CreateTask(ctx context.Context, user *models.User, in TaskInput) (*models.Task, error) {
	var task *models.Task
	err := s.run(ctx, func() error {
		if err := requireUser(user); err != nil {
			return err
		}
		summary := strings.TrimSpace(in.Summary)
		if summary == "" {
			return models.InvalidArgumentf("summary is required")
		}
		if in.ExpectedDurationMinutes != nil && *in.ExpectedDurationMinutes < 0 {
			return models.InvalidArgumentf("expected_duration_minutes must not be negative")
		}

		var parent *models.Task
		if in.ParentID != 0 {
			var err error
			if parent, err = s.editableTask(ctx, in.ParentID, user); err != nil {
				return err
			}
		}
		orderNum, err := s.topOrderNum(ctx, parent)
		if err != nil {
			return err
		}

		task = s.p.CreateTask(summary, in.Description)
		task.SetIsPublic(in.IsPublic)
		task.SetIsDone(in.IsDone)
		task.SetDeadline(in.Deadline)
		task.SetExpectedDurationMinutes(in.ExpectedDurationMinutes)
		task.SetExpectedCost(in.ExpectedCost)
		task.SetOrderNum(orderNum)
		task.SetParent(parent)
		task.AddUser(user)
		for _, value := range in.Tags {
			tag, err := s.tagForValue(ctx, value)
			if err != nil {
				return err
			}
			task.AddTag(tag)
		}
		return s.p.Add(task)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("task created", "id", task.ID(), "parent_id", task.ParentID())
	return task, nil
}

// topOrderNum returns the order number that puts a new task above every
// current child of parent: the largest sibling value plus 2, or 0 when there
// are no siblings.
func (s *Service) topOrderNum(ctx context.Context, parent *models.Task) (int64, error) {
	top, err := s.p.GetTasks(ctx, store.TaskQuery{
		ParentID: parentFilter(parent),
		OrderBy:  []store.OrderBy{{Field: models.OrderByOrderNum, Direction: models.SortDesc}},
		Limit:    store.Int(1),
	})
	if err != nil || len(top) == 0 {
		return 0, err
	}
	return top[0].OrderNum() + 2, nil
}

func parentFilter(parent *models.Task) *sql.NullInt64 {
	if parent == nil {
		return store.TopLevel()
	}
	return store.ParentIs(parent.ID())
}

// GetTask returns a task user may view.
func (s *Service) GetTask(ctx context.Context, user *models.User, id int64) (*models.Task, error) {
	var task *models.Task
	err := s.run(ctx, func() error {
		var err error
		task, err = s.viewableTask(ctx, id, user)
		return err
	})
	return task, err
}

// UpdateTask applies field changes to a task. A parent change may be given
// as a task id (0 for none) or a *models.Task; it moves the task on top of
// its new siblings unless the same update also sets order_num.
func (s *Service) UpdateTask(ctx context.Context, user *models.User, id int64, changes []models.Change) (*models.Task, error) {
	var task *models.Task
	err := s.run(ctx, func() error {
		var err error
		if task, err = s.editableTask(ctx, id, user); err != nil {
			return err
		}

		resolved := make([]models.Change, 0, len(changes))
		var newParent *models.Task
		parentChanged, orderSet := false, false
		for _, c := range changes {
			if _, ok := updatable[c.Field]; !ok {
				return models.InvalidArgumentf("field %q cannot be updated", c.Field)
			}
			if c.Op != models.OpSet {
				return models.InvalidArgumentf("field %q only supports set", c.Field)
			}
			switch c.Field {
			case models.FieldSummary:
				if v, ok := c.Value.(string); !ok || strings.TrimSpace(v) == "" {
					return models.InvalidArgumentf("summary is required")
				}
			case models.FieldOrderNum:
				orderSet = true
			case models.FieldParent:
				parent, err := s.resolveParent(ctx, user, task, c.Value)
				if err != nil {
					return err
				}
				c.Value = parent
				newParent, parentChanged = parent, parent != task.Parent()
			}
			resolved = append(resolved, c)
		}

		if parentChanged && !orderSet {
			orderNum, err := s.topOrderNum(ctx, newParent)
			if err != nil {
				return err
			}
			resolved = append(resolved, models.Change{Field: models.FieldOrderNum, Op: models.OpSet, Value: orderNum})
		}
		return models.ApplyAll(task, resolved)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) resolveParent(ctx context.Context, user *models.User, task *models.Task, value any) (*models.Task, error) {
	var id int64
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *models.Task:
		if v == nil {
			return nil, nil
		}
		id = v.ID()
	case int:
		id = int64(v)
	case int64:
		id = v
	case float64:
		if v != math.Trunc(v) {
			return nil, models.InvalidArgumentf("parent expects a task id, got %v", v)
		}
		id = int64(v)
	default:
		return nil, models.InvalidArgumentf("parent expects a task id, got %T", value)
	}
	if id == 0 {
		return nil, nil
	}
	parent, err := s.editableTask(ctx, id, user)
	if err != nil {
		return nil, err
	}
	if onParentChain(task, parent) {
		return nil, models.Conflictf("task %d cannot be placed under its own subtree", task.ID())
	}
	return parent, nil
}

// onParentChain reports whether node is candidate or one of its ancestors.
func onParentChain(node, candidate *models.Task) bool {
	seen := make(map[*models.Task]struct{})
	for p := candidate; p != nil; p = p.Parent() {
		if p == node {
			return true
		}
		if _, ok := seen[p]; ok {
			return false
		}
		seen[p] = struct{}{}
	}
	return false
}

// SetDone marks a task done or not done.
func (s *Service) SetDone(ctx context.Context, user *models.User, id int64, done bool) (*models.Task, error) {
	return s.mutateTask(ctx, user, id, func(task *models.Task) { task.SetIsDone(done) })
}

// SoftDelete hides a task without removing it.
func (s *Service) SoftDelete(ctx context.Context, user *models.User, id int64) (*models.Task, error) {
	return s.mutateTask(ctx, user, id, func(task *models.Task) { task.SetIsDeleted(true) })
}

// Undelete reverses SoftDelete.
func (s *Service) Undelete(ctx context.Context, user *models.User, id int64) (*models.Task, error) {
	return s.mutateTask(ctx, user, id, func(task *models.Task) { task.SetIsDeleted(false) })
}

func (s *Service) mutateTask(ctx context.Context, user *models.User, id int64, fn func(*models.Task)) (*models.Task, error) {
	var task *models.Task
	err := s.run(ctx, func() error {
		var err error
		if task, err = s.editableTask(ctx, id, user); err != nil {
			return err
		}
		fn(task)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// PurgeTask removes a task permanently. Its children become top-level and
// its notes and attachments lose their owner.
func (s *Service) PurgeTask(ctx context.Context, user *models.User, id int64) error {
	return s.run(ctx, func() error {
		if err := requireAdmin(user); err != nil {
			return err
		}
		task, err := s.loadTask(ctx, id)
		if err != nil {
			return err
		}
		return s.p.Delete(task)
	})
}

// PurgeDeletedTasks permanently removes every soft-deleted task.
func (s *Service) PurgeDeletedTasks(ctx context.Context, user *models.User) (int, error) {
	var count int
	err := s.run(ctx, func() error {
		if err := requireAdmin(user); err != nil {
			return err
		}
		tasks, err := s.p.GetTasks(ctx, store.TaskQuery{IsDeleted: store.Bool(true)})
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if err := s.p.Delete(task); err != nil {
				return err
			}
		}
		count = len(tasks)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("purged deleted tasks", "count", count)
	return count, nil
}

// ListTasks returns one page of the tasks user may view.
func (s *Service) ListTasks(ctx context.Context, user *models.User, opts ListOptions) (*store.Pager, error) {
	q := visibleTo(opts.Visibility.filter(store.TaskQuery{
		TagsContains: opts.TagID,
		SearchTerm:   opts.SearchTerm,
		OrderBy:      opts.OrderBy,
	}), user)
	switch {
	case opts.TopLevel:
		q.ParentID = store.TopLevel()
	case opts.ParentID != 0:
		q.ParentID = store.ParentIs(opts.ParentID)
	}
	if len(q.OrderBy) == 0 {
		q.OrderBy = displayOrder
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = s.perPage
	}

	var pager *store.Pager
	err := s.run(ctx, func() error {
		var err error
		pager, err = s.p.GetPaginatedTasks(ctx, q, opts.PageNum, perPage)
		return err
	})
	return pager, err
}

// Deadlines returns the visible tasks that have a deadline, soonest first.
func (s *Service) Deadlines(ctx context.Context, user *models.User, vis Visibility) ([]*models.Task, error) {
	q := visibleTo(vis.filter(store.TaskQuery{
		DeadlineIsNotNone: true,
		OrderBy:           []store.OrderBy{{Field: models.OrderByDeadline, Direction: models.SortAsc}},
	}), user)

	var tasks []*models.Task
	err := s.run(ctx, func() error {
		var err error
		tasks, err = s.p.GetTasks(ctx, q)
		return err
	})
	return tasks, err
}

// Subtree returns root followed by its visible descendants in hierarchy
// order.
func (s *Service) Subtree(ctx context.Context, user *models.User, rootID int64, vis Visibility) ([]*models.Task, error) {
	var out []*models.Task
	err := s.run(ctx, func() error {
		root, err := s.viewableTask(ctx, rootID, user)
		if err != nil {
			return err
		}
		var collected []*models.Task
		visited := map[*models.Task]struct{}{root: {}}
		queue := []*models.Task{root}
		for len(queue) > 0 {
			t := queue[0]
			queue = queue[1:]
			for _, c := range t.Children() {
				if _, ok := visited[c]; ok {
					continue
				}
				visited[c] = struct{}{}
				if vis.shows(c) && CanView(c, user) {
					collected = append(collected, c)
					queue = append(queue, c)
				}
			}
		}
		out = SortByHierarchy(collected, root)
		return nil
	})
	return out, err
}
