package service

import (
	"cmp"
	"context"
	"slices"

	"tudor/internal/models"
	"tudor/internal/store"
)

// Siblings are tasks sharing a parent, top-level tasks included. They display
// by descending order_num; a higher number is nearer the top. Numbers are
// spaced by 2 so most moves only touch one or two rows.

// Visibility selects which finished or soft-deleted tasks take part in a
// listing or a move.
type Visibility struct {
	ShowDone    bool
	ShowDeleted bool
}

func (v Visibility) filter(q store.TaskQuery) store.TaskQuery {
	if !v.ShowDone {
		q.IsDone = store.Bool(false)
	}
	if !v.ShowDeleted {
		q.IsDeleted = store.Bool(false)
	}
	return q
}

func (v Visibility) shows(t *models.Task) bool {
	return (v.ShowDone || !t.IsDone()) && (v.ShowDeleted || !t.IsDeleted())
}

// displayOrder sorts by order_num descending with id ascending breaking ties;
// the last entry dominates.
var displayOrder = []store.OrderBy{
	{Field: models.OrderByTaskID, Direction: models.SortAsc},
	{Field: models.OrderByOrderNum, Direction: models.SortDesc},
}

func compareDisplay(a, b *models.Task) int {
	if c := cmp.Compare(b.OrderNum(), a.OrderNum()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID(), b.ID())
}

// siblings returns task's siblings, task included, in display order. A nil
// vis returns every sibling.
func (s *Service) siblings(ctx context.Context, task *models.Task, vis *Visibility) ([]*models.Task, error) {
	q := store.TaskQuery{ParentID: parentFilter(task.Parent()), OrderBy: displayOrder}
	if vis != nil {
		q = vis.filter(q)
	}
	return s.p.GetTasks(ctx, q)
}

// MoveUp swaps a task with the nearest visible sibling above it.
func (s *Service) MoveUp(ctx context.Context, user *models.User, id int64, vis Visibility) error {
	return s.moveAdjacent(ctx, user, id, vis, models.MoveUp)
}

// MoveDown swaps a task with the nearest visible sibling below it.
func (s *Service) MoveDown(ctx context.Context, user *models.User, id int64, vis Visibility) error {
	return s.moveAdjacent(ctx, user, id, vis, models.MoveDown)
}

// Move dispatches on direction.
func (s *Service) Move(ctx context.Context, user *models.User, id int64, dir models.MoveDirection, vis Visibility) error {
	switch dir {
	case models.MoveUp, models.MoveDown:
		return s.moveAdjacent(ctx, user, id, vis, dir)
	case models.MoveTop:
		return s.MoveToTop(ctx, user, id, vis)
	case models.MoveBottom:
		return s.MoveToBottom(ctx, user, id, vis)
	}
	return models.InvalidArgumentf("unknown move direction %q", dir)
}

func (s *Service) moveAdjacent(ctx context.Context, user *models.User, id int64, vis Visibility, dir models.MoveDirection) error {
	return s.run(ctx, func() error {
		task, err := s.editableTask(ctx, id, user)
		if err != nil {
			return err
		}
		visible, err := s.siblings(ctx, task, &vis)
		if err != nil {
			return err
		}
		if hasCollision(task, visible) {
			if err := s.reorderSiblings(ctx, task); err != nil {
				return err
			}
		}

		neighbour := nearest(task, visible, dir == models.MoveUp)
		if neighbour == nil {
			return nil
		}
		mine, theirs := task.OrderNum(), neighbour.OrderNum()
		task.SetOrderNum(theirs)
		neighbour.SetOrderNum(mine)
		return nil
	})
}

// hasCollision reports whether two of the visible siblings, task included,
// share an order number.
func hasCollision(task *models.Task, visible []*models.Task) bool {
	seen := map[int64]struct{}{task.OrderNum(): {}}
	for _, t := range visible {
		if t == task {
			continue
		}
		if _, ok := seen[t.OrderNum()]; ok {
			return true
		}
		seen[t.OrderNum()] = struct{}{}
	}
	return false
}

// nearest returns the closest sibling at or above (up) or at or below (down)
// task's order number.
func nearest(task *models.Task, siblings []*models.Task, up bool) *models.Task {
	var best *models.Task
	for _, t := range siblings {
		if t == task {
			continue
		}
		switch {
		case up && t.OrderNum() >= task.OrderNum():
			if best == nil || t.OrderNum() < best.OrderNum() {
				best = t
			}
		case !up && t.OrderNum() <= task.OrderNum():
			if best == nil || t.OrderNum() > best.OrderNum() {
				best = t
			}
		}
	}
	return best
}

// MoveToTop places a task above all its visible siblings. A task already
// strictly on top is left alone.
func (s *Service) MoveToTop(ctx context.Context, user *models.User, id int64, vis Visibility) error {
	return s.run(ctx, func() error {
		task, others, err := s.visibleOthers(ctx, user, id, vis)
		if err != nil || len(others) == 0 {
			return err
		}
		top := slices.MaxFunc(others, func(a, b *models.Task) int { return cmp.Compare(a.OrderNum(), b.OrderNum()) })
		if task.OrderNum() > top.OrderNum() {
			return nil
		}
		task.SetOrderNum(top.OrderNum() + 1)
		return nil
	})
}

// MoveToBottom places a task below all its visible siblings.
func (s *Service) MoveToBottom(ctx context.Context, user *models.User, id int64, vis Visibility) error {
	return s.run(ctx, func() error {
		task, others, err := s.visibleOthers(ctx, user, id, vis)
		if err != nil || len(others) == 0 {
			return err
		}
		bottom := slices.MinFunc(others, func(a, b *models.Task) int { return cmp.Compare(a.OrderNum(), b.OrderNum()) })
		if task.OrderNum() < bottom.OrderNum() {
			return nil
		}
		task.SetOrderNum(bottom.OrderNum() - 2)
		return nil
	})
}

func (s *Service) visibleOthers(ctx context.Context, user *models.User, id int64, vis Visibility) (*models.Task, []*models.Task, error) {
	task, err := s.editableTask(ctx, id, user)
	if err != nil {
		return nil, nil, err
	}
	visible, err := s.siblings(ctx, task, &vis)
	if err != nil {
		return nil, nil, err
	}
	others := slices.DeleteFunc(visible, func(t *models.Task) bool { return t == task })
	return task, others, nil
}

// LongOrderChange moves a task to just below target. Every sibling is
// renumbered, so afterwards the order numbers run 2N, 2N-2, ... 2.
func (s *Service) LongOrderChange(ctx context.Context, user *models.User, moveID, targetID int64) error {
	return s.run(ctx, func() error {
		move, err := s.editableTask(ctx, moveID, user)
		if err != nil {
			return err
		}
		target, err := s.viewableTask(ctx, targetID, user)
		if err != nil {
			return err
		}
		if move.Parent() != target.Parent() {
			return models.Conflictf("tasks %d and %d have different parents", moveID, targetID)
		}
		if move == target {
			return nil
		}

		all, err := s.siblings(ctx, move, nil)
		if err != nil {
			return err
		}
		ordered := slices.DeleteFunc(all, func(t *models.Task) bool { return t == move })
		at := slices.Index(ordered, target)
		if at < 0 {
			return models.NotFoundf("task %d is not a sibling of task %d", targetID, moveID)
		}
		ordered = slices.Insert(ordered, at+1, move)
		renumber(ordered)
		return nil
	})
}

// reorderSiblings renumbers all of task's siblings in their current display
// order, removing ties.
func (s *Service) reorderSiblings(ctx context.Context, task *models.Task) error {
	all, err := s.siblings(ctx, task, nil)
	if err != nil {
		return err
	}
	slices.SortStableFunc(all, compareDisplay)
	renumber(all)
	return nil
}

// ResetOrderNums renumbers every task the user may edit into one global
// sequence following the hierarchy order.
func (s *Service) ResetOrderNums(ctx context.Context, user *models.User, vis Visibility) error {
	return s.run(ctx, func() error {
		if err := requireUser(user); err != nil {
			return err
		}
		tasks, err := s.p.GetTasks(ctx, editableBy(vis.filter(store.TaskQuery{}), user))
		if err != nil {
			return err
		}
		renumber(SortByHierarchy(tasks, nil))
		return nil
	})
}

func renumber(tasks []*models.Task) {
	n := len(tasks)
	for i, t := range tasks {
		t.SetOrderNum(int64(n-i) * 2)
	}
}

// SortByHierarchy orders tasks so that every parent directly precedes its
// descendants, siblings in display order. A task whose parent is not in
// tasks starts a tree of its own. With a non-nil root only root and the
// tasks below it are returned.
func SortByHierarchy(tasks []*models.Task, root *models.Task) []*models.Task {
	members := make(map[*models.Task]struct{}, len(tasks))
	for _, t := range tasks {
		members[t] = struct{}{}
	}

	children := make(map[*models.Task][]*models.Task)
	var roots []*models.Task
	for _, t := range tasks {
		if t == root {
			continue
		}
		parent := t.Parent()
		if _, ok := members[parent]; ok || (parent != nil && parent == root) {
			children[parent] = append(children[parent], t)
			continue
		}
		roots = append(roots, t)
	}
	if root != nil {
		roots = []*models.Task{root}
	}
	slices.SortStableFunc(roots, compareDisplay)
	for _, kids := range children {
		slices.SortStableFunc(kids, compareDisplay)
	}

	out := make([]*models.Task, 0, len(tasks)+1)
	visited := make(map[*models.Task]struct{}, len(tasks))
	stack := slices.Clone(roots)
	slices.Reverse(stack)
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[t]; ok {
			continue
		}
		visited[t] = struct{}{}
		out = append(out, t)
		for _, c := range slices.Backward(children[t]) {
			stack = append(stack, c)
		}
	}
	return out
}
