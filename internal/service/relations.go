package service

import (
	"context"

	"tudor/internal/models"
)

// AddDependee records that a task depends on another one.
func (s *Service) AddDependee(ctx context.Context, user *models.User, taskID, dependeeID int64) error {
	return s.link(ctx, user, taskID, dependeeID, "depend on", (*models.Task).Dependees, (*models.Task).AddDependee)
}

// RemoveDependee drops a dependency.
func (s *Service) RemoveDependee(ctx context.Context, user *models.User, taskID, dependeeID int64) error {
	return s.unlink(ctx, user, taskID, dependeeID, (*models.Task).RemoveDependee)
}

// AddPrioritizeBefore records that a task should be done before another one.
func (s *Service) AddPrioritizeBefore(ctx context.Context, user *models.User, taskID, otherID int64) error {
	return s.link(ctx, user, taskID, otherID, "be prioritized before", (*models.Task).PrioritizeBefore, (*models.Task).AddPrioritizeBefore)
}

// RemovePrioritizeBefore drops a prioritization.
func (s *Service) RemovePrioritizeBefore(ctx context.Context, user *models.User, taskID, otherID int64) error {
	return s.unlink(ctx, user, taskID, otherID, (*models.Task).RemovePrioritizeBefore)
}

// link adds the edge task -> other unless other already reaches task along
// the same relation.
func (s *Service) link(ctx context.Context, user *models.User, taskID, otherID int64, verb string,
	next func(*models.Task) []*models.Task, add func(*models.Task, *models.Task)) error {
	return s.run(ctx, func() error {
		task, err := s.editableTask(ctx, taskID, user)
		if err != nil {
			return err
		}
		other, err := s.viewableTask(ctx, otherID, user)
		if err != nil {
			return err
		}
		if reaches(other, task, next) {
			return models.Conflictf("task %d cannot %s task %d: cycle", taskID, verb, otherID)
		}
		add(task, other)
		return nil
	})
}

func (s *Service) unlink(ctx context.Context, user *models.User, taskID, otherID int64, remove func(*models.Task, *models.Task)) error {
	return s.run(ctx, func() error {
		task, err := s.editableTask(ctx, taskID, user)
		if err != nil {
			return err
		}
		other, err := s.loadTask(ctx, otherID)
		if err != nil {
			return err
		}
		remove(task, other)
		return nil
	})
}

// reaches reports whether to is from or reachable from it through next.
func reaches(from, to *models.Task, next func(*models.Task) []*models.Task) bool {
	seen := make(map[*models.Task]struct{})
	stack := []*models.Task{from}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t == to {
			return true
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		stack = append(stack, next(t)...)
	}
	return false
}
