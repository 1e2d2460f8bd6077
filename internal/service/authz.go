package service

import (
	"context"

	"tudor/internal/models"
	"tudor/internal/store"
)

// IsAuthorizedOrAdmin reports whether user may modify task.
func IsAuthorizedOrAdmin(task *models.Task, user *models.User) bool {
	if task == nil || user == nil {
		return false
	}
	return user.IsAdmin() || task.HasUser(user)
}

// CanView reports whether user may read task. Anonymous callers only see
// public tasks.
func CanView(task *models.Task, user *models.User) bool {
	if task == nil {
		return false
	}
	return task.IsPublic() || IsAuthorizedOrAdmin(task, user)
}

// visibleTo restricts q to the tasks user may read.
func visibleTo(q store.TaskQuery, user *models.User) store.TaskQuery {
	switch {
	case user == nil:
		q.IsPublicOrUsersContains = store.Int64(0)
	case !user.IsAdmin():
		q.IsPublicOrUsersContains = store.Int64(user.ID())
	}
	return q
}

// editableBy restricts q to the tasks user may modify.
func editableBy(q store.TaskQuery, user *models.User) store.TaskQuery {
	if !user.IsAdmin() {
		q.UsersContains = user.ID()
	}
	return q
}

func (s *Service) loadTask(ctx context.Context, id int64) (*models.Task, error) {
	if err := requireID("task id", id); err != nil {
		return nil, err
	}
	task, err := s.p.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, models.NotFoundf("task %d", id)
	}
	return task, nil
}

func (s *Service) viewableTask(ctx context.Context, id int64, user *models.User) (*models.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(task, user) {
		return nil, models.Forbiddenf("task %d is not visible", id)
	}
	return task, nil
}

func (s *Service) editableTask(ctx context.Context, id int64, user *models.User) (*models.Task, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !IsAuthorizedOrAdmin(task, user) {
		return nil, models.Forbiddenf("not authorized for task %d", id)
	}
	return task, nil
}
