package service

import (
	"context"

	"tudor/internal/auth"
	"tudor/internal/models"
	"tudor/internal/store"
)

// CreateUser registers a user. Only admins may add users, except for the
// very first one, which is always made an admin.
func (s *Service) CreateUser(ctx context.Context, actor *models.User, email, password string, isAdmin bool) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, func() error {
		existing, err := s.p.CountUsers(ctx, store.UserQuery{Limit: store.Int(1)})
		if err != nil {
			return err
		}
		if existing == 0 {
			isAdmin = true
		} else if err := requireAdmin(actor); err != nil {
			return err
		}

		normalized, err := auth.NormalizeEmail(email)
		if err != nil {
			return models.InvalidArgumentf("%v", err)
		}
		if err := auth.ValidatePassword(password); err != nil {
			return models.InvalidArgumentf("%v", err)
		}
		hashed, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		user = s.p.CreateUser(normalized, hashed, isAdmin)
		return s.p.Add(user)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "id", user.ID(), "admin", user.IsAdmin())
	return user, nil
}

// Authenticate returns the user matching the credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, func() error {
		normalized, err := auth.NormalizeEmail(email)
		if err != nil {
			return models.Forbiddenf("invalid credentials")
		}
		found, err := s.p.GetUserByEmail(ctx, normalized)
		if err != nil {
			return err
		}
		if found == nil || !auth.VerifyPassword(found.HashedPassword(), password) {
			return models.Forbiddenf("invalid credentials")
		}
		user = found
		return nil
	})
	return user, err
}

// SetPassword changes a user's password. Users may change their own; admins
// may change anyone's.
func (s *Service) SetPassword(ctx context.Context, actor *models.User, userID int64, password string) error {
	return s.run(ctx, func() error {
		if err := requireUser(actor); err != nil {
			return err
		}
		user, err := s.loadUser(ctx, userID)
		if err != nil {
			return err
		}
		if user != actor && !actor.IsAdmin() {
			return models.Forbiddenf("cannot change another user's password")
		}
		if err := auth.ValidatePassword(password); err != nil {
			return models.InvalidArgumentf("%v", err)
		}
		hashed, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		user.SetHashedPassword(hashed)
		return nil
	})
}

// AuthorizeUser lets another user view and edit a task.
func (s *Service) AuthorizeUser(ctx context.Context, actor *models.User, taskID, userID int64) error {
	return s.run(ctx, func() error {
		task, err := s.editableTask(ctx, taskID, actor)
		if err != nil {
			return err
		}
		user, err := s.loadUser(ctx, userID)
		if err != nil {
			return err
		}
		task.AddUser(user)
		return nil
	})
}

// DeauthorizeUser revokes a user's access to a task. A task always keeps at
// least one authorized user.
func (s *Service) DeauthorizeUser(ctx context.Context, actor *models.User, taskID, userID int64) error {
	return s.run(ctx, func() error {
		task, err := s.editableTask(ctx, taskID, actor)
		if err != nil {
			return err
		}
		user, err := s.loadUser(ctx, userID)
		if err != nil {
			return err
		}
		if !task.HasUser(user) {
			return nil
		}
		if len(task.Users()) == 1 {
			return models.Conflictf("cannot remove the last authorized user from task %d", taskID)
		}
		task.RemoveUser(user)
		return nil
	})
}

// ListUsers returns every user. Admin only.
func (s *Service) ListUsers(ctx context.Context, actor *models.User) ([]*models.User, error) {
	var users []*models.User
	err := s.run(ctx, func() error {
		if err := requireAdmin(actor); err != nil {
			return err
		}
		var err error
		users, err = s.p.GetUsers(ctx, store.UserQuery{})
		return err
	})
	return users, err
}

// GetUser resolves a user id, for callers that carry identities across
// units of work.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, func() error {
		var err error
		user, err = s.loadUser(ctx, id)
		return err
	})
	return user, err
}

func (s *Service) loadUser(ctx context.Context, id int64) (*models.User, error) {
	if err := requireID("user id", id); err != nil {
		return nil, err
	}
	user, err := s.p.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NotFoundf("user %d", id)
	}
	return user, nil
}
