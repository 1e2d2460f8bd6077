package service

import (
	"context"
	"strings"

	"tudor/internal/models"
	"tudor/internal/store"
)

// tagForValue returns the tag with value, creating and staging it when it
// does not exist yet.
func (s *Service) tagForValue(ctx context.Context, raw string) (*models.Tag, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, models.InvalidArgumentf("tag value is required")
	}
	tag, err := s.p.GetTagByValue(ctx, value)
	if err != nil || tag != nil {
		return tag, err
	}
	tag = s.p.CreateTag(value, "")
	return tag, s.p.Add(tag)
}

// AddTagToTask tags a task, creating the tag on first use.
func (s *Service) AddTagToTask(ctx context.Context, user *models.User, taskID int64, value string) (*models.Tag, error) {
	var tag *models.Tag
	err := s.run(ctx, func() error {
		task, err := s.editableTask(ctx, taskID, user)
		if err != nil {
			return err
		}
		if tag, err = s.tagForValue(ctx, value); err != nil {
			return err
		}
		task.AddTag(tag)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// RemoveTagFromTask untags a task. Removing a tag the task does not carry is
// a no-op.
func (s *Service) RemoveTagFromTask(ctx context.Context, user *models.User, taskID, tagID int64) error {
	return s.run(ctx, func() error {
		task, err := s.editableTask(ctx, taskID, user)
		if err != nil {
			return err
		}
		tag, err := s.loadTag(ctx, tagID)
		if err != nil {
			return err
		}
		task.RemoveTag(tag)
		return nil
	})
}

// UpdateTag renames or redescribes a tag. Tags are shared, so only admins
// may change them.
func (s *Service) UpdateTag(ctx context.Context, user *models.User, tagID int64, value, description string) (*models.Tag, error) {
	var tag *models.Tag
	err := s.run(ctx, func() error {
		if err := requireAdmin(user); err != nil {
			return err
		}
		var err error
		if tag, err = s.loadTag(ctx, tagID); err != nil {
			return err
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return models.InvalidArgumentf("tag value is required")
		}
		tag.SetValue(value)
		tag.SetDescription(description)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// ListTags returns all tags by id.
func (s *Service) ListTags(ctx context.Context) ([]*models.Tag, error) {
	var tags []*models.Tag
	err := s.run(ctx, func() error {
		var err error
		tags, err = s.p.GetTags(ctx, store.TagQuery{})
		return err
	})
	return tags, err
}

func (s *Service) loadTag(ctx context.Context, id int64) (*models.Tag, error) {
	if err := requireID("tag id", id); err != nil {
		return nil, err
	}
	tag, err := s.p.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, models.NotFoundf("tag %d", id)
	}
	return tag, nil
}
