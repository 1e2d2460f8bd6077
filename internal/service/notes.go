package service

import (
	"context"
	"strings"
	"time"

	"tudor/internal/models"
	"tudor/internal/store"
)

// CreateNote adds a note to a task. A nil timestamp means now.
func (s *Service) CreateNote(ctx context.Context, user *models.User, taskID int64, content string, timestamp *time.Time) (*models.Note, error) {
	var note *models.Note
	err := s.run(ctx, func() error {
		task, err := s.editableTask(ctx, taskID, user)
		if err != nil {
			return err
		}
		if strings.TrimSpace(content) == "" {
			return models.InvalidArgumentf("note content is required")
		}
		note = s.p.CreateNote(content)
		note.SetTimestamp(nowOr(timestamp))
		task.AddNote(note)
		return s.p.Add(note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes returns a task's notes, oldest first.
func (s *Service) ListNotes(ctx context.Context, user *models.User, taskID int64) ([]*models.Note, error) {
	var notes []*models.Note
	err := s.run(ctx, func() error {
		if _, err := s.viewableTask(ctx, taskID, user); err != nil {
			return err
		}
		var err error
		notes, err = s.p.GetNotes(ctx, store.NoteQuery{TaskID: taskID, OrderBy: models.SortAsc})
		return err
	})
	return notes, err
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, user *models.User, noteID int64) error {
	return s.run(ctx, func() error {
		if err := requireID("note id", noteID); err != nil {
			return err
		}
		note, err := s.p.GetNote(ctx, noteID)
		if err != nil {
			return err
		}
		if note == nil {
			return models.NotFoundf("note %d", noteID)
		}
		if err := s.requireOwnerAccess(note.Task(), user); err != nil {
			return err
		}
		return s.p.Delete(note)
	})
}

// AttachmentInput describes an uploaded file. Only metadata is stored; the
// path is relative to wherever the caller keeps file contents.
type AttachmentInput struct {
	Path        string
	Filename    string
	Description string
	Timestamp   *time.Time
}

// CreateAttachment records an attachment on a task.
func (s *Service) CreateAttachment(ctx context.Context, user *models.User, taskID int64, in AttachmentInput) (*models.Attachment, error) {
	var att *models.Attachment
	err := s.run(ctx, func() error {
		task, err := s.editableTask(ctx, taskID, user)
		if err != nil {
			return err
		}
		path := strings.TrimSpace(in.Path)
		if path == "" {
			return models.InvalidArgumentf("attachment path is required")
		}
		att = s.p.CreateAttachment(path, strings.TrimSpace(in.Filename), in.Description)
		att.SetTimestamp(nowOr(in.Timestamp))
		task.AddAttachment(att)
		return s.p.Add(att)
	})
	if err != nil {
		return nil, err
	}
	return att, nil
}

// DeleteAttachment removes an attachment record.
func (s *Service) DeleteAttachment(ctx context.Context, user *models.User, attachmentID int64) error {
	return s.run(ctx, func() error {
		if err := requireID("attachment id", attachmentID); err != nil {
			return err
		}
		att, err := s.p.GetAttachment(ctx, attachmentID)
		if err != nil {
			return err
		}
		if att == nil {
			return models.NotFoundf("attachment %d", attachmentID)
		}
		if err := s.requireOwnerAccess(att.Task(), user); err != nil {
			return err
		}
		return s.p.Delete(att)
	})
}

// requireOwnerAccess checks edit rights on the owning task. Orphans are
// admin-only.
func (s *Service) requireOwnerAccess(task *models.Task, user *models.User) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if task == nil {
		return requireAdmin(user)
	}
	if !IsAuthorizedOrAdmin(task, user) {
		return models.Forbiddenf("not authorized for task %d", task.ID())
	}
	return nil
}

func nowOr(t *time.Time) *time.Time {
	if t != nil {
		return t
	}
	now := time.Now().UTC()
	return &now
}
