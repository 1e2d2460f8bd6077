package server

import (
	"context"
	"fmt"
	"net/http"

	"tudor/internal/api"
	"tudor/internal/models"
	"tudor/internal/service"
)

func (s *Server) handleAddTaskTag(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.TagRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	tag, err := s.svc.AddTagToTask(r.Context(), user, id, req.Value)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTagResponse(tag))
}

func (s *Server) handleRemoveTaskTag(w http.ResponseWriter, r *http.Request) {
	s.unlinkHandler("tag_id", s.svc.RemoveTagFromTask)(w, r)
}

func (s *Server) handleAuthorizeUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.UserRefRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("user_id is required"), ErrCodeMissingRequired))
		return
	}
	if err := s.svc.AuthorizeUser(r.Context(), user, id, req.UserID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeTask(w, r, user, id)
}

func (s *Server) handleDeauthorizeUser(w http.ResponseWriter, r *http.Request) {
	s.unlinkHandler("user_id", s.svc.DeauthorizeUser)(w, r)
}

func (s *Server) handleAddDependee(w http.ResponseWriter, r *http.Request) {
	s.linkHandler(s.svc.AddDependee)(w, r)
}

func (s *Server) handleRemoveDependee(w http.ResponseWriter, r *http.Request) {
	s.unlinkHandler("other", s.svc.RemoveDependee)(w, r)
}

func (s *Server) handleAddPrioritizeBefore(w http.ResponseWriter, r *http.Request) {
	s.linkHandler(s.svc.AddPrioritizeBefore)(w, r)
}

func (s *Server) handleRemovePrioritizeBefore(w http.ResponseWriter, r *http.Request) {
	s.unlinkHandler("other", s.svc.RemovePrioritizeBefore)(w, r)
}

type relationFunc func(ctx context.Context, user *models.User, taskID, otherID int64) error

// linkHandler serves POST /v1/tasks/{id}/<relation> with a task_id body.
func (s *Server) linkHandler(link relationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		id, ok := s.pathIDOrBadRequest(w, r, "id")
		if !ok {
			return
		}
		var req api.TaskRefRequest
		if !s.decodeJSONReq(w, r, &req) {
			return
		}
		if req.TaskID <= 0 {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("task_id is required"), ErrCodeMissingRequired))
			return
		}
		if err := link(r.Context(), user, id, req.TaskID); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeTask(w, r, user, id)
	}
}

// unlinkHandler serves DELETE /v1/tasks/{id}/<relation>/{param}.
func (s *Server) unlinkHandler(param string, unlink relationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		id, ok := s.pathIDOrBadRequest(w, r, "id")
		if !ok {
			return
		}
		otherID, ok := s.pathIDOrBadRequest(w, r, param)
		if !ok {
			return
		}
		if err := unlink(r.Context(), user, id, otherID); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	notes, err := s.svc.ListNotes(r.Context(), principalFromContext(r.Context()), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]api.NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNoteResponse(n))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.NoteCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	note, err := s.svc.CreateNote(r.Context(), user, id, req.Content, req.Timestamp)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toNoteResponse(note))
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.DeleteNote(r.Context(), user, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateAttachment(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.AttachmentCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	att, err := s.svc.CreateAttachment(r.Context(), user, id, service.AttachmentInput{
		Path:        req.Path,
		Filename:    req.Filename,
		Description: req.Description,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toAttachmentResponse(att))
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.DeleteAttachment(r.Context(), user, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
