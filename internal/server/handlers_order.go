package server

import (
	"net/http"

	"tudor/internal/models"
)

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	dir, err := models.ParseMoveDirection(r.PathValue("direction"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidMove))
		return
	}
	vis, err := parseVisibility(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.svc.Move(r.Context(), user, id, dir, vis); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeTask(w, r, user, id)
}

func (s *Server) handleMoveAfter(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	target, ok := s.pathIDOrBadRequest(w, r, "target")
	if !ok {
		return
	}
	if err := s.svc.LongOrderChange(r.Context(), user, id, target); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeTask(w, r, user, id)
}

func (s *Server) handleResetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	vis, err := parseVisibility(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.svc.ResetOrderNums(r.Context(), user, vis); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeTask answers with the current state of task id.
func (s *Server) writeTask(w http.ResponseWriter, r *http.Request, user *models.User, id int64) {
	task, err := s.svc.GetTask(r.Context(), user, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTaskResponse(task))
}
