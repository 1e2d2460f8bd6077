package server

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/shopspring/decimal"

	"tudor/internal/api"
	"tudor/internal/models"
	"tudor/internal/service"
)

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req api.TaskCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	in := service.TaskInput{
		Summary:                 req.Summary,
		Description:             req.Description,
		ParentID:                req.ParentID,
		IsPublic:                req.IsPublic,
		IsDone:                  req.IsDone,
		Deadline:                req.Deadline,
		ExpectedDurationMinutes: req.ExpectedDurationMinutes,
		Tags:                    req.Tags,
	}
	if req.ExpectedCost != nil {
		in.ExpectedCost = decimal.NewNullDecimal(*req.ExpectedCost)
	}

	task, err := s.svc.CreateTask(r.Context(), user, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	pager, err := s.svc.ListTasks(r.Context(), principalFromContext(r.Context()), opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskPageResponse{
		Tasks:    toTaskResponses(pager.Items),
		PageNum:  pager.PageNum,
		PerPage:  pager.PerPage,
		Total:    pager.Total,
		NumPages: pager.NumPages,
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	task, err := s.svc.GetTask(r.Context(), principalFromContext(r.Context()), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.TaskUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if len(req) == 0 {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("no fields to update"), ErrCodeMissingRequired))
		return
	}

	task, err := s.svc.UpdateTask(r.Context(), user, id, changesFromRequest(req))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// changesFromRequest turns a field map into set changes, ordered by field
// name so updates replay deterministically.
func changesFromRequest(req api.TaskUpdateRequest) []models.Change {
	fields := make([]string, 0, len(req))
	for field := range req {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	changes := make([]models.Change, 0, len(fields))
	for _, field := range fields {
		changes = append(changes, models.Change{Field: models.Field(field), Op: models.OpSet, Value: req[field]})
	}
	return changes
}

// taskAction adapts a service call that returns the updated task.
func (s *Server) taskAction(fn func(r *http.Request, user *models.User, id int64) (*models.Task, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		id, ok := s.pathIDOrBadRequest(w, r, "id")
		if !ok {
			return
		}
		task, err := fn(r, user, id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, toTaskResponse(task))
	}
}

func (s *Server) handleDone(w http.ResponseWriter, r *http.Request) {
	s.taskAction(func(r *http.Request, user *models.User, id int64) (*models.Task, error) {
		return s.svc.SetDone(r.Context(), user, id, true)
	})(w, r)
}

func (s *Server) handleUndone(w http.ResponseWriter, r *http.Request) {
	s.taskAction(func(r *http.Request, user *models.User, id int64) (*models.Task, error) {
		return s.svc.SetDone(r.Context(), user, id, false)
	})(w, r)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	s.taskAction(func(r *http.Request, user *models.User, id int64) (*models.Task, error) {
		return s.svc.SoftDelete(r.Context(), user, id)
	})(w, r)
}

func (s *Server) handleUndelete(w http.ResponseWriter, r *http.Request) {
	s.taskAction(func(r *http.Request, user *models.User, id int64) (*models.Task, error) {
		return s.svc.Undelete(r.Context(), user, id)
	})(w, r)
}

func (s *Server) handlePurgeTask(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.PurgeTask(r.Context(), user, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePurgeDeleted(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	count, err := s.svc.PurgeDeletedTasks(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CountResponse{Count: count})
}

func (s *Server) handleSubtree(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	vis, err := parseVisibility(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	tasks, err := s.svc.Subtree(r.Context(), principalFromContext(r.Context()), id, vis)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

func (s *Server) handleDeadlines(w http.ResponseWriter, r *http.Request) {
	vis, err := parseVisibility(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	tasks, err := s.svc.Deadlines(r.Context(), principalFromContext(r.Context()), vis)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}
