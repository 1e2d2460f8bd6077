package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"tudor/internal/api"
	"tudor/internal/models"
	"tudor/internal/service"
)

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.svc.ListTags(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]api.TagResponse, 0, len(tags))
	for _, g := range tags {
		out = append(out, toTagResponse(g))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
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
	tag, err := s.svc.UpdateTag(r.Context(), user, id, req.Value, req.Description)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTagResponse(tag))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	users, err := s.svc.ListUsers(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]api.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleCreateUser accepts anonymous callers so the first account can be
// bootstrapped; the service rejects them once any user exists.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req api.UserCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	user, err := s.svc.CreateUser(r.Context(), principalFromContext(r.Context()), req.Email, req.Password, req.IsAdmin)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.PasswordRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if err := s.svc.SetPassword(r.Context(), user, id, req.Password); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.svc.ListOptions(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]api.OptionResponse, 0, len(opts))
	for _, o := range opts {
		out = append(out, api.OptionResponse{Key: o.Key(), Value: o.Value()})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetOption(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	var req api.OptionRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if err := s.svc.SetOption(r.Context(), user, key, req.Value); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.OptionResponse{Key: strings.TrimSpace(key), Value: req.Value})
}

func parseFormat(r *http.Request) (models.ExportFormat, error) {
	format, err := models.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidFormat)
	}
	return format, nil
}

func contentTypeFor(format models.ExportFormat) string {
	if format == models.FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	format, err := parseFormat(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	data, err := s.svc.Export(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// Encode fully before writing so a failure still yields a JSON error.
	var buf bytes.Buffer
	if err := service.EncodeExport(&buf, format, data); err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError,
			makeAPIError(http.StatusInternalServerError, "internal", ErrCodeExportFailed, err))
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tudor-export.%s"`, format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log().Error("write export", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	format, err := parseFormat(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, importMaxBody)
	data, err := service.DecodeExport(r.Body, format)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	res, err := s.svc.Import(r.Context(), user, data)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ImportResponse{
		Tasks:       res.Tasks,
		Tags:        res.Tags,
		Notes:       res.Notes,
		Attachments: res.Attachments,
		Users:       res.Users,
		Options:     res.Options,
	})
}
