package api

import "time"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthResponse is the response from GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	SchemaVersion int    `json:"schema_version,omitempty"`
}

type TagRequest struct {
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

type TagResponse struct {
	ID          int64  `json:"id"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// UserCreateRequest defines the payload for POST /v1/users.
type UserCreateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

type UserResponse struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// UserRefRequest names a user to authorize on a task.
type UserRefRequest struct {
	UserID int64 `json:"user_id"`
}

// TaskRefRequest names the other task of a dependency or prioritization.
type TaskRefRequest struct {
	TaskID int64 `json:"task_id"`
}

type NoteCreateRequest struct {
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type NoteResponse struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp"`
	TaskID    *int64     `json:"task_id"`
}

type AttachmentCreateRequest struct {
	Path        string     `json:"path"`
	Filename    string     `json:"filename,omitempty"`
	Description string     `json:"description,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

type AttachmentResponse struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Filename    string     `json:"filename"`
	Description string     `json:"description"`
	Timestamp   *time.Time `json:"timestamp"`
	TaskID      *int64     `json:"task_id"`
}

// CountResponse reports how many rows an operation touched.
type CountResponse struct {
	Count int `json:"count"`
}

// ImportResponse is the response from POST /v1/import.
type ImportResponse struct {
	Tasks       int `json:"tasks"`
	Tags        int `json:"tags"`
	Notes       int `json:"notes"`
	Attachments int `json:"attachments"`
	Users       int `json:"users"`
	Options     int `json:"options"`
}

// PasswordRequest defines the payload for PUT /v1/users/{id}/password.
type PasswordRequest struct {
	Password string `json:"password"`
}

type OptionRequest struct {
	Value string `json:"value"`
}

type OptionResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
