package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /health", s.handleHealth)

	// Tasks collection.
	mux.HandleFunc("POST /v1/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /v1/tasks", s.handleListTasks)
	mux.HandleFunc("POST /v1/tasks/reset-order", s.handleResetOrder)
	mux.HandleFunc("POST /v1/tasks/purge-deleted", s.handlePurgeDeleted)

	// Single task.
	mux.HandleFunc("GET /v1/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("PATCH /v1/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /v1/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("GET /v1/tasks/{id}/subtree", s.handleSubtree)
	mux.HandleFunc("POST /v1/tasks/{id}/done", s.handleDone)
	mux.HandleFunc("POST /v1/tasks/{id}/undone", s.handleUndone)
	mux.HandleFunc("POST /v1/tasks/{id}/undelete", s.handleUndelete)
	mux.HandleFunc("POST /v1/tasks/{id}/purge", s.handlePurgeTask)

	// Ordering.
	mux.HandleFunc("POST /v1/tasks/{id}/move/{direction}", s.handleMove)
	mux.HandleFunc("POST /v1/tasks/{id}/move-after/{target}", s.handleMoveAfter)

	// Task relationships.
	mux.HandleFunc("POST /v1/tasks/{id}/tags", s.handleAddTaskTag)
	mux.HandleFunc("DELETE /v1/tasks/{id}/tags/{tag_id}", s.handleRemoveTaskTag)
	mux.HandleFunc("POST /v1/tasks/{id}/users", s.handleAuthorizeUser)
	mux.HandleFunc("DELETE /v1/tasks/{id}/users/{user_id}", s.handleDeauthorizeUser)
	mux.HandleFunc("POST /v1/tasks/{id}/dependees", s.handleAddDependee)
	mux.HandleFunc("DELETE /v1/tasks/{id}/dependees/{other}", s.handleRemoveDependee)
	mux.HandleFunc("POST /v1/tasks/{id}/prioritize-before", s.handleAddPrioritizeBefore)
	mux.HandleFunc("DELETE /v1/tasks/{id}/prioritize-before/{other}", s.handleRemovePrioritizeBefore)

	// Notes and attachments.
	mux.HandleFunc("GET /v1/tasks/{id}/notes", s.handleListNotes)
	mux.HandleFunc("POST /v1/tasks/{id}/notes", s.handleCreateNote)
	mux.HandleFunc("DELETE /v1/notes/{id}", s.handleDeleteNote)
	mux.HandleFunc("POST /v1/tasks/{id}/attachments", s.handleCreateAttachment)
	mux.HandleFunc("DELETE /v1/attachments/{id}", s.handleDeleteAttachment)

	// Tags, users and options.
	mux.HandleFunc("GET /v1/tags", s.handleListTags)
	mux.HandleFunc("PATCH /v1/tags/{id}", s.handleUpdateTag)
	mux.HandleFunc("GET /v1/users", s.handleListUsers)
	mux.HandleFunc("POST /v1/users", s.handleCreateUser)
	mux.HandleFunc("PUT /v1/users/{id}/password", s.handleSetPassword)
	mux.HandleFunc("GET /v1/options", s.handleListOptions)
	mux.HandleFunc("PUT /v1/options/{key}", s.handleSetOption)

	// Listings and admin.
	mux.HandleFunc("GET /v1/deadlines", s.handleDeadlines)
	mux.HandleFunc("GET /v1/export", s.handleExport)
	mux.HandleFunc("POST /v1/import", s.handleImport)

	return mux
}
