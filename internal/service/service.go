// Package service implements tudor's logic layer: authorization, task
// lifecycle, sibling ordering and the admin import/export paths. Every
// exported operation runs as one unit of work over a store.Persistence.
package service

import (
	"context"
	"log/slog"

	"tudor/internal/models"
	"tudor/internal/store"
)

// Service is not safe for concurrent use; callers serialize access the same
// way they would for the Persistence it wraps.
type Service struct {
	p       *store.Persistence
	logger  *slog.Logger
	perPage int
}

// Option configures a Service.
type Option func(*Service)

// WithTasksPerPage sets the default page size for ListTasks.
func WithTasksPerPage(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.perPage = n
		}
	}
}

// New returns a Service over p.
func New(p *store.Persistence, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		p:       p,
		logger:  logger.With("component", "service"),
		perPage: models.DefaultPerPage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Persistence exposes the underlying unit of work.
func (s *Service) Persistence() *store.Persistence { return s.p }

// run executes fn and commits what it changed. Any failure rolls the unit of
// work back so the next operation starts clean.
func (s *Service) run(ctx context.Context, fn func() error) error {
	if err := fn(); err != nil {
		s.p.Rollback()
		return err
	}
	if err := s.p.Commit(ctx); err != nil {
		s.p.Rollback()
		return err
	}
	return nil
}

// Operator returns an unsaved admin identity for local maintenance commands
// such as import into an empty database.
func Operator() *models.User {
	return models.NewUser("operator", "", true)
}

// ErrAnonymous is returned when an operation needs an acting user and got
// none. It is an invalid-argument error.
var ErrAnonymous = models.InvalidArgumentf("current user is required")

func requireUser(user *models.User) error {
	if user == nil {
		return ErrAnonymous
	}
	return nil
}

func requireAdmin(user *models.User) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if !user.IsAdmin() {
		return models.Forbiddenf("admin privileges required")
	}
	return nil
}

func requireID(name string, id int64) error {
	if id <= 0 {
		return models.InvalidArgumentf("%s is required", name)
	}
	return nil
}
