package service

import (
	"context"
	"strings"

	"tudor/internal/models"
	"tudor/internal/store"
)

// GetOption returns the value stored under key and whether it exists.
func (s *Service) GetOption(ctx context.Context, key string) (string, bool, error) {
	var opt *models.Option
	err := s.run(ctx, func() error {
		var err error
		opt, err = s.p.GetOption(ctx, strings.TrimSpace(key))
		return err
	})
	if err != nil || opt == nil {
		return "", false, err
	}
	return opt.Value(), true, nil
}

// SetOption creates or overwrites an option. Admin only.
func (s *Service) SetOption(ctx context.Context, user *models.User, key, value string) error {
	return s.run(ctx, func() error {
		if err := requireAdmin(user); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return models.InvalidArgumentf("option key is required")
		}
		opt, err := s.p.GetOption(ctx, key)
		if err != nil {
			return err
		}
		if opt != nil {
			opt.SetValue(value)
			return nil
		}
		return s.p.Add(s.p.CreateOption(key, value))
	})
}

// ListOptions returns options whose key starts with prefix, by key.
func (s *Service) ListOptions(ctx context.Context, prefix string) ([]*models.Option, error) {
	var opts []*models.Option
	err := s.run(ctx, func() error {
		var err error
		opts, err = s.p.GetOptions(ctx, store.OptionQuery{KeyPrefix: prefix})
		return err
	})
	return opts, err
}
