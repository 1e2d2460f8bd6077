package store

import (
	"context"
	"strconv"
	"strings"

	"tudor/internal/models"
)

// idAllocator hands out ids for one commit: the largest stored id of the
// kind plus one, counting ids already claimed in the same batch.
type idAllocator struct {
	backend Backend
	next    map[models.Kind]int64
}

func newIDAllocator(backend Backend) *idAllocator {
	return &idAllocator{backend: backend, next: make(map[models.Kind]int64)}
}

// claim records an explicit id so generated ids never collide with it.
func (a *idAllocator) claim(ctx context.Context, kind models.Kind, id int64) error {
	if err := a.load(ctx, kind); err != nil {
		return err
	}
	if id >= a.next[kind] {
		a.next[kind] = id + 1
	}
	return nil
}

func (a *idAllocator) allocate(ctx context.Context, kind models.Kind) (int64, error) {
	if err := a.load(ctx, kind); err != nil {
		return 0, err
	}
	id := a.next[kind]
	a.next[kind] = id + 1
	return id, nil
}

func (a *idAllocator) load(ctx context.Context, kind models.Kind) error {
	if _, ok := a.next[kind]; ok {
		return nil
	}
	maxID, err := a.backend.MaxID(ctx, kind)
	if err != nil {
		return err
	}
	a.next[kind] = maxID + 1
	return nil
}

// ParseID parses a positive entity id.
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, models.InvalidArgumentf("id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, models.InvalidArgumentf("invalid id: %s", raw)
	}
	return id, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
