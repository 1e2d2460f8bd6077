package service

import (
	"context"
	"errors"
	"testing"

	"tudor/internal/models"
	"tudor/internal/store"
)

type fixture struct {
	svc   *Service
	admin *models.User
	alice *models.User
	bob   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	svc := New(store.New(store.NewMemoryBackend(), nil), nil)

	admin, err := svc.CreateUser(ctx, nil, "admin@example.com", "admin-password", false)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	alice, err := svc.CreateUser(ctx, admin, "alice@example.com", "alice-password", false)
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := svc.CreateUser(ctx, admin, "bob@example.com", "bob-password", false)
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	return &fixture{svc: svc, admin: admin, alice: alice, bob: bob}
}

func (f *fixture) task(t *testing.T, user *models.User, summary string, parent *models.Task) *models.Task {
	t.Helper()
	in := TaskInput{Summary: summary}
	if parent != nil {
		in.ParentID = parent.ID()
	}
	task, err := f.svc.CreateTask(context.Background(), user, in)
	if err != nil {
		t.Fatalf("create task %q: %v", summary, err)
	}
	return task
}

func (f *fixture) setOrder(t *testing.T, task *models.Task, orderNum int64) {
	t.Helper()
	_, err := f.svc.UpdateTask(context.Background(), f.admin, task.ID(), []models.Change{
		{Field: models.FieldOrderNum, Op: models.OpSet, Value: orderNum},
	})
	if err != nil {
		t.Fatalf("set order_num: %v", err)
	}
}

func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func orderNums(tasks ...*models.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, task := range tasks {
		out[i] = task.OrderNum()
	}
	return out
}

func ids(tasks []*models.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID()
	}
	return out
}
