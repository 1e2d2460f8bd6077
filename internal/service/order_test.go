package service

import (
	"context"
	"slices"
	"testing"

	"tudor/internal/models"
	"tudor/internal/store"
)

func TestCreateTaskPlacesNewTaskOnTop(t *testing.T) {
	f := newFixture(t)
	t1 := f.task(t, f.alice, "one", nil)
	t2 := f.task(t, f.alice, "two", nil)
	t3 := f.task(t, f.alice, "three", nil)
	child := f.task(t, f.alice, "child", t1)

	if got := orderNums(t1, t2, t3, child); !slices.Equal(got, []int64{0, 2, 4, 0}) {
		t.Fatalf("unexpected order numbers %v", got)
	}
}

func TestMoveUpRenumbersCollidingSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.task(t, f.alice, "one", nil)
	t2 := f.task(t, f.alice, "two", nil)
	t3 := f.task(t, f.alice, "three", nil)
	f.setOrder(t, t1, 5)
	f.setOrder(t, t2, 5)
	f.setOrder(t, t3, 3)

	if err := f.svc.MoveUp(ctx, f.alice, t3.ID(), Visibility{}); err != nil {
		t.Fatalf("move up: %v", err)
	}
	if got := orderNums(t1, t3, t2); !slices.Equal(got, []int64{6, 4, 2}) {
		t.Fatalf("expected 1:6 3:4 2:2, got %v", got)
	}
}

func TestMoveUpSkipsHiddenSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.task(t, f.alice, "one", nil)
	t2 := f.task(t, f.alice, "two", nil)
	t3 := f.task(t, f.alice, "three", nil)
	if _, err := f.svc.SetDone(ctx, f.alice, t2.ID(), true); err != nil {
		t.Fatalf("set done: %v", err)
	}

	if err := f.svc.MoveUp(ctx, f.alice, t1.ID(), Visibility{}); err != nil {
		t.Fatalf("move up: %v", err)
	}
	if got := orderNums(t1, t2, t3); !slices.Equal(got, []int64{4, 2, 0}) {
		t.Fatalf("unexpected order numbers %v", got)
	}

	// With done tasks shown the neighbour is the done task.
	if err := f.svc.MoveDown(ctx, f.alice, t1.ID(), Visibility{ShowDone: true}); err != nil {
		t.Fatalf("move down: %v", err)
	}
	if got := orderNums(t1, t2, t3); !slices.Equal(got, []int64{2, 4, 0}) {
		t.Fatalf("unexpected order numbers %v", got)
	}
}

func TestMoveAtEdgeIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bottom := f.task(t, f.alice, "bottom", nil)
	top := f.task(t, f.alice, "top", nil)

	if err := f.svc.MoveDown(ctx, f.alice, bottom.ID(), Visibility{}); err != nil {
		t.Fatalf("move down: %v", err)
	}
	if err := f.svc.MoveUp(ctx, f.alice, top.ID(), Visibility{}); err != nil {
		t.Fatalf("move up: %v", err)
	}
	if got := orderNums(bottom, top); !slices.Equal(got, []int64{0, 2}) {
		t.Fatalf("unexpected order numbers %v", got)
	}
}

func TestMoveToTopAndBottomAreIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.task(t, f.alice, "one", nil)
	t2 := f.task(t, f.alice, "two", nil)
	t3 := f.task(t, f.alice, "three", nil)

	for i := 0; i < 2; i++ {
		if err := f.svc.Move(ctx, f.alice, t1.ID(), models.MoveTop, Visibility{}); err != nil {
			t.Fatalf("move top: %v", err)
		}
		if got := orderNums(t1, t2, t3); !slices.Equal(got, []int64{5, 2, 4}) {
			t.Fatalf("round %d: unexpected order numbers %v", i, got)
		}
	}
	for i := 0; i < 2; i++ {
		if err := f.svc.Move(ctx, f.alice, t1.ID(), models.MoveBottom, Visibility{}); err != nil {
			t.Fatalf("move bottom: %v", err)
		}
		if got := orderNums(t1, t2, t3); !slices.Equal(got, []int64{0, 2, 4}) {
			t.Fatalf("round %d: unexpected order numbers %v", i, got)
		}
	}
}

func TestMoveRejectsUnknownDirection(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.alice, "one", nil)
	err := f.svc.Move(context.Background(), f.alice, task.ID(), models.MoveDirection("sideways"), Visibility{})
	requireKind(t, err, models.ErrInvalidArgument)
}

func TestMoveRequiresAuthorization(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.alice, "private", nil)
	err := f.svc.MoveUp(context.Background(), f.bob, task.ID(), Visibility{})
	requireKind(t, err, models.ErrForbidden)
}

func TestLongOrderChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.task(t, f.alice, "one", nil)
	t2 := f.task(t, f.alice, "two", nil)
	t3 := f.task(t, f.alice, "three", nil)
	t4 := f.task(t, f.alice, "four", nil)

	if err := f.svc.LongOrderChange(ctx, f.alice, t4.ID(), t2.ID()); err != nil {
		t.Fatalf("long order change: %v", err)
	}
	if got := orderNums(t3, t2, t4, t1); !slices.Equal(got, []int64{8, 6, 4, 2}) {
		t.Fatalf("unexpected order numbers %v", got)
	}

	// Moving onto itself changes nothing.
	if err := f.svc.LongOrderChange(ctx, f.alice, t4.ID(), t4.ID()); err != nil {
		t.Fatalf("self move: %v", err)
	}
	if got := orderNums(t3, t2, t4, t1); !slices.Equal(got, []int64{8, 6, 4, 2}) {
		t.Fatalf("unexpected order numbers after self move %v", got)
	}
}

func TestLongOrderChangeRequiresSameParent(t *testing.T) {
	f := newFixture(t)
	parent := f.task(t, f.alice, "parent", nil)
	child := f.task(t, f.alice, "child", parent)
	other := f.task(t, f.alice, "other", nil)

	err := f.svc.LongOrderChange(context.Background(), f.alice, child.ID(), other.ID())
	requireKind(t, err, models.ErrConflict)
}

// hierarchy builds:
//
//	r2
//	r1
//	  c2
//	  c1
//	    g1
func hierarchy(t *testing.T, f *fixture) (r1, r2, c1, c2, g1 *models.Task) {
	r1 = f.task(t, f.alice, "r1", nil)
	r2 = f.task(t, f.alice, "r2", nil)
	c1 = f.task(t, f.alice, "c1", r1)
	c2 = f.task(t, f.alice, "c2", r1)
	g1 = f.task(t, f.alice, "g1", c1)
	return r1, r2, c1, c2, g1
}

func TestSortByHierarchy(t *testing.T) {
	f := newFixture(t)
	r1, r2, c1, c2, g1 := hierarchy(t, f)

	all, err := f.svc.Persistence().GetTasks(context.Background(), store.TaskQuery{})
	if err != nil {
		t.Fatalf("get tasks: %v", err)
	}

	if got, want := ids(SortByHierarchy(all, nil)), ids([]*models.Task{r2, r1, c2, c1, g1}); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got, want := ids(SortByHierarchy(all, r1)), ids([]*models.Task{r1, c2, c1, g1}); !slices.Equal(got, want) {
		t.Fatalf("expected subtree %v, got %v", want, got)
	}
	// c1's parent is absent, so c1 starts its own tree.
	partial := []*models.Task{g1, c1, r2}
	if got, want := ids(SortByHierarchy(partial, nil)), ids([]*models.Task{r2, c1, g1}); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResetOrderNums(t *testing.T) {
	f := newFixture(t)
	r1, r2, c1, c2, g1 := hierarchy(t, f)
	other := f.task(t, f.bob, "bob's", nil)

	if err := f.svc.ResetOrderNums(context.Background(), f.alice, Visibility{}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := orderNums(r2, r1, c2, c1, g1); !slices.Equal(got, []int64{10, 8, 6, 4, 2}) {
		t.Fatalf("unexpected order numbers %v", got)
	}
	if other.OrderNum() != 4 {
		t.Fatalf("expected other user's task untouched, got %d", other.OrderNum())
	}
}

func TestSubtreeHonoursVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1, _, c1, c2, g1 := hierarchy(t, f)
	if _, err := f.svc.SetDone(ctx, f.alice, g1.ID(), true); err != nil {
		t.Fatalf("set done: %v", err)
	}

	got, err := f.svc.Subtree(ctx, f.alice, r1.ID(), Visibility{})
	if err != nil {
		t.Fatalf("subtree: %v", err)
	}
	if want := ids([]*models.Task{r1, c2, c1}); !slices.Equal(ids(got), want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}

	got, err = f.svc.Subtree(ctx, f.alice, r1.ID(), Visibility{ShowDone: true})
	if err != nil {
		t.Fatalf("subtree: %v", err)
	}
	if want := ids([]*models.Task{r1, c2, c1, g1}); !slices.Equal(ids(got), want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}

	_, err = f.svc.Subtree(ctx, f.bob, r1.ID(), Visibility{})
	requireKind(t, err, models.ErrForbidden)
}

func TestSubtreeStopsOnParentCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1, _, c1, c2, g1 := hierarchy(t, f)

	// Close the loop r1 -> c1 -> g1 -> r1 underneath the service.
	p := f.svc.Persistence()
	root, err := p.GetTask(ctx, r1.ID())
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	leaf, err := p.GetTask(ctx, g1.ID())
	if err != nil {
		t.Fatalf("get leaf: %v", err)
	}
	root.SetParent(leaf)

	got, err := f.svc.Subtree(ctx, f.alice, r1.ID(), Visibility{})
	if err != nil {
		t.Fatalf("subtree: %v", err)
	}
	if want := ids([]*models.Task{r1, c2, c1, g1}); !slices.Equal(ids(got), want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}
}
