package service

import (
	"context"
	"testing"

	"tudor/internal/models"
	"tudor/internal/store"
)

func TestFirstUserBecomesAdmin(t *testing.T) {
	ctx := context.Background()
	svc := New(store.New(store.NewMemoryBackend(), nil), nil)

	first, err := svc.CreateUser(ctx, nil, "Root@Example.com ", "first-password", false)
	if err != nil {
		t.Fatalf("create first user: %v", err)
	}
	if !first.IsAdmin() || first.Email() != "root@example.com" {
		t.Fatalf("expected normalized admin, got %q admin=%v", first.Email(), first.IsAdmin())
	}

	_, err = svc.CreateUser(ctx, nil, "second@example.com", "second-password", false)
	requireKind(t, err, models.ErrInvalidArgument)

	second, err := svc.CreateUser(ctx, first, "second@example.com", "second-password", false)
	if err != nil {
		t.Fatalf("create second user: %v", err)
	}
	if second.IsAdmin() {
		t.Fatal("only the first user is promoted")
	}
	_, err = svc.CreateUser(ctx, second, "third@example.com", "third-password", false)
	requireKind(t, err, models.ErrForbidden)
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
		kind     error
	}{
		{"bad email", "not-an-email", "long-enough", models.ErrInvalidArgument},
		{"display name", "Carol <carol@example.com>", "long-enough", models.ErrInvalidArgument},
		{"short password", "carol@example.com", "short", models.ErrInvalidArgument},
		{"duplicate email", "ALICE@example.com", "long-enough", models.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateUser(ctx, f.admin, tc.email, tc.password, false)
			requireKind(t, err, tc.kind)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Authenticate(ctx, "Alice@Example.com", "alice-password")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user != f.alice {
		t.Fatal("expected the cached alice instance")
	}

	for _, creds := range [][2]string{
		{"alice@example.com", "wrong-password"},
		{"nobody@example.com", "alice-password"},
		{"", ""},
	} {
		_, err := f.svc.Authenticate(ctx, creds[0], creds[1])
		requireKind(t, err, models.ErrForbidden)
	}
}

func TestSetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requireKind(t, f.svc.SetPassword(ctx, f.bob, f.alice.ID(), "hijacked-password"), models.ErrForbidden)
	requireKind(t, f.svc.SetPassword(ctx, f.alice, f.alice.ID(), "short"), models.ErrInvalidArgument)
	if err := f.svc.SetPassword(ctx, f.alice, f.alice.ID(), "rotated-password"); err != nil {
		t.Fatalf("set own password: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "alice@example.com", "rotated-password"); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if err := f.svc.SetPassword(ctx, f.admin, f.bob.ID(), "reset-by-admin"); err != nil {
		t.Fatalf("admin reset: %v", err)
	}
}

func TestAuthorizeAndDeauthorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.task(t, f.alice, "shared", nil)

	requireKind(t, f.svc.DeauthorizeUser(ctx, f.alice, task.ID(), f.alice.ID()), models.ErrConflict)
	requireKind(t, f.svc.AuthorizeUser(ctx, f.bob, task.ID(), f.bob.ID()), models.ErrForbidden)

	for i := 0; i < 2; i++ {
		if err := f.svc.AuthorizeUser(ctx, f.alice, task.ID(), f.bob.ID()); err != nil {
			t.Fatalf("authorize: %v", err)
		}
	}
	if len(task.Users()) != 2 {
		t.Fatalf("expected 2 users, got %d", len(task.Users()))
	}
	if _, err := f.svc.SetDone(ctx, f.bob, task.ID(), true); err != nil {
		t.Fatalf("authorized user edit: %v", err)
	}

	if err := f.svc.DeauthorizeUser(ctx, f.bob, task.ID(), f.alice.ID()); err != nil {
		t.Fatalf("deauthorize: %v", err)
	}
	// Removing someone who is not authorized is a no-op.
	if err := f.svc.DeauthorizeUser(ctx, f.bob, task.ID(), f.alice.ID()); err != nil {
		t.Fatalf("repeat deauthorize: %v", err)
	}
	_, err := f.svc.SetDone(ctx, f.alice, task.ID(), false)
	requireKind(t, err, models.ErrForbidden)
	if len(f.alice.Tasks()) != 0 {
		t.Fatal("expected inverse side cleared")
	}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListUsers(ctx, f.alice)
	requireKind(t, err, models.ErrForbidden)
	users, err := f.svc.ListUsers(ctx, f.admin)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
}
