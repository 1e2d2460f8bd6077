package store

import (
	"context"

	"tudor/internal/models"
)

// Backend is the durable side of the persistence layer. Implementations only
// ever see committed state; staging and change tracking live in Persistence.
type Backend interface {
	// Load returns the record for ref with both sides of every relationship
	// filled in, or nil when it does not exist.
	Load(ctx context.Context, ref Ref) (Record, error)
	// MaxID returns the largest id stored for kind, or 0.
	MaxID(ctx context.Context, kind models.Kind) (int64, error)

	QueryTasks(ctx context.Context, q TaskQuery) ([]int64, error)
	QueryTags(ctx context.Context, q TagQuery) ([]int64, error)
	QueryNotes(ctx context.Context, q NoteQuery) ([]int64, error)
	QueryAttachments(ctx context.Context, q AttachmentQuery) ([]int64, error)
	QueryUsers(ctx context.Context, q UserQuery) ([]int64, error)
	QueryOptions(ctx context.Context, q OptionQuery) ([]string, error)

	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx applies one commit. Insert writes scalar fields only; Update rewrites
// scalars and the owning side of every relationship, so inserts of
// mutually-referencing records can happen in any order.
type Tx interface {
	Insert(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, ref Ref) error
	Commit() error
	Rollback() error
}
