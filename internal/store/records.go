package store

import (
	"time"

	"github.com/shopspring/decimal"

	"tudor/internal/models"
)

// Ref identifies one stored record. Options are keyed by Key, all other
// kinds by ID.
type Ref struct {
	Kind models.Kind
	ID   int64
	Key  string
}

func (r Ref) String() string {
	if r.Kind == models.KindOption {
		return string(r.Kind) + ":" + r.Key
	}
	return string(r.Kind) + ":" + formatID(r.ID)
}

// Record is the storage-side representation of an entity. Backends persist
// the owning side of each relationship and fill in the inverse side when
// loading.
type Record interface {
	Ref() Ref
}

// TaskRecord stores a task. ParentID, TagIDs, UserIDs, DependeeIDs and
// PrioritizeBeforeIDs are persisted; the remaining id lists are derived.
type TaskRecord struct {
	ID                      int64
	Summary                 string
	Description             string
	IsDone                  bool
	IsDeleted               bool
	IsPublic                bool
	Deadline                *time.Time
	ExpectedDurationMinutes *int
	ExpectedCost            decimal.NullDecimal
	OrderNum                int64
	ParentID                *int64

	TagIDs              []int64
	UserIDs             []int64
	DependeeIDs         []int64
	PrioritizeBeforeIDs []int64

	ChildIDs           []int64
	DependantIDs       []int64
	PrioritizeAfterIDs []int64
	NoteIDs            []int64
	AttachmentIDs      []int64
}

func (r *TaskRecord) Ref() Ref { return Ref{Kind: models.KindTask, ID: r.ID} }

type TagRecord struct {
	ID          int64
	Value       string
	Description string
	TaskIDs     []int64
}

func (r *TagRecord) Ref() Ref { return Ref{Kind: models.KindTag, ID: r.ID} }

type NoteRecord struct {
	ID        int64
	Content   string
	Timestamp *time.Time
	TaskID    *int64
}

func (r *NoteRecord) Ref() Ref { return Ref{Kind: models.KindNote, ID: r.ID} }

type AttachmentRecord struct {
	ID          int64
	Path        string
	Filename    string
	Description string
	Timestamp   *time.Time
	TaskID      *int64
}

func (r *AttachmentRecord) Ref() Ref { return Ref{Kind: models.KindAttachment, ID: r.ID} }

type UserRecord struct {
	ID             int64
	Email          string
	HashedPassword string
	IsAdmin        bool
	TaskIDs        []int64
}

func (r *UserRecord) Ref() Ref { return Ref{Kind: models.KindUser, ID: r.ID} }

type OptionRecord struct {
	Key   string
	Value string
}

func (r *OptionRecord) Ref() Ref { return Ref{Kind: models.KindOption, Key: r.Key} }

// recordOf converts a domain object to its storage record. Relationships to
// objects without an id are skipped; commit assigns ids before building
// records, so that only happens for links that are about to be severed.
func recordOf(e models.Entity) Record {
	switch v := e.(type) {
	case *models.Task:
		rec := &TaskRecord{
			ID:                      v.ID(),
			Summary:                 v.Summary(),
			Description:             v.Description(),
			IsDone:                  v.IsDone(),
			IsDeleted:               v.IsDeleted(),
			IsPublic:                v.IsPublic(),
			Deadline:                v.Deadline(),
			ExpectedDurationMinutes: v.ExpectedDurationMinutes(),
			ExpectedCost:            v.ExpectedCost(),
			OrderNum:                v.OrderNum(),
			ParentID:                optionalID(v.ParentID()),
			TagIDs:                  idsOf(v.Tags()),
			UserIDs:                 idsOf(v.Users()),
			DependeeIDs:             idsOf(v.Dependees()),
			PrioritizeBeforeIDs:     idsOf(v.PrioritizeBefore()),
			ChildIDs:                idsOf(v.Children()),
			DependantIDs:            idsOf(v.Dependants()),
			PrioritizeAfterIDs:      idsOf(v.PrioritizeAfter()),
			NoteIDs:                 idsOf(v.Notes()),
			AttachmentIDs:           idsOf(v.Attachments()),
		}
		return rec
	case *models.Tag:
		return &TagRecord{ID: v.ID(), Value: v.Value(), Description: v.Description(), TaskIDs: idsOf(v.Tasks())}
	case *models.Note:
		return &NoteRecord{ID: v.ID(), Content: v.Content(), Timestamp: v.Timestamp(), TaskID: optionalID(v.TaskID())}
	case *models.Attachment:
		return &AttachmentRecord{
			ID:          v.ID(),
			Path:        v.Path(),
			Filename:    v.Filename(),
			Description: v.Description(),
			Timestamp:   v.Timestamp(),
			TaskID:      optionalID(v.TaskID()),
		}
	case *models.User:
		return &UserRecord{
			ID:             v.ID(),
			Email:          v.Email(),
			HashedPassword: v.HashedPassword(),
			IsAdmin:        v.IsAdmin(),
			TaskIDs:        idsOf(v.Tasks()),
		}
	case *models.Option:
		return &OptionRecord{Key: v.Key(), Value: v.Value()}
	}
	return nil
}

// refOf returns the identity an entity has or will have once committed.
func refOf(e models.Entity) Ref {
	switch v := e.(type) {
	case *models.Task:
		return Ref{Kind: models.KindTask, ID: v.ID()}
	case *models.Tag:
		return Ref{Kind: models.KindTag, ID: v.ID()}
	case *models.Note:
		return Ref{Kind: models.KindNote, ID: v.ID()}
	case *models.Attachment:
		return Ref{Kind: models.KindAttachment, ID: v.ID()}
	case *models.User:
		return Ref{Kind: models.KindUser, ID: v.ID()}
	case *models.Option:
		return Ref{Kind: models.KindOption, Key: v.Key()}
	}
	return Ref{}
}

// setID assigns a generated id. Options carry their own key and are skipped.
func setID(e models.Entity, id int64) {
	switch v := e.(type) {
	case *models.Task:
		v.SetID(id)
	case *models.Tag:
		v.SetID(id)
	case *models.Note:
		v.SetID(id)
	case *models.Attachment:
		v.SetID(id)
	case *models.User:
		v.SetID(id)
	}
}

type identified interface {
	ID() int64
}

func idsOf[T identified](items []T) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		if id := item.ID(); id != 0 {
			out = append(out, id)
		}
	}
	return out
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
