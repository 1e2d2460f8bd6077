package store

import (
	"context"
	"fmt"
	"log/slog"

	"tudor/internal/models"
)

// Persistence is a unit of work over a Backend. It keeps an identity map so
// that each stored record is represented by exactly one domain object, tracks
// changes made to committed objects, and applies staged additions, deletions
// and changes atomically on Commit.
//
// A Persistence is a single-writer structure; callers sharing one across
// goroutines must serialize access.
type Persistence struct {
	backend Backend
	logger  *slog.Logger

	cache map[Ref]models.Entity
	refs  map[models.Entity]Ref

	added      []models.Entity
	addedSet   map[models.Entity]struct{}
	deleted    []models.Entity
	deletedSet map[models.Entity]struct{}

	dirty     []models.Entity
	snapshots map[models.Entity]models.State
}

// New returns an empty unit of work over backend.
func New(backend Backend, logger *slog.Logger) *Persistence {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persistence{
		backend:    backend,
		logger:     logger.With("component", "persistence"),
		cache:      make(map[Ref]models.Entity),
		refs:       make(map[models.Entity]Ref),
		addedSet:   make(map[models.Entity]struct{}),
		deletedSet: make(map[models.Entity]struct{}),
		snapshots:  make(map[models.Entity]models.State),
	}
}

// Backend returns the underlying storage.
func (p *Persistence) Backend() Backend { return p.backend }

func (p *Persistence) CreateTask(summary, description string) *models.Task {
	return models.NewTask(summary, description)
}

func (p *Persistence) CreateTag(value, description string) *models.Tag {
	return models.NewTag(value, description)
}

func (p *Persistence) CreateNote(content string) *models.Note {
	return models.NewNote(content)
}

func (p *Persistence) CreateAttachment(path, filename, description string) *models.Attachment {
	return models.NewAttachment(path, filename, description)
}

func (p *Persistence) CreateUser(email, hashedPassword string, isAdmin bool) *models.User {
	return models.NewUser(email, hashedPassword, isAdmin)
}

func (p *Persistence) CreateOption(key, value string) *models.Option {
	return models.NewOption(key, value)
}

// Add stages e for insertion on the next commit. Adding an object that is
// already staged or committed does nothing.
func (p *Persistence) Add(e models.Entity) error {
	if isNilEntity(e) {
		return models.InvalidArgumentf("cannot add a nil object")
	}
	if p.isDeleting(e) {
		return models.Conflictf("cannot add %s: it is staged for deletion", e.Kind())
	}
	if p.isCommitted(e) || p.isAdding(e) {
		return nil
	}
	p.stageAdd(e)
	return nil
}

// Delete stages a committed object for removal on the next commit.
func (p *Persistence) Delete(e models.Entity) error {
	if isNilEntity(e) {
		return models.InvalidArgumentf("cannot delete a nil object")
	}
	if p.isDeleting(e) {
		return nil
	}
	if p.isAdding(e) {
		return models.Conflictf("cannot delete %s: it has not been committed", e.Kind())
	}
	if !p.isCommitted(e) {
		return models.InvalidArgumentf("cannot delete %s: it is not persisted", e.Kind())
	}
	p.deleted = append(p.deleted, e)
	p.deletedSet[e] = struct{}{}
	return nil
}

// HasChanges reports whether a commit would write anything.
func (p *Persistence) HasChanges() bool {
	return len(p.added) > 0 || len(p.deleted) > 0 || len(p.dirty) > 0
}

func (p *Persistence) stageAdd(e models.Entity) {
	p.added = append(p.added, e)
	p.addedSet[e] = struct{}{}
}

func (p *Persistence) isCommitted(e models.Entity) bool {
	_, ok := p.refs[e]
	return ok
}

func (p *Persistence) isAdding(e models.Entity) bool {
	_, ok := p.addedSet[e]
	return ok
}

func (p *Persistence) isDeleting(e models.Entity) bool {
	_, ok := p.deletedSet[e]
	return ok
}

func (p *Persistence) isDirty(e models.Entity) bool {
	_, ok := p.snapshots[e]
	return ok
}

func (p *Persistence) register(ref Ref, e models.Entity) {
	p.cache[ref] = e
	p.refs[e] = ref
	e.SetTracker(changeTracker{p: p})
}

func (p *Persistence) forget(e models.Entity) {
	if ref, ok := p.refs[e]; ok {
		delete(p.cache, ref)
		delete(p.refs, e)
	}
	e.SetTracker(nil)
}

// markDirty snapshots a committed object the first time it changes after a
// commit or rollback.
func (p *Persistence) markDirty(e models.Entity) {
	if !p.isCommitted(e) || p.isDirty(e) {
		return
	}
	p.snapshots[e] = e.Snapshot()
	p.dirty = append(p.dirty, e)
}

type changeTracker struct {
	p *Persistence
}

func (t changeTracker) Changing(e models.Entity, _ models.Field, _ models.Op, _ any) {
	t.p.markDirty(e)
}

func (t changeTracker) Changed(e models.Entity, field models.Field, op models.Op, _ any) {
	t.p.logger.Debug("changed", "ref", t.p.refs[e].String(), "field", field, "op", op.String())
}

// get returns the committed object for ref, loading it and every object it
// is connected to when it is not in the identity map yet.
func (p *Persistence) get(ctx context.Context, ref Ref) (models.Entity, error) {
	if e, ok := p.cache[ref]; ok {
		return e, nil
	}
	return p.materialize(ctx, ref)
}

func (p *Persistence) materialize(ctx context.Context, root Ref) (models.Entity, error) {
	rec, err := p.backend.Load(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}
	if rec == nil {
		return nil, nil
	}

	pending := map[Ref]Record{root: rec}
	order := []Ref{root}
	for i := 0; i < len(order); i++ {
		for _, next := range relatedRefs(pending[order[i]]) {
			if _, ok := p.cache[next]; ok {
				continue
			}
			if _, ok := pending[next]; ok {
				continue
			}
			r, err := p.backend.Load(ctx, next)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", next, err)
			}
			if r == nil {
				p.logger.Warn("dangling reference", "from", order[i].String(), "to", next.String())
				continue
			}
			pending[next] = r
			order = append(order, next)
		}
	}

	created := make(map[Ref]models.Entity, len(order))
	for _, ref := range order {
		created[ref] = newShell(ref.Kind)
	}
	resolve := func(ref Ref) models.Entity {
		if e, ok := created[ref]; ok {
			return e
		}
		return p.cache[ref]
	}
	for _, ref := range order {
		created[ref].Restore(stateOf(pending[ref], resolve))
	}
	for _, ref := range order {
		p.register(ref, created[ref])
	}
	return created[root], nil
}

func newShell(kind models.Kind) models.Entity {
	switch kind {
	case models.KindTask:
		return new(models.Task)
	case models.KindTag:
		return new(models.Tag)
	case models.KindNote:
		return new(models.Note)
	case models.KindAttachment:
		return new(models.Attachment)
	case models.KindUser:
		return new(models.User)
	default:
		return new(models.Option)
	}
}

func relatedRefs(rec Record) []Ref {
	var out []Ref
	add := func(kind models.Kind, ids ...int64) {
		for _, id := range ids {
			out = append(out, Ref{Kind: kind, ID: id})
		}
	}
	switch r := rec.(type) {
	case *TaskRecord:
		if r.ParentID != nil {
			add(models.KindTask, *r.ParentID)
		}
		add(models.KindTask, r.ChildIDs...)
		add(models.KindTag, r.TagIDs...)
		add(models.KindUser, r.UserIDs...)
		add(models.KindTask, r.DependeeIDs...)
		add(models.KindTask, r.DependantIDs...)
		add(models.KindTask, r.PrioritizeBeforeIDs...)
		add(models.KindTask, r.PrioritizeAfterIDs...)
		add(models.KindNote, r.NoteIDs...)
		add(models.KindAttachment, r.AttachmentIDs...)
	case *TagRecord:
		add(models.KindTask, r.TaskIDs...)
	case *UserRecord:
		add(models.KindTask, r.TaskIDs...)
	case *NoteRecord:
		if r.TaskID != nil {
			add(models.KindTask, *r.TaskID)
		}
	case *AttachmentRecord:
		if r.TaskID != nil {
			add(models.KindTask, *r.TaskID)
		}
	}
	return out
}

func stateOf(rec Record, resolve func(Ref) models.Entity) models.State {
	task := func(id *int64) *models.Task {
		if id == nil {
			return nil
		}
		t, _ := resolve(Ref{Kind: models.KindTask, ID: *id}).(*models.Task)
		return t
	}
	switch r := rec.(type) {
	case *TaskRecord:
		return models.TaskState{
			ID:                      r.ID,
			Summary:                 r.Summary,
			Description:             r.Description,
			IsDone:                  r.IsDone,
			IsDeleted:               r.IsDeleted,
			IsPublic:                r.IsPublic,
			Deadline:                r.Deadline,
			ExpectedDurationMinutes: r.ExpectedDurationMinutes,
			ExpectedCost:            r.ExpectedCost,
			OrderNum:                r.OrderNum,
			Parent:                  task(r.ParentID),
			Children:                resolveAll[*models.Task](models.KindTask, r.ChildIDs, resolve),
			Tags:                    resolveAll[*models.Tag](models.KindTag, r.TagIDs, resolve),
			Users:                   resolveAll[*models.User](models.KindUser, r.UserIDs, resolve),
			Dependees:               resolveAll[*models.Task](models.KindTask, r.DependeeIDs, resolve),
			Dependants:              resolveAll[*models.Task](models.KindTask, r.DependantIDs, resolve),
			PrioritizeBefore:        resolveAll[*models.Task](models.KindTask, r.PrioritizeBeforeIDs, resolve),
			PrioritizeAfter:         resolveAll[*models.Task](models.KindTask, r.PrioritizeAfterIDs, resolve),
			Notes:                   resolveAll[*models.Note](models.KindNote, r.NoteIDs, resolve),
			Attachments:             resolveAll[*models.Attachment](models.KindAttachment, r.AttachmentIDs, resolve),
		}
	case *TagRecord:
		return models.TagState{
			ID:          r.ID,
			Value:       r.Value,
			Description: r.Description,
			Tasks:       resolveAll[*models.Task](models.KindTask, r.TaskIDs, resolve),
		}
	case *NoteRecord:
		return models.NoteState{ID: r.ID, Content: r.Content, Timestamp: r.Timestamp, Task: task(r.TaskID)}
	case *AttachmentRecord:
		return models.AttachmentState{
			ID:          r.ID,
			Path:        r.Path,
			Filename:    r.Filename,
			Description: r.Description,
			Timestamp:   r.Timestamp,
			Task:        task(r.TaskID),
		}
	case *UserRecord:
		return models.UserState{
			ID:             r.ID,
			Email:          r.Email,
			HashedPassword: r.HashedPassword,
			IsAdmin:        r.IsAdmin,
			Tasks:          resolveAll[*models.Task](models.KindTask, r.TaskIDs, resolve),
		}
	case *OptionRecord:
		return models.OptionState{Key: r.Key, Value: r.Value}
	}
	return nil
}

func resolveAll[T models.Entity](kind models.Kind, ids []int64, resolve func(Ref) models.Entity) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := resolve(Ref{Kind: kind, ID: id}).(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func isNilEntity(e models.Entity) bool {
	switch v := e.(type) {
	case nil:
		return true
	case *models.Task:
		return v == nil
	case *models.Tag:
		return v == nil
	case *models.Note:
		return v == nil
	case *models.Attachment:
		return v == nil
	case *models.User:
		return v == nil
	case *models.Option:
		return v == nil
	}
	return false
}
