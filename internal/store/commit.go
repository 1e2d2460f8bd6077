package store

import (
	"context"
	"fmt"

	"tudor/internal/models"
)

// commitUndo holds what a failed commit must put back so the unit of work is
// left exactly as it was before the attempt.
type commitUndo struct {
	dirtyBefore int
	addedBefore int
	assigned    []models.Entity
	severed     map[models.Entity]models.State
	severOrder  []models.Entity
}

// Commit writes staged additions, staged deletions and every change made to
// committed objects since the last commit or rollback. Objects reachable from
// staged or changed objects that are neither committed nor staged are staged
// automatically. Either everything is written or nothing is.
func (p *Persistence) Commit(ctx context.Context) (err error) {
	if !p.HasChanges() {
		return nil
	}
	undo := &commitUndo{
		dirtyBefore: len(p.dirty),
		addedBefore: len(p.added),
		severed:     make(map[models.Entity]models.State),
	}
	defer func() {
		if err != nil {
			p.undoCommit(undo)
			p.logger.Debug("commit failed", "error", err)
		}
	}()

	p.cascade()
	if err := p.validateIdentities(ctx); err != nil {
		return err
	}
	if err := p.checkUnique(ctx); err != nil {
		return err
	}
	if err := p.assignIDs(ctx, undo); err != nil {
		return err
	}
	p.severDeleted(undo)
	if err := p.write(ctx); err != nil {
		return err
	}

	p.logger.Debug("commit", "added", len(p.added), "deleted", len(p.deleted), "updated", len(p.dirty))
	for _, e := range p.deleted {
		p.forget(e)
	}
	for _, e := range p.added {
		p.register(refOf(e), e)
	}
	p.reset()
	return nil
}

// Rollback discards staged additions and deletions and restores every
// changed committed object to its last committed state. Links from
// uncommitted objects to committed ones are dropped so both sides of each
// relationship agree again.
func (p *Persistence) Rollback() {
	committed := func(o models.Entity) bool { return p.isCommitted(o) }

	var strays []models.Entity
	for _, e := range p.dirty {
		for _, o := range e.Related() {
			if !p.isCommitted(o) && !p.isAdding(o) {
				strays = append(strays, o)
			}
		}
	}
	for _, e := range p.dirty {
		e.Restore(p.snapshots[e])
	}
	for _, e := range p.added {
		e.Detach(committed)
		setID(e, 0)
	}
	for _, e := range strays {
		e.Detach(committed)
	}

	p.logger.Debug("rollback", "added", len(p.added), "deleted", len(p.deleted), "restored", len(p.dirty))
	p.reset()
}

func (p *Persistence) reset() {
	p.added = nil
	p.addedSet = make(map[models.Entity]struct{})
	p.deleted = nil
	p.deletedSet = make(map[models.Entity]struct{})
	p.dirty = nil
	p.snapshots = make(map[models.Entity]models.State)
}

func (p *Persistence) cascade() {
	queue := make([]models.Entity, 0, len(p.added)+len(p.dirty))
	queue = append(queue, p.added...)
	queue = append(queue, p.dirty...)
	for i := 0; i < len(queue); i++ {
		for _, o := range queue[i].Related() {
			if p.isCommitted(o) || p.isAdding(o) {
				continue
			}
			p.stageAdd(o)
			queue = append(queue, o)
		}
	}
}

func (p *Persistence) validateIdentities(ctx context.Context) error {
	for _, e := range p.dirty {
		if was, now := p.refs[e], refOf(e); was != now {
			return models.InvalidArgumentf("cannot change identity of committed %s to %s", was, now)
		}
	}

	claimed := make(map[Ref]struct{})
	for _, e := range p.added {
		ref := refOf(e)
		if ref.Kind == models.KindOption {
			if ref.Key == "" {
				return models.InvalidArgumentf("option key is required")
			}
		} else if ref.ID < 0 {
			return models.InvalidArgumentf("invalid %s id %d", ref.Kind, ref.ID)
		} else if ref.ID == 0 {
			continue
		}
		if _, ok := claimed[ref]; ok {
			return models.Conflictf("duplicate %s in commit", ref)
		}
		claimed[ref] = struct{}{}
		if _, ok := p.cache[ref]; ok {
			return models.Conflictf("%s already exists", ref)
		}
		existing, err := p.backend.Load(ctx, ref)
		if err != nil {
			return fmt.Errorf("check %s: %w", ref, err)
		}
		if existing != nil {
			return models.Conflictf("%s already exists", ref)
		}
	}
	return nil
}

// checkUnique enforces unique tag values and user emails across the state
// the commit would produce.
func (p *Persistence) checkUnique(ctx context.Context) error {
	tags := make(map[string]*models.Tag)
	users := make(map[string]*models.User)
	candidates := make([]models.Entity, 0, len(p.added)+len(p.dirty))
	candidates = append(candidates, p.added...)
	candidates = append(candidates, p.dirty...)

	for _, e := range candidates {
		if p.isDeleting(e) {
			continue
		}
		switch v := e.(type) {
		case *models.Tag:
			if other, ok := tags[v.Value()]; ok && other != v {
				return models.Conflictf("duplicate tag value %q", v.Value())
			}
			tags[v.Value()] = v
			ids, err := p.backend.QueryTags(ctx, TagQuery{Value: v.Value()})
			if err != nil {
				return err
			}
			if p.heldElsewhere(models.KindTag, ids, v, func(o models.Entity) bool {
				return o.(*models.Tag).Value() == v.Value()
			}) {
				return models.Conflictf("tag value %q already exists", v.Value())
			}
		case *models.User:
			if other, ok := users[v.Email()]; ok && other != v {
				return models.Conflictf("duplicate user email %q", v.Email())
			}
			users[v.Email()] = v
			ids, err := p.backend.QueryUsers(ctx, UserQuery{Email: v.Email()})
			if err != nil {
				return err
			}
			if p.heldElsewhere(models.KindUser, ids, v, func(o models.Entity) bool {
				return o.(*models.User).Email() == v.Email()
			}) {
				return models.Conflictf("user email %q already exists", v.Email())
			}
		}
	}
	return nil
}

// heldElsewhere reports whether any stored record in ids still holds the
// unique value after this commit, other than e itself.
func (p *Persistence) heldElsewhere(kind models.Kind, ids []int64, e models.Entity, stillHolds func(models.Entity) bool) bool {
	for _, id := range ids {
		holder, ok := p.cache[Ref{Kind: kind, ID: id}]
		if !ok {
			return true
		}
		if holder == e || p.isDeleting(holder) {
			continue
		}
		if stillHolds(holder) {
			return true
		}
	}
	return false
}

func (p *Persistence) assignIDs(ctx context.Context, undo *commitUndo) error {
	alloc := newIDAllocator(p.backend)
	for _, e := range p.added {
		if ref := refOf(e); ref.Kind != models.KindOption && ref.ID != 0 {
			if err := alloc.claim(ctx, ref.Kind, ref.ID); err != nil {
				return err
			}
		}
	}
	for _, e := range p.added {
		ref := refOf(e)
		if ref.Kind == models.KindOption || ref.ID != 0 {
			continue
		}
		id, err := alloc.allocate(ctx, ref.Kind)
		if err != nil {
			return err
		}
		setID(e, id)
		undo.assigned = append(undo.assigned, e)
	}
	return nil
}

// severDeleted removes every relationship of the objects being deleted
// through the tracked mutators, so the other side is written too.
func (p *Persistence) severDeleted(undo *commitUndo) {
	remember := func(e models.Entity) {
		if _, ok := undo.severed[e]; ok {
			return
		}
		undo.severed[e] = e.Snapshot()
		undo.severOrder = append(undo.severOrder, e)
	}
	for _, d := range p.deleted {
		remember(d)
		for _, o := range d.Related() {
			remember(o)
		}
	}
	for _, d := range p.deleted {
		d.Unlink()
	}
}

func (p *Persistence) write(ctx context.Context) error {
	tx, err := p.backend.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := p.writeTx(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// writeTx deletes first so freed unique values and ids can be reused, then
// parks the unique columns of changed tags and users so renames and swaps
// never collide mid-transaction.
func (p *Persistence) writeTx(ctx context.Context, tx Tx) error {
	for _, e := range p.deleted {
		if err := tx.Delete(ctx, p.refs[e]); err != nil {
			return fmt.Errorf("delete %s: %w", p.refs[e], err)
		}
	}
	var updates []models.Entity
	for _, e := range p.dirty {
		if !p.isDeleting(e) {
			updates = append(updates, e)
		}
	}
	for _, e := range updates {
		if rec, ok := parked(e); ok {
			if err := tx.Update(ctx, rec); err != nil {
				return fmt.Errorf("park %s: %w", refOf(e), err)
			}
		}
	}
	for _, e := range p.added {
		if err := tx.Insert(ctx, recordOf(e)); err != nil {
			return fmt.Errorf("insert %s: %w", refOf(e), err)
		}
	}
	for _, e := range p.added {
		if err := tx.Update(ctx, recordOf(e)); err != nil {
			return fmt.Errorf("update %s: %w", refOf(e), err)
		}
	}
	for _, e := range updates {
		if err := tx.Update(ctx, recordOf(e)); err != nil {
			return fmt.Errorf("update %s: %w", refOf(e), err)
		}
	}
	return nil
}

// parked returns e's record with its unique column replaced by a value no
// real tag or user can hold.
func parked(e models.Entity) (Record, bool) {
	switch rec := recordOf(e).(type) {
	case *TagRecord:
		rec.Value = "\x00parked:" + rec.Ref().String()
		return rec, true
	case *UserRecord:
		rec.Email = "\x00parked:" + rec.Ref().String()
		return rec, true
	}
	return nil, false
}

func (p *Persistence) undoCommit(undo *commitUndo) {
	for _, e := range undo.severOrder {
		e.Restore(undo.severed[e])
	}
	for _, e := range undo.assigned {
		setID(e, 0)
	}
	for _, e := range p.dirty[undo.dirtyBefore:] {
		delete(p.snapshots, e)
	}
	p.dirty = p.dirty[:undo.dirtyBefore]
	for _, e := range p.added[undo.addedBefore:] {
		delete(p.addedSet, e)
	}
	p.added = p.added[:undo.addedBefore]
}
