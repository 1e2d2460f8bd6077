package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"tudor/internal/models"
)

// MemoryBackend keeps committed records in maps. Transactions work on a copy
// of the state that replaces the live one on Commit.
type MemoryBackend struct {
	mu    sync.RWMutex
	state *memoryState
}

type memoryState struct {
	tasks       map[int64]*TaskRecord
	tags        map[int64]*TagRecord
	notes       map[int64]*NoteRecord
	attachments map[int64]*AttachmentRecord
	users       map[int64]*UserRecord
	options     map[string]*OptionRecord
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{state: newMemoryState()}
}

func newMemoryState() *memoryState {
	return &memoryState{
		tasks:       make(map[int64]*TaskRecord),
		tags:        make(map[int64]*TagRecord),
		notes:       make(map[int64]*NoteRecord),
		attachments: make(map[int64]*AttachmentRecord),
		users:       make(map[int64]*UserRecord),
		options:     make(map[string]*OptionRecord),
	}
}

func (s *memoryState) clone() *memoryState {
	out := newMemoryState()
	for id, r := range s.tasks {
		out.tasks[id] = ownedTask(r)
	}
	for id, r := range s.tags {
		c := *r
		out.tags[id] = &c
	}
	for id, r := range s.notes {
		c := *r
		out.notes[id] = &c
	}
	for id, r := range s.attachments {
		c := *r
		out.attachments[id] = &c
	}
	for id, r := range s.users {
		c := *r
		out.users[id] = &c
	}
	for key, r := range s.options {
		c := *r
		out.options[key] = &c
	}
	return out
}

// ownedTask copies the persisted part of a task record.
func ownedTask(r *TaskRecord) *TaskRecord {
	c := *r
	if r.ParentID != nil {
		c.ParentID = Int64(*r.ParentID)
	}
	c.TagIDs = slices.Clone(r.TagIDs)
	c.UserIDs = slices.Clone(r.UserIDs)
	c.DependeeIDs = slices.Clone(r.DependeeIDs)
	c.PrioritizeBeforeIDs = slices.Clone(r.PrioritizeBeforeIDs)
	c.ChildIDs = nil
	c.DependantIDs = nil
	c.PrioritizeAfterIDs = nil
	c.NoteIDs = nil
	c.AttachmentIDs = nil
	return &c
}

func (b *MemoryBackend) Load(_ context.Context, ref Ref) (Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.state

	switch ref.Kind {
	case models.KindTask:
		r, ok := s.tasks[ref.ID]
		if !ok {
			return nil, nil
		}
		out := ownedTask(r)
		for _, id := range sortedKeys(s.tasks) {
			other := s.tasks[id]
			if other.ParentID != nil && *other.ParentID == ref.ID {
				out.ChildIDs = append(out.ChildIDs, id)
			}
			if slices.Contains(other.DependeeIDs, ref.ID) {
				out.DependantIDs = append(out.DependantIDs, id)
			}
			if slices.Contains(other.PrioritizeBeforeIDs, ref.ID) {
				out.PrioritizeAfterIDs = append(out.PrioritizeAfterIDs, id)
			}
		}
		for _, id := range sortedKeys(s.notes) {
			if n := s.notes[id]; n.TaskID != nil && *n.TaskID == ref.ID {
				out.NoteIDs = append(out.NoteIDs, id)
			}
		}
		for _, id := range sortedKeys(s.attachments) {
			if a := s.attachments[id]; a.TaskID != nil && *a.TaskID == ref.ID {
				out.AttachmentIDs = append(out.AttachmentIDs, id)
			}
		}
		return out, nil
	case models.KindTag:
		r, ok := s.tags[ref.ID]
		if !ok {
			return nil, nil
		}
		out := *r
		out.TaskIDs = s.tasksWhere(func(t *TaskRecord) bool { return slices.Contains(t.TagIDs, ref.ID) })
		return &out, nil
	case models.KindUser:
		r, ok := s.users[ref.ID]
		if !ok {
			return nil, nil
		}
		out := *r
		out.TaskIDs = s.tasksWhere(func(t *TaskRecord) bool { return slices.Contains(t.UserIDs, ref.ID) })
		return &out, nil
	case models.KindNote:
		r, ok := s.notes[ref.ID]
		if !ok {
			return nil, nil
		}
		out := *r
		return &out, nil
	case models.KindAttachment:
		r, ok := s.attachments[ref.ID]
		if !ok {
			return nil, nil
		}
		out := *r
		return &out, nil
	case models.KindOption:
		r, ok := s.options[ref.Key]
		if !ok {
			return nil, nil
		}
		out := *r
		return &out, nil
	}
	return nil, fmt.Errorf("unknown kind %q", ref.Kind)
}

func (b *MemoryBackend) MaxID(_ context.Context, kind models.Kind) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.state

	var ids []int64
	switch kind {
	case models.KindTask:
		ids = slices.Collect(maps.Keys(s.tasks))
	case models.KindTag:
		ids = slices.Collect(maps.Keys(s.tags))
	case models.KindNote:
		ids = slices.Collect(maps.Keys(s.notes))
	case models.KindAttachment:
		ids = slices.Collect(maps.Keys(s.attachments))
	case models.KindUser:
		ids = slices.Collect(maps.Keys(s.users))
	default:
		return 0, models.InvalidArgumentf("%s has no numeric id", kind)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return slices.Max(ids), nil
}

func (b *MemoryBackend) QueryTasks(_ context.Context, q TaskQuery) ([]int64, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.state

	var matched []*TaskRecord
	for _, id := range sortedKeys(s.tasks) {
		if r := s.tasks[id]; s.taskMatches(r, q) {
			matched = append(matched, r)
		}
	}
	for _, ob := range q.OrderBy {
		slices.SortStableFunc(matched, taskComparator(ob))
	}
	matched = truncate(matched, limitOf(q.Limit))

	ids := make([]int64, 0, len(matched))
	for _, r := range matched {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *memoryState) taskMatches(r *TaskRecord, q TaskQuery) bool {
	if q.IsDone != nil && r.IsDone != *q.IsDone {
		return false
	}
	if q.IsDeleted != nil && r.IsDeleted != *q.IsDeleted {
		return false
	}
	if q.IsPublic != nil && r.IsPublic != *q.IsPublic {
		return false
	}
	if q.ParentID != nil {
		if !q.ParentID.Valid && r.ParentID != nil {
			return false
		}
		if q.ParentID.Valid && (r.ParentID == nil || *r.ParentID != q.ParentID.Int64) {
			return false
		}
	}
	if q.ParentIDIn != nil && (r.ParentID == nil || !slices.Contains(q.ParentIDIn, *r.ParentID)) {
		return false
	}
	if q.TaskIDIn != nil && !slices.Contains(q.TaskIDIn, r.ID) {
		return false
	}
	if slices.Contains(q.TaskIDNotIn, r.ID) {
		return false
	}
	if q.UsersContains != 0 && !slices.Contains(r.UserIDs, q.UsersContains) {
		return false
	}
	if q.IsPublicOrUsersContains != nil && !r.IsPublic && !slices.Contains(r.UserIDs, *q.IsPublicOrUsersContains) {
		return false
	}
	if q.TagsContains != 0 && !slices.Contains(r.TagIDs, q.TagsContains) {
		return false
	}
	if q.DeadlineIsNotNone && r.Deadline == nil {
		return false
	}
	if q.SearchTerm != "" && !strings.Contains(r.Summary, q.SearchTerm) && !strings.Contains(r.Description, q.SearchTerm) {
		return false
	}
	if q.OrderNumGreaterEq != nil && r.OrderNum < *q.OrderNumGreaterEq {
		return false
	}
	if q.OrderNumLessEq != nil && r.OrderNum > *q.OrderNumLessEq {
		return false
	}
	return true
}

func taskComparator(ob OrderBy) func(a, b *TaskRecord) int {
	sign := 1
	if ob.Direction == models.SortDesc {
		sign = -1
	}
	switch ob.Field {
	case models.OrderByOrderNum:
		return func(a, b *TaskRecord) int { return sign * cmp.Compare(a.OrderNum, b.OrderNum) }
	case models.OrderByDeadline:
		return func(a, b *TaskRecord) int {
			switch {
			case a.Deadline == nil && b.Deadline == nil:
				return 0
			case a.Deadline == nil:
				return 1
			case b.Deadline == nil:
				return -1
			}
			return sign * a.Deadline.Compare(*b.Deadline)
		}
	default:
		return func(a, b *TaskRecord) int { return sign * cmp.Compare(a.ID, b.ID) }
	}
}

func (b *MemoryBackend) QueryTags(_ context.Context, q TagQuery) ([]int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.state

	var ids []int64
	for _, id := range sortedKeys(s.tags) {
		r := s.tags[id]
		if q.Value != "" && r.Value != q.Value {
			continue
		}
		if q.TaskID != 0 {
			t, ok := s.tasks[q.TaskID]
			if !ok || !slices.Contains(t.TagIDs, id) {
				continue
			}
		}
		ids = append(ids, id)
	}
	return truncate(ids, limitOf(q.Limit)), nil
}

func (b *MemoryBackend) QueryNotes(_ context.Context, q NoteQuery) ([]int64, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.state

	var matched []*NoteRecord
	for _, id := range sortedKeys(s.notes) {
		r := s.notes[id]
		if q.TaskID != 0 && (r.TaskID == nil || *r.TaskID != q.TaskID) {
			continue
		}
		matched = append(matched, r)
	}
	if q.OrderBy != "" {
		sign := 1
		if q.OrderBy == models.SortDesc {
			sign = -1
		}
		slices.SortStableFunc(matched, func(a, b *NoteRecord) int {
			switch {
			case a.Timestamp == nil && b.Timestamp == nil:
				return 0
			case a.Timestamp == nil:
				return 1
			case b.Timestamp == nil:
				return -1
			}
			return sign * a.Timestamp.Compare(*b.Timestamp)
		})
	}
	matched = truncate(matched, limitOf(q.Limit))
	ids := make([]int64, 0, len(matched))
	for _, r := range matched {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (b *MemoryBackend) QueryAttachments(_ context.Context, q AttachmentQuery) ([]int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.state

	var ids []int64
	for _, id := range sortedKeys(s.attachments) {
		r := s.attachments[id]
		if q.TaskID != 0 && (r.TaskID == nil || *r.TaskID != q.TaskID) {
			continue
		}
		ids = append(ids, id)
	}
	return truncate(ids, limitOf(q.Limit)), nil
}

func (b *MemoryBackend) QueryUsers(_ context.Context, q UserQuery) ([]int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.state

	var ids []int64
	for _, id := range sortedKeys(s.users) {
		r := s.users[id]
		if q.Email != "" && r.Email != q.Email {
			continue
		}
		if q.IsAdmin != nil && r.IsAdmin != *q.IsAdmin {
			continue
		}
		if q.TaskID != 0 {
			t, ok := s.tasks[q.TaskID]
			if !ok || !slices.Contains(t.UserIDs, id) {
				continue
			}
		}
		ids = append(ids, id)
	}
	return truncate(ids, limitOf(q.Limit)), nil
}

func (b *MemoryBackend) QueryOptions(_ context.Context, q OptionQuery) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := slices.Sorted(maps.Keys(b.state.options))
	out := keys[:0]
	for _, key := range keys {
		if strings.HasPrefix(key, q.KeyPrefix) {
			out = append(out, key)
		}
	}
	return truncate(out, limitOf(q.Limit)), nil
}

func (b *MemoryBackend) Begin(_ context.Context) (Tx, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &memoryTx{backend: b, state: b.state.clone()}, nil
}

func (b *MemoryBackend) Close() error { return nil }

func (s *memoryState) tasksWhere(match func(*TaskRecord) bool) []int64 {
	var ids []int64
	for _, id := range sortedKeys(s.tasks) {
		if match(s.tasks[id]) {
			ids = append(ids, id)
		}
	}
	return ids
}

func sortedKeys[V any](m map[int64]V) []int64 {
	return slices.Sorted(maps.Keys(m))
}

type memoryTx struct {
	backend *MemoryBackend
	state   *memoryState
	done    bool
}

func (tx *memoryTx) Insert(_ context.Context, rec Record) error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	s := tx.state
	ref := rec.Ref()
	switch r := rec.(type) {
	case *TaskRecord:
		if _, ok := s.tasks[r.ID]; ok {
			return models.Conflictf("%s already exists", ref)
		}
		c := *r
		c.ParentID = nil
		c.TagIDs, c.UserIDs, c.DependeeIDs, c.PrioritizeBeforeIDs = nil, nil, nil, nil
		s.tasks[r.ID] = ownedTask(&c)
	case *TagRecord:
		if _, ok := s.tags[r.ID]; ok {
			return models.Conflictf("%s already exists", ref)
		}
		s.tags[r.ID] = &TagRecord{ID: r.ID, Value: r.Value, Description: r.Description}
	case *NoteRecord:
		if _, ok := s.notes[r.ID]; ok {
			return models.Conflictf("%s already exists", ref)
		}
		s.notes[r.ID] = &NoteRecord{ID: r.ID, Content: r.Content, Timestamp: r.Timestamp}
	case *AttachmentRecord:
		if _, ok := s.attachments[r.ID]; ok {
			return models.Conflictf("%s already exists", ref)
		}
		c := *r
		c.TaskID = nil
		s.attachments[r.ID] = &c
	case *UserRecord:
		if _, ok := s.users[r.ID]; ok {
			return models.Conflictf("%s already exists", ref)
		}
		s.users[r.ID] = &UserRecord{ID: r.ID, Email: r.Email, HashedPassword: r.HashedPassword, IsAdmin: r.IsAdmin}
	case *OptionRecord:
		if _, ok := s.options[r.Key]; ok {
			return models.Conflictf("%s already exists", ref)
		}
		c := *r
		s.options[r.Key] = &c
	default:
		return fmt.Errorf("unsupported record %T", rec)
	}
	return nil
}

func (tx *memoryTx) Update(_ context.Context, rec Record) error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	s := tx.state
	ref := rec.Ref()
	switch r := rec.(type) {
	case *TaskRecord:
		if _, ok := s.tasks[r.ID]; !ok {
			return models.NotFoundf("%s", ref)
		}
		s.tasks[r.ID] = ownedTask(r)
	case *TagRecord:
		if _, ok := s.tags[r.ID]; !ok {
			return models.NotFoundf("%s", ref)
		}
		s.tags[r.ID] = &TagRecord{ID: r.ID, Value: r.Value, Description: r.Description}
	case *NoteRecord:
		if _, ok := s.notes[r.ID]; !ok {
			return models.NotFoundf("%s", ref)
		}
		c := *r
		if r.TaskID != nil {
			c.TaskID = Int64(*r.TaskID)
		}
		s.notes[r.ID] = &c
	case *AttachmentRecord:
		if _, ok := s.attachments[r.ID]; !ok {
			return models.NotFoundf("%s", ref)
		}
		c := *r
		if r.TaskID != nil {
			c.TaskID = Int64(*r.TaskID)
		}
		s.attachments[r.ID] = &c
	case *UserRecord:
		if _, ok := s.users[r.ID]; !ok {
			return models.NotFoundf("%s", ref)
		}
		s.users[r.ID] = &UserRecord{ID: r.ID, Email: r.Email, HashedPassword: r.HashedPassword, IsAdmin: r.IsAdmin}
	case *OptionRecord:
		if _, ok := s.options[r.Key]; !ok {
			return models.NotFoundf("%s", ref)
		}
		c := *r
		s.options[r.Key] = &c
	default:
		return fmt.Errorf("unsupported record %T", rec)
	}
	return nil
}

// Delete removes a record and every reference to it, the way foreign keys
// with ON DELETE SET NULL / CASCADE behave in the SQLite backend.
func (tx *memoryTx) Delete(_ context.Context, ref Ref) error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	s := tx.state
	switch ref.Kind {
	case models.KindTask:
		delete(s.tasks, ref.ID)
		for _, t := range s.tasks {
			if t.ParentID != nil && *t.ParentID == ref.ID {
				t.ParentID = nil
			}
			t.DependeeIDs = removeID(t.DependeeIDs, ref.ID)
			t.PrioritizeBeforeIDs = removeID(t.PrioritizeBeforeIDs, ref.ID)
		}
		for _, n := range s.notes {
			if n.TaskID != nil && *n.TaskID == ref.ID {
				n.TaskID = nil
			}
		}
		for _, a := range s.attachments {
			if a.TaskID != nil && *a.TaskID == ref.ID {
				a.TaskID = nil
			}
		}
	case models.KindTag:
		delete(s.tags, ref.ID)
		for _, t := range s.tasks {
			t.TagIDs = removeID(t.TagIDs, ref.ID)
		}
	case models.KindUser:
		delete(s.users, ref.ID)
		for _, t := range s.tasks {
			t.UserIDs = removeID(t.UserIDs, ref.ID)
		}
	case models.KindNote:
		delete(s.notes, ref.ID)
	case models.KindAttachment:
		delete(s.attachments, ref.ID)
	case models.KindOption:
		delete(s.options, ref.Key)
	default:
		return fmt.Errorf("unknown kind %q", ref.Kind)
	}
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	if err := tx.state.check(); err != nil {
		return err
	}
	tx.done = true
	tx.backend.mu.Lock()
	tx.backend.state = tx.state
	tx.backend.mu.Unlock()
	return nil
}

func (tx *memoryTx) Rollback() error {
	tx.done = true
	return nil
}

// check enforces the constraints the SQLite schema declares.
func (s *memoryState) check() error {
	values := make(map[string]int64)
	for _, id := range sortedKeys(s.tags) {
		v := s.tags[id].Value
		if other, ok := values[v]; ok {
			return models.Conflictf("tags %d and %d share value %q", other, id, v)
		}
		values[v] = id
	}
	emails := make(map[string]int64)
	for _, id := range sortedKeys(s.users) {
		e := s.users[id].Email
		if other, ok := emails[e]; ok {
			return models.Conflictf("users %d and %d share email %q", other, id, e)
		}
		emails[e] = id
	}
	for id, t := range s.tasks {
		if t.ParentID != nil {
			if _, ok := s.tasks[*t.ParentID]; !ok {
				return fmt.Errorf("task %d references missing parent %d", id, *t.ParentID)
			}
		}
		for _, tagID := range t.TagIDs {
			if _, ok := s.tags[tagID]; !ok {
				return fmt.Errorf("task %d references missing tag %d", id, tagID)
			}
		}
		for _, userID := range t.UserIDs {
			if _, ok := s.users[userID]; !ok {
				return fmt.Errorf("task %d references missing user %d", id, userID)
			}
		}
		for _, other := range slices.Concat(t.DependeeIDs, t.PrioritizeBeforeIDs) {
			if _, ok := s.tasks[other]; !ok {
				return fmt.Errorf("task %d references missing task %d", id, other)
			}
		}
	}
	return nil
}

func removeID(ids []int64, id int64) []int64 {
	return slices.DeleteFunc(ids, func(v int64) bool { return v == id })
}
