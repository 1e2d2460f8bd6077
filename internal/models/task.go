package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Task is a node in the task tree. All mutations go through accessor methods
// so the attached tracker observes them and inverse relationships stay in
// sync: setting a parent adds the task to the parent's children, adding a tag
// adds the task to the tag's tasks, and so on.
type Task struct {
	tracked

	id                      int64
	summary                 string
	description             string
	isDone                  bool
	isDeleted               bool
	isPublic                bool
	deadline                *time.Time
	expectedDurationMinutes *int
	expectedCost            decimal.NullDecimal
	orderNum                int64

	parent           *Task
	children         entitySet[*Task]
	tags             entitySet[*Tag]
	users            entitySet[*User]
	dependees        entitySet[*Task]
	dependants       entitySet[*Task]
	prioritizeBefore entitySet[*Task]
	prioritizeAfter  entitySet[*Task]
	notes            entitySet[*Note]
	attachments      entitySet[*Attachment]
}

// TaskState is a detached copy of a task.
type TaskState struct {
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

	Parent           *Task
	Children         []*Task
	Tags             []*Tag
	Users            []*User
	Dependees        []*Task
	Dependants       []*Task
	PrioritizeBefore []*Task
	PrioritizeAfter  []*Task
	Notes            []*Note
	Attachments      []*Attachment
}

func (TaskState) Kind() Kind { return KindTask }

// NewTask returns an unowned task with default field values.
func NewTask(summary, description string) *Task {
	return &Task{summary: summary, description: description}
}

func (t *Task) Kind() Kind { return KindTask }

func (t *Task) ID() int64 { return t.id }

// SetID assigns the identity. Ids of committed tasks are immutable; the
// persistence layer rejects commits that change them.
func (t *Task) SetID(id int64) { setField(t, &t.tracked, FieldID, &t.id, id) }

func (t *Task) Summary() string { return t.summary }

func (t *Task) SetSummary(v string) { setField(t, &t.tracked, FieldSummary, &t.summary, v) }

func (t *Task) Description() string { return t.description }

func (t *Task) SetDescription(v string) {
	setField(t, &t.tracked, FieldDescription, &t.description, v)
}

func (t *Task) IsDone() bool { return t.isDone }

func (t *Task) SetIsDone(v bool) { setField(t, &t.tracked, FieldIsDone, &t.isDone, v) }

func (t *Task) IsDeleted() bool { return t.isDeleted }

func (t *Task) SetIsDeleted(v bool) { setField(t, &t.tracked, FieldIsDeleted, &t.isDeleted, v) }

func (t *Task) IsPublic() bool { return t.isPublic }

func (t *Task) SetIsPublic(v bool) { setField(t, &t.tracked, FieldIsPublic, &t.isPublic, v) }

func (t *Task) Deadline() *time.Time { return copyTime(t.deadline) }

func (t *Task) SetDeadline(v *time.Time) {
	if timesEqual(t.deadline, v) {
		return
	}
	t.changing(t, FieldDeadline, OpSet, copyTime(t.deadline))
	t.deadline = copyTime(v)
	t.changed(t, FieldDeadline, OpSet, copyTime(v))
}

func (t *Task) ExpectedDurationMinutes() *int { return copyInt(t.expectedDurationMinutes) }

func (t *Task) SetExpectedDurationMinutes(v *int) {
	if intsEqual(t.expectedDurationMinutes, v) {
		return
	}
	t.changing(t, FieldExpectedDurationMinutes, OpSet, copyInt(t.expectedDurationMinutes))
	t.expectedDurationMinutes = copyInt(v)
	t.changed(t, FieldExpectedDurationMinutes, OpSet, copyInt(v))
}

func (t *Task) ExpectedCost() decimal.NullDecimal { return t.expectedCost }

func (t *Task) SetExpectedCost(v decimal.NullDecimal) {
	if decimalsEqual(t.expectedCost, v) {
		return
	}
	t.changing(t, FieldExpectedCost, OpSet, t.expectedCost)
	t.expectedCost = v
	t.changed(t, FieldExpectedCost, OpSet, v)
}

func (t *Task) OrderNum() int64 { return t.orderNum }

func (t *Task) SetOrderNum(v int64) { setField(t, &t.tracked, FieldOrderNum, &t.orderNum, v) }

func (t *Task) Parent() *Task { return t.parent }

// ParentID returns the parent's id, or 0 for top-level tasks and parents that
// have not been committed yet.
func (t *Task) ParentID() int64 {
	if t.parent == nil {
		return 0
	}
	return t.parent.id
}

// SetParent moves the task under p (nil makes it top-level), updating the
// children of both the old and the new parent.
func (t *Task) SetParent(p *Task) {
	if t.parent == p {
		return
	}
	old := t.parent
	t.changing(t, FieldParent, OpSet, old)
	t.parent = p
	t.changed(t, FieldParent, OpSet, p)
	if old != nil {
		old.RemoveChild(t)
	}
	if p != nil {
		p.AddChild(t)
	}
}

func (t *Task) Children() []*Task { return t.children.list() }

func (t *Task) AddChild(c *Task) {
	if c != nil && addTo(t, &t.tracked, FieldChildren, &t.children, c) {
		c.SetParent(t)
	}
}

func (t *Task) RemoveChild(c *Task) {
	if c != nil && removeFrom(t, &t.tracked, FieldChildren, &t.children, c) && c.parent == t {
		c.SetParent(nil)
	}
}

func (t *Task) Tags() []*Tag { return t.tags.list() }

func (t *Task) HasTag(g *Tag) bool { return t.tags.has(g) }

func (t *Task) AddTag(g *Tag) {
	if g != nil && addTo(t, &t.tracked, FieldTags, &t.tags, g) {
		g.AddTask(t)
	}
}

func (t *Task) RemoveTag(g *Tag) {
	if g != nil && removeFrom(t, &t.tracked, FieldTags, &t.tags, g) {
		g.RemoveTask(t)
	}
}

func (t *Task) Users() []*User { return t.users.list() }

func (t *Task) HasUser(u *User) bool { return t.users.has(u) }

func (t *Task) AddUser(u *User) {
	if u != nil && addTo(t, &t.tracked, FieldUsers, &t.users, u) {
		u.AddTask(t)
	}
}

func (t *Task) RemoveUser(u *User) {
	if u != nil && removeFrom(t, &t.tracked, FieldUsers, &t.users, u) {
		u.RemoveTask(t)
	}
}

// Dependees are the tasks this task depends on.
func (t *Task) Dependees() []*Task { return t.dependees.list() }

func (t *Task) AddDependee(d *Task) {
	if d != nil && addTo(t, &t.tracked, FieldDependees, &t.dependees, d) {
		d.AddDependant(t)
	}
}

func (t *Task) RemoveDependee(d *Task) {
	if d != nil && removeFrom(t, &t.tracked, FieldDependees, &t.dependees, d) {
		d.RemoveDependant(t)
	}
}

// Dependants are the tasks that depend on this task.
func (t *Task) Dependants() []*Task { return t.dependants.list() }

func (t *Task) AddDependant(d *Task) {
	if d != nil && addTo(t, &t.tracked, FieldDependants, &t.dependants, d) {
		d.AddDependee(t)
	}
}

func (t *Task) RemoveDependant(d *Task) {
	if d != nil && removeFrom(t, &t.tracked, FieldDependants, &t.dependants, d) {
		d.RemoveDependee(t)
	}
}

// PrioritizeBefore are the tasks this task should be done before.
func (t *Task) PrioritizeBefore() []*Task { return t.prioritizeBefore.list() }

func (t *Task) AddPrioritizeBefore(o *Task) {
	if o != nil && addTo(t, &t.tracked, FieldPrioritizeBefore, &t.prioritizeBefore, o) {
		o.AddPrioritizeAfter(t)
	}
}

func (t *Task) RemovePrioritizeBefore(o *Task) {
	if o != nil && removeFrom(t, &t.tracked, FieldPrioritizeBefore, &t.prioritizeBefore, o) {
		o.RemovePrioritizeAfter(t)
	}
}

// PrioritizeAfter are the tasks this task should be done after.
func (t *Task) PrioritizeAfter() []*Task { return t.prioritizeAfter.list() }

func (t *Task) AddPrioritizeAfter(o *Task) {
	if o != nil && addTo(t, &t.tracked, FieldPrioritizeAfter, &t.prioritizeAfter, o) {
		o.AddPrioritizeBefore(t)
	}
}

func (t *Task) RemovePrioritizeAfter(o *Task) {
	if o != nil && removeFrom(t, &t.tracked, FieldPrioritizeAfter, &t.prioritizeAfter, o) {
		o.RemovePrioritizeBefore(t)
	}
}

func (t *Task) Notes() []*Note { return t.notes.list() }

func (t *Task) AddNote(n *Note) {
	if n != nil && addTo(t, &t.tracked, FieldNotes, &t.notes, n) {
		n.SetTask(t)
	}
}

func (t *Task) RemoveNote(n *Note) {
	if n != nil && removeFrom(t, &t.tracked, FieldNotes, &t.notes, n) && n.task == t {
		n.SetTask(nil)
	}
}

func (t *Task) Attachments() []*Attachment { return t.attachments.list() }

func (t *Task) AddAttachment(a *Attachment) {
	if a != nil && addTo(t, &t.tracked, FieldAttachments, &t.attachments, a) {
		a.SetTask(t)
	}
}

func (t *Task) RemoveAttachment(a *Attachment) {
	if a != nil && removeFrom(t, &t.tracked, FieldAttachments, &t.attachments, a) && a.task == t {
		a.SetTask(nil)
	}
}

// State returns a detached copy of the task.
func (t *Task) State() TaskState {
	return TaskState{
		ID:                      t.id,
		Summary:                 t.summary,
		Description:             t.description,
		IsDone:                  t.isDone,
		IsDeleted:               t.isDeleted,
		IsPublic:                t.isPublic,
		Deadline:                copyTime(t.deadline),
		ExpectedDurationMinutes: copyInt(t.expectedDurationMinutes),
		ExpectedCost:            t.expectedCost,
		OrderNum:                t.orderNum,
		Parent:                  t.parent,
		Children:                t.children.list(),
		Tags:                    t.tags.list(),
		Users:                   t.users.list(),
		Dependees:               t.dependees.list(),
		Dependants:              t.dependants.list(),
		PrioritizeBefore:        t.prioritizeBefore.list(),
		PrioritizeAfter:         t.prioritizeAfter.list(),
		Notes:                   t.notes.list(),
		Attachments:             t.attachments.list(),
	}
}

func (t *Task) Snapshot() State { return t.State() }

func (t *Task) Restore(s State) {
	st, ok := s.(TaskState)
	if !ok {
		return
	}
	t.id = st.ID
	t.summary = st.Summary
	t.description = st.Description
	t.isDone = st.IsDone
	t.isDeleted = st.IsDeleted
	t.isPublic = st.IsPublic
	t.deadline = copyTime(st.Deadline)
	t.expectedDurationMinutes = copyInt(st.ExpectedDurationMinutes)
	t.expectedCost = st.ExpectedCost
	t.orderNum = st.OrderNum
	t.parent = st.Parent
	t.children.reset(st.Children)
	t.tags.reset(st.Tags)
	t.users.reset(st.Users)
	t.dependees.reset(st.Dependees)
	t.dependants.reset(st.Dependants)
	t.prioritizeBefore.reset(st.PrioritizeBefore)
	t.prioritizeAfter.reset(st.PrioritizeAfter)
	t.notes.reset(st.Notes)
	t.attachments.reset(st.Attachments)
}

func (t *Task) Related() []Entity {
	var out []Entity
	if t.parent != nil {
		out = append(out, t.parent)
	}
	out = appendEntities(out, t.children.items)
	out = appendEntities(out, t.tags.items)
	out = appendEntities(out, t.users.items)
	out = appendEntities(out, t.dependees.items)
	out = appendEntities(out, t.dependants.items)
	out = appendEntities(out, t.prioritizeBefore.items)
	out = appendEntities(out, t.prioritizeAfter.items)
	out = appendEntities(out, t.notes.items)
	out = appendEntities(out, t.attachments.items)
	return out
}

func (t *Task) Unlink() {
	t.SetParent(nil)
	for _, c := range t.children.list() {
		t.RemoveChild(c)
	}
	for _, g := range t.tags.list() {
		t.RemoveTag(g)
	}
	for _, u := range t.users.list() {
		t.RemoveUser(u)
	}
	for _, d := range t.dependees.list() {
		t.RemoveDependee(d)
	}
	for _, d := range t.dependants.list() {
		t.RemoveDependant(d)
	}
	for _, o := range t.prioritizeBefore.list() {
		t.RemovePrioritizeBefore(o)
	}
	for _, o := range t.prioritizeAfter.list() {
		t.RemovePrioritizeAfter(o)
	}
	for _, n := range t.notes.list() {
		t.RemoveNote(n)
	}
	for _, a := range t.attachments.list() {
		t.RemoveAttachment(a)
	}
}

func (t *Task) Detach(drop func(Entity) bool) {
	if t.parent != nil && drop(t.parent) {
		t.parent = nil
	}
	keepTask := func(o *Task) bool { return !drop(o) }
	t.children.retain(keepTask)
	t.dependees.retain(keepTask)
	t.dependants.retain(keepTask)
	t.prioritizeBefore.retain(keepTask)
	t.prioritizeAfter.retain(keepTask)
	t.tags.retain(func(g *Tag) bool { return !drop(g) })
	t.users.retain(func(u *User) bool { return !drop(u) })
	t.notes.retain(func(n *Note) bool { return !drop(n) })
	t.attachments.retain(func(a *Attachment) bool { return !drop(a) })
}

func (t *Task) apply(field Field, op Op, value any) error {
	switch field {
	case FieldChildren, FieldDependees, FieldDependants, FieldPrioritizeBefore, FieldPrioritizeAfter:
		return t.applyTaskCollection(field, op, value)
	case FieldTags:
		if err := requireCollection(KindTask, field, op); err != nil {
			return err
		}
		g, ok := value.(*Tag)
		if !ok || g == nil {
			return InvalidArgumentf("%s expects a tag", field)
		}
		if op == OpAdd {
			t.AddTag(g)
		} else {
			t.RemoveTag(g)
		}
		return nil
	case FieldUsers:
		if err := requireCollection(KindTask, field, op); err != nil {
			return err
		}
		u, ok := value.(*User)
		if !ok || u == nil {
			return InvalidArgumentf("%s expects a user", field)
		}
		if op == OpAdd {
			t.AddUser(u)
		} else {
			t.RemoveUser(u)
		}
		return nil
	case FieldNotes:
		if err := requireCollection(KindTask, field, op); err != nil {
			return err
		}
		n, ok := value.(*Note)
		if !ok || n == nil {
			return InvalidArgumentf("%s expects a note", field)
		}
		if op == OpAdd {
			t.AddNote(n)
		} else {
			t.RemoveNote(n)
		}
		return nil
	case FieldAttachments:
		if err := requireCollection(KindTask, field, op); err != nil {
			return err
		}
		a, ok := value.(*Attachment)
		if !ok || a == nil {
			return InvalidArgumentf("%s expects an attachment", field)
		}
		if op == OpAdd {
			t.AddAttachment(a)
		} else {
			t.RemoveAttachment(a)
		}
		return nil
	}

	if err := requireSet(KindTask, field, op); err != nil {
		if isTaskScalar(field) {
			return err
		}
		return unknownField(KindTask, field)
	}

	switch field {
	case FieldID:
		v, err := asInt64(field, value)
		if err != nil {
			return err
		}
		t.SetID(v)
	case FieldSummary:
		v, err := asString(field, value)
		if err != nil {
			return err
		}
		t.SetSummary(v)
	case FieldDescription:
		v, err := asString(field, value)
		if err != nil {
			return err
		}
		t.SetDescription(v)
	case FieldIsDone:
		v, err := asBool(field, value)
		if err != nil {
			return err
		}
		t.SetIsDone(v)
	case FieldIsDeleted:
		v, err := asBool(field, value)
		if err != nil {
			return err
		}
		t.SetIsDeleted(v)
	case FieldIsPublic:
		v, err := asBool(field, value)
		if err != nil {
			return err
		}
		t.SetIsPublic(v)
	case FieldDeadline:
		v, err := asOptionalTime(field, value)
		if err != nil {
			return err
		}
		t.SetDeadline(v)
	case FieldExpectedDurationMinutes:
		v, err := asOptionalInt(field, value)
		if err != nil {
			return err
		}
		t.SetExpectedDurationMinutes(v)
	case FieldExpectedCost:
		v, err := asNullDecimal(field, value)
		if err != nil {
			return err
		}
		t.SetExpectedCost(v)
	case FieldOrderNum:
		v, err := asInt64(field, value)
		if err != nil {
			return err
		}
		t.SetOrderNum(v)
	case FieldParent:
		switch p := value.(type) {
		case nil:
			t.SetParent(nil)
		case *Task:
			t.SetParent(p)
		default:
			return InvalidArgumentf("%s expects a task, got %T", field, value)
		}
	default:
		return unknownField(KindTask, field)
	}
	return nil
}

func (t *Task) applyTaskCollection(field Field, op Op, value any) error {
	if err := requireCollection(KindTask, field, op); err != nil {
		return err
	}
	o, ok := value.(*Task)
	if !ok || o == nil {
		return InvalidArgumentf("%s expects a task", field)
	}
	add := op == OpAdd
	switch field {
	case FieldChildren:
		if add {
			t.AddChild(o)
		} else {
			t.RemoveChild(o)
		}
	case FieldDependees:
		if add {
			t.AddDependee(o)
		} else {
			t.RemoveDependee(o)
		}
	case FieldDependants:
		if add {
			t.AddDependant(o)
		} else {
			t.RemoveDependant(o)
		}
	case FieldPrioritizeBefore:
		if add {
			t.AddPrioritizeBefore(o)
		} else {
			t.RemovePrioritizeBefore(o)
		}
	case FieldPrioritizeAfter:
		if add {
			t.AddPrioritizeAfter(o)
		} else {
			t.RemovePrioritizeAfter(o)
		}
	}
	return nil
}

func isTaskScalar(field Field) bool {
	switch field {
	case FieldID, FieldSummary, FieldDescription, FieldIsDone, FieldIsDeleted, FieldIsPublic,
		FieldDeadline, FieldExpectedDurationMinutes, FieldExpectedCost, FieldOrderNum, FieldParent:
		return true
	}
	return false
}
