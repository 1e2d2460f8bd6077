package models

import "time"

// Note is a timestamped comment owned by one task.
type Note struct {
	tracked

	id        int64
	content   string
	timestamp *time.Time
	task      *Task
}

// NoteState is a detached copy of a note.
type NoteState struct {
	ID        int64
	Content   string
	Timestamp *time.Time
	Task      *Task
}

func (NoteState) Kind() Kind { return KindNote }

func NewNote(content string) *Note {
	return &Note{content: content}
}

func (n *Note) Kind() Kind { return KindNote }

func (n *Note) ID() int64 { return n.id }

func (n *Note) SetID(id int64) { setField(n, &n.tracked, FieldID, &n.id, id) }

func (n *Note) Content() string { return n.content }

func (n *Note) SetContent(v string) { setField(n, &n.tracked, FieldContent, &n.content, v) }

func (n *Note) Timestamp() *time.Time { return copyTime(n.timestamp) }

func (n *Note) SetTimestamp(v *time.Time) {
	if timesEqual(n.timestamp, v) {
		return
	}
	n.changing(n, FieldTimestamp, OpSet, copyTime(n.timestamp))
	n.timestamp = copyTime(v)
	n.changed(n, FieldTimestamp, OpSet, copyTime(v))
}

func (n *Note) Task() *Task { return n.task }

// TaskID returns the owning task's id, or 0.
func (n *Note) TaskID() int64 {
	if n.task == nil {
		return 0
	}
	return n.task.id
}

func (n *Note) SetTask(t *Task) {
	if n.task == t {
		return
	}
	old := n.task
	n.changing(n, FieldTask, OpSet, old)
	n.task = t
	n.changed(n, FieldTask, OpSet, t)
	if old != nil {
		old.RemoveNote(n)
	}
	if t != nil {
		t.AddNote(n)
	}
}

func (n *Note) State() NoteState {
	return NoteState{ID: n.id, Content: n.content, Timestamp: copyTime(n.timestamp), Task: n.task}
}

func (n *Note) Snapshot() State { return n.State() }

func (n *Note) Restore(s State) {
	st, ok := s.(NoteState)
	if !ok {
		return
	}
	n.id = st.ID
	n.content = st.Content
	n.timestamp = copyTime(st.Timestamp)
	n.task = st.Task
}

func (n *Note) Related() []Entity {
	if n.task == nil {
		return nil
	}
	return []Entity{n.task}
}

func (n *Note) Unlink() { n.SetTask(nil) }

func (n *Note) Detach(drop func(Entity) bool) {
	if n.task != nil && drop(n.task) {
		n.task = nil
	}
}

func (n *Note) apply(field Field, op Op, value any) error {
	switch field {
	case FieldID, FieldContent, FieldTimestamp, FieldTask:
		if err := requireSet(KindNote, field, op); err != nil {
			return err
		}
	default:
		return unknownField(KindNote, field)
	}
	switch field {
	case FieldID:
		v, err := asInt64(field, value)
		if err != nil {
			return err
		}
		n.SetID(v)
	case FieldContent:
		v, err := asString(field, value)
		if err != nil {
			return err
		}
		n.SetContent(v)
	case FieldTimestamp:
		v, err := asOptionalTime(field, value)
		if err != nil {
			return err
		}
		n.SetTimestamp(v)
	case FieldTask:
		t, err := asOwner(field, value)
		if err != nil {
			return err
		}
		n.SetTask(t)
	}
	return nil
}

func asOwner(field Field, value any) (*Task, error) {
	switch t := value.(type) {
	case nil:
		return nil, nil
	case *Task:
		return t, nil
	default:
		return nil, InvalidArgumentf("%s expects a task, got %T", field, value)
	}
}
