package models

import "time"

// Attachment records metadata about a file attached to a task. The file
// itself lives outside the tracker; Path is relative to the file store.
type Attachment struct {
	tracked

	id          int64
	path        string
	filename    string
	description string
	timestamp   *time.Time
	task        *Task
}

// AttachmentState is a detached copy of an attachment.
type AttachmentState struct {
	ID          int64
	Path        string
	Filename    string
	Description string
	Timestamp   *time.Time
	Task        *Task
}

func (AttachmentState) Kind() Kind { return KindAttachment }

func NewAttachment(path, filename, description string) *Attachment {
	return &Attachment{path: path, filename: filename, description: description}
}

func (a *Attachment) Kind() Kind { return KindAttachment }

func (a *Attachment) ID() int64 { return a.id }

func (a *Attachment) SetID(id int64) { setField(a, &a.tracked, FieldID, &a.id, id) }

func (a *Attachment) Path() string { return a.path }

func (a *Attachment) SetPath(v string) { setField(a, &a.tracked, FieldPath, &a.path, v) }

// Filename is the original upload name; empty when unknown.
func (a *Attachment) Filename() string { return a.filename }

func (a *Attachment) SetFilename(v string) {
	setField(a, &a.tracked, FieldFilename, &a.filename, v)
}

func (a *Attachment) Description() string { return a.description }

func (a *Attachment) SetDescription(v string) {
	setField(a, &a.tracked, FieldDescription, &a.description, v)
}

func (a *Attachment) Timestamp() *time.Time { return copyTime(a.timestamp) }

func (a *Attachment) SetTimestamp(v *time.Time) {
	if timesEqual(a.timestamp, v) {
		return
	}
	a.changing(a, FieldTimestamp, OpSet, copyTime(a.timestamp))
	a.timestamp = copyTime(v)
	a.changed(a, FieldTimestamp, OpSet, copyTime(v))
}

func (a *Attachment) Task() *Task { return a.task }

func (a *Attachment) TaskID() int64 {
	if a.task == nil {
		return 0
	}
	return a.task.id
}

func (a *Attachment) SetTask(t *Task) {
	if a.task == t {
		return
	}
	old := a.task
	a.changing(a, FieldTask, OpSet, old)
	a.task = t
	a.changed(a, FieldTask, OpSet, t)
	if old != nil {
		old.RemoveAttachment(a)
	}
	if t != nil {
		t.AddAttachment(a)
	}
}

func (a *Attachment) State() AttachmentState {
	return AttachmentState{
		ID:          a.id,
		Path:        a.path,
		Filename:    a.filename,
		Description: a.description,
		Timestamp:   copyTime(a.timestamp),
		Task:        a.task,
	}
}

func (a *Attachment) Snapshot() State { return a.State() }

func (a *Attachment) Restore(s State) {
	st, ok := s.(AttachmentState)
	if !ok {
		return
	}
	a.id = st.ID
	a.path = st.Path
	a.filename = st.Filename
	a.description = st.Description
	a.timestamp = copyTime(st.Timestamp)
	a.task = st.Task
}

func (a *Attachment) Related() []Entity {
	if a.task == nil {
		return nil
	}
	return []Entity{a.task}
}

func (a *Attachment) Unlink() { a.SetTask(nil) }

func (a *Attachment) Detach(drop func(Entity) bool) {
	if a.task != nil && drop(a.task) {
		a.task = nil
	}
}

func (a *Attachment) apply(field Field, op Op, value any) error {
	switch field {
	case FieldID, FieldPath, FieldFilename, FieldDescription, FieldTimestamp, FieldTask:
		if err := requireSet(KindAttachment, field, op); err != nil {
			return err
		}
	default:
		return unknownField(KindAttachment, field)
	}
	switch field {
	case FieldID:
		v, err := asInt64(field, value)
		if err != nil {
			return err
		}
		a.SetID(v)
	case FieldTimestamp:
		v, err := asOptionalTime(field, value)
		if err != nil {
			return err
		}
		a.SetTimestamp(v)
	case FieldTask:
		t, err := asOwner(field, value)
		if err != nil {
			return err
		}
		a.SetTask(t)
	default:
		v, err := asString(field, value)
		if err != nil {
			return err
		}
		switch field {
		case FieldPath:
			a.SetPath(v)
		case FieldFilename:
			a.SetFilename(v)
		default:
			a.SetDescription(v)
		}
	}
	return nil
}
