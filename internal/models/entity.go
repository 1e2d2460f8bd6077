package models

import "fmt"

// Kind names an entity type.
type Kind string

const (
	KindTask       Kind = "task"
	KindTag        Kind = "tag"
	KindNote       Kind = "note"
	KindAttachment Kind = "attachment"
	KindUser       Kind = "user"
	KindOption     Kind = "option"
)

// Op is the kind of mutation applied to a field.
type Op int

const (
	OpSet Op = iota + 1
	OpAdd
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Field names a mutable attribute or relationship of an entity.
type Field string

const (
	FieldID                      Field = "id"
	FieldSummary                 Field = "summary"
	FieldDescription             Field = "description"
	FieldIsDone                  Field = "is_done"
	FieldIsDeleted               Field = "is_deleted"
	FieldIsPublic                Field = "is_public"
	FieldDeadline                Field = "deadline"
	FieldExpectedDurationMinutes Field = "expected_duration_minutes"
	FieldExpectedCost            Field = "expected_cost"
	FieldOrderNum                Field = "order_num"
	FieldParent                  Field = "parent"
	FieldChildren                Field = "children"
	FieldTags                    Field = "tags"
	FieldUsers                   Field = "users"
	FieldDependees               Field = "dependees"
	FieldDependants              Field = "dependants"
	FieldPrioritizeBefore        Field = "prioritize_before"
	FieldPrioritizeAfter         Field = "prioritize_after"
	FieldNotes                   Field = "notes"
	FieldAttachments             Field = "attachments"

	FieldValue          Field = "value"
	FieldContent        Field = "content"
	FieldTimestamp      Field = "timestamp"
	FieldTask           Field = "task"
	FieldPath           Field = "path"
	FieldFilename       Field = "filename"
	FieldEmail          Field = "email"
	FieldHashedPassword Field = "hashed_password"
	FieldIsAdmin        Field = "is_admin"
	FieldTasks          Field = "tasks"
	FieldKey            Field = "key"
)

// Tracker observes mutations of the entities it is attached to.
// Changing runs before a mutation with the previous value (for OpSet) or the
// element being added or removed; Changed runs after it with the new value.
type Tracker interface {
	Changing(e Entity, field Field, op Op, value any)
	Changed(e Entity, field Field, op Op, value any)
}

// State is a detached copy of an entity's fields and relationships.
type State interface {
	Kind() Kind
}

// Entity is implemented by every domain object.
type Entity interface {
	Kind() Kind
	Tracker() Tracker
	SetTracker(t Tracker)

	// Snapshot copies all fields and relationships without notifying the tracker.
	Snapshot() State
	// Restore overwrites all fields and relationships from a snapshot of the
	// same kind without notifying the tracker or touching related objects.
	Restore(s State)
	// Related lists every object this entity currently links to.
	Related() []Entity
	// Unlink removes every relationship through the tracked mutators, so
	// both sides of each link are updated and observed.
	Unlink()
	// Detach silently drops links to objects matched by drop.
	Detach(drop func(Entity) bool)

	apply(field Field, op Op, value any) error
}

// Change is one mutation request for Apply.
type Change struct {
	Field Field `json:"field"`
	Op    Op    `json:"op"`
	Value any   `json:"value,omitempty"`
}

// Apply performs a single mutation on an entity by field name. Scalar fields
// accept only OpSet; relationship collections accept only OpAdd and OpRemove.
func Apply(e Entity, field Field, op Op, value any) error {
	if e == nil {
		return InvalidArgumentf("entity is required")
	}
	return e.apply(field, op, value)
}

// ApplyAll applies changes in order and stops at the first failure.
func ApplyAll(e Entity, changes []Change) error {
	for _, change := range changes {
		if err := Apply(e, change.Field, change.Op, change.Value); err != nil {
			return err
		}
	}
	return nil
}

type tracked struct {
	tracker Tracker
}

// Tracker returns the attached tracker, if any.
func (t *tracked) Tracker() Tracker {
	return t.tracker
}

// SetTracker attaches or (with nil) detaches a tracker.
func (t *tracked) SetTracker(tr Tracker) {
	t.tracker = tr
}

func (t *tracked) changing(e Entity, field Field, op Op, value any) {
	if t.tracker != nil {
		t.tracker.Changing(e, field, op, value)
	}
}

func (t *tracked) changed(e Entity, field Field, op Op, value any) {
	if t.tracker != nil {
		t.tracker.Changed(e, field, op, value)
	}
}

func setField[T comparable](e Entity, tr *tracked, field Field, dst *T, value T) {
	if *dst == value {
		return
	}
	tr.changing(e, field, OpSet, *dst)
	*dst = value
	tr.changed(e, field, OpSet, value)
}

func addTo[T comparable](e Entity, tr *tracked, field Field, set *entitySet[T], value T) bool {
	if set.has(value) {
		return false
	}
	tr.changing(e, field, OpAdd, value)
	set.add(value)
	tr.changed(e, field, OpAdd, value)
	return true
}

func removeFrom[T comparable](e Entity, tr *tracked, field Field, set *entitySet[T], value T) bool {
	if !set.has(value) {
		return false
	}
	tr.changing(e, field, OpRemove, value)
	set.remove(value)
	tr.changed(e, field, OpRemove, value)
	return true
}

func unknownField(kind Kind, field Field) error {
	return InvalidArgumentf("%s has no field %q", kind, field)
}

func requireSet(kind Kind, field Field, op Op) error {
	if op != OpSet {
		return InvalidArgumentf("cannot %s scalar field %s.%s", op, kind, field)
	}
	return nil
}

func requireCollection(kind Kind, field Field, op Op) error {
	if op != OpAdd && op != OpRemove {
		return InvalidArgumentf("cannot %s collection field %s.%s", op, kind, field)
	}
	return nil
}
