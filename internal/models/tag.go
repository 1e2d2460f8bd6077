package models

// Tag is a label shared between tasks. Values are unique.
type Tag struct {
	tracked

	id          int64
	value       string
	description string
	tasks       entitySet[*Task]
}

// TagState is a detached copy of a tag.
type TagState struct {
	ID          int64
	Value       string
	Description string
	Tasks       []*Task
}

func (TagState) Kind() Kind { return KindTag }

func NewTag(value, description string) *Tag {
	return &Tag{value: value, description: description}
}

func (g *Tag) Kind() Kind { return KindTag }

func (g *Tag) ID() int64 { return g.id }

func (g *Tag) SetID(id int64) { setField(g, &g.tracked, FieldID, &g.id, id) }

func (g *Tag) Value() string { return g.value }

func (g *Tag) SetValue(v string) { setField(g, &g.tracked, FieldValue, &g.value, v) }

func (g *Tag) Description() string { return g.description }

func (g *Tag) SetDescription(v string) {
	setField(g, &g.tracked, FieldDescription, &g.description, v)
}

func (g *Tag) Tasks() []*Task { return g.tasks.list() }

func (g *Tag) AddTask(t *Task) {
	if t != nil && addTo(g, &g.tracked, FieldTasks, &g.tasks, t) {
		t.AddTag(g)
	}
}

func (g *Tag) RemoveTask(t *Task) {
	if t != nil && removeFrom(g, &g.tracked, FieldTasks, &g.tasks, t) {
		t.RemoveTag(g)
	}
}

func (g *Tag) State() TagState {
	return TagState{ID: g.id, Value: g.value, Description: g.description, Tasks: g.tasks.list()}
}

func (g *Tag) Snapshot() State { return g.State() }

func (g *Tag) Restore(s State) {
	st, ok := s.(TagState)
	if !ok {
		return
	}
	g.id = st.ID
	g.value = st.Value
	g.description = st.Description
	g.tasks.reset(st.Tasks)
}

func (g *Tag) Related() []Entity { return appendEntities(nil, g.tasks.items) }

func (g *Tag) Unlink() {
	for _, t := range g.tasks.list() {
		g.RemoveTask(t)
	}
}

func (g *Tag) Detach(drop func(Entity) bool) {
	g.tasks.retain(func(t *Task) bool { return !drop(t) })
}

func (g *Tag) apply(field Field, op Op, value any) error {
	if field == FieldTasks {
		if err := requireCollection(KindTag, field, op); err != nil {
			return err
		}
		t, ok := value.(*Task)
		if !ok || t == nil {
			return InvalidArgumentf("%s expects a task", field)
		}
		if op == OpAdd {
			g.AddTask(t)
		} else {
			g.RemoveTask(t)
		}
		return nil
	}
	switch field {
	case FieldID, FieldValue, FieldDescription:
	default:
		return unknownField(KindTag, field)
	}
	if err := requireSet(KindTag, field, op); err != nil {
		return err
	}
	if field == FieldID {
		v, err := asInt64(field, value)
		if err != nil {
			return err
		}
		g.SetID(v)
		return nil
	}
	v, err := asString(field, value)
	if err != nil {
		return err
	}
	if field == FieldValue {
		g.SetValue(v)
	} else {
		g.SetDescription(v)
	}
	return nil
}
