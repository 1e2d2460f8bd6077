package models

// User is an account. Emails are unique; a task is visible to the users in
// its users collection and to admins.
type User struct {
	tracked

	id             int64
	email          string
	hashedPassword string
	isAdmin        bool
	tasks          entitySet[*Task]
}

// UserState is a detached copy of a user.
type UserState struct {
	ID             int64
	Email          string
	HashedPassword string
	IsAdmin        bool
	Tasks          []*Task
}

func (UserState) Kind() Kind { return KindUser }

func NewUser(email, hashedPassword string, isAdmin bool) *User {
	return &User{email: email, hashedPassword: hashedPassword, isAdmin: isAdmin}
}

func (u *User) Kind() Kind { return KindUser }

func (u *User) ID() int64 { return u.id }

func (u *User) SetID(id int64) { setField(u, &u.tracked, FieldID, &u.id, id) }

func (u *User) Email() string { return u.email }

func (u *User) SetEmail(v string) { setField(u, &u.tracked, FieldEmail, &u.email, v) }

func (u *User) HashedPassword() string { return u.hashedPassword }

func (u *User) SetHashedPassword(v string) {
	setField(u, &u.tracked, FieldHashedPassword, &u.hashedPassword, v)
}

func (u *User) IsAdmin() bool { return u.isAdmin }

func (u *User) SetIsAdmin(v bool) { setField(u, &u.tracked, FieldIsAdmin, &u.isAdmin, v) }

func (u *User) Tasks() []*Task { return u.tasks.list() }

func (u *User) AddTask(t *Task) {
	if t != nil && addTo(u, &u.tracked, FieldTasks, &u.tasks, t) {
		t.AddUser(u)
	}
}

func (u *User) RemoveTask(t *Task) {
	if t != nil && removeFrom(u, &u.tracked, FieldTasks, &u.tasks, t) {
		t.RemoveUser(u)
	}
}

func (u *User) State() UserState {
	return UserState{
		ID:             u.id,
		Email:          u.email,
		HashedPassword: u.hashedPassword,
		IsAdmin:        u.isAdmin,
		Tasks:          u.tasks.list(),
	}
}

func (u *User) Snapshot() State { return u.State() }

func (u *User) Restore(s State) {
	st, ok := s.(UserState)
	if !ok {
		return
	}
	u.id = st.ID
	u.email = st.Email
	u.hashedPassword = st.HashedPassword
	u.isAdmin = st.IsAdmin
	u.tasks.reset(st.Tasks)
}

func (u *User) Related() []Entity { return appendEntities(nil, u.tasks.items) }

func (u *User) Unlink() {
	for _, t := range u.tasks.list() {
		u.RemoveTask(t)
	}
}

func (u *User) Detach(drop func(Entity) bool) {
	u.tasks.retain(func(t *Task) bool { return !drop(t) })
}

func (u *User) apply(field Field, op Op, value any) error {
	switch field {
	case FieldTasks:
		if err := requireCollection(KindUser, field, op); err != nil {
			return err
		}
		t, ok := value.(*Task)
		if !ok || t == nil {
			return InvalidArgumentf("%s expects a task", field)
		}
		if op == OpAdd {
			u.AddTask(t)
		} else {
			u.RemoveTask(t)
		}
		return nil
	case FieldID, FieldEmail, FieldHashedPassword, FieldIsAdmin:
		if err := requireSet(KindUser, field, op); err != nil {
			return err
		}
	default:
		return unknownField(KindUser, field)
	}

	switch field {
	case FieldID:
		v, err := asInt64(field, value)
		if err != nil {
			return err
		}
		u.SetID(v)
	case FieldIsAdmin:
		v, err := asBool(field, value)
		if err != nil {
			return err
		}
		u.SetIsAdmin(v)
	default:
		v, err := asString(field, value)
		if err != nil {
			return err
		}
		if field == FieldEmail {
			u.SetEmail(v)
		} else {
			u.SetHashedPassword(v)
		}
	}
	return nil
}
