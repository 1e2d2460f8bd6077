package models

// Option is a global key/value setting. The key is its identity.
type Option struct {
	tracked

	key   string
	value string
}

// OptionState is a detached copy of an option.
type OptionState struct {
	Key   string
	Value string
}

func (OptionState) Kind() Kind { return KindOption }

func NewOption(key, value string) *Option {
	return &Option{key: key, value: value}
}

func (o *Option) Kind() Kind { return KindOption }

func (o *Option) Key() string { return o.key }

// SetKey renames the option. Keys of committed options are immutable.
func (o *Option) SetKey(v string) { setField(o, &o.tracked, FieldKey, &o.key, v) }

func (o *Option) Value() string { return o.value }

func (o *Option) SetValue(v string) { setField(o, &o.tracked, FieldValue, &o.value, v) }

func (o *Option) State() OptionState { return OptionState{Key: o.key, Value: o.value} }

func (o *Option) Snapshot() State { return o.State() }

func (o *Option) Restore(s State) {
	st, ok := s.(OptionState)
	if !ok {
		return
	}
	o.key = st.Key
	o.value = st.Value
}

func (o *Option) Related() []Entity { return nil }

func (o *Option) Unlink() {}

func (o *Option) Detach(func(Entity) bool) {}

func (o *Option) apply(field Field, op Op, value any) error {
	if field != FieldKey && field != FieldValue {
		return unknownField(KindOption, field)
	}
	if err := requireSet(KindOption, field, op); err != nil {
		return err
	}
	v, err := asString(field, value)
	if err != nil {
		return err
	}
	if field == FieldKey {
		o.SetKey(v)
	} else {
		o.SetValue(v)
	}
	return nil
}
