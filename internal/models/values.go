package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

func asString(field Field, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case *string:
		if v == nil {
			return "", nil
		}
		return *v, nil
	case nil:
		return "", nil
	default:
		return "", InvalidArgumentf("%s expects a string, got %T", field, value)
	}
}

func asBool(field Field, value any) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, InvalidArgumentf("%s expects a boolean, got %T", field, value)
	}
	return v, nil
}

func asInt64(field Field, value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, InvalidArgumentf("%s expects an integer, got %v", field, v)
		}
		return int64(v), nil
	default:
		return 0, InvalidArgumentf("%s expects an integer, got %T", field, value)
	}
}

func asOptionalInt(field Field, value any) (*int, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *int:
		return copyInt(v), nil
	default:
		n, err := asInt64(field, value)
		if err != nil {
			return nil, err
		}
		out := int(n)
		return &out, nil
	}
}

func asOptionalTime(field Field, value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case *time.Time:
		return copyTime(v), nil
	case string:
		if v == "" {
			return nil, nil
		}
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, InvalidArgumentf("%s expects an RFC3339 timestamp", field)
		}
		return &parsed, nil
	default:
		return nil, InvalidArgumentf("%s expects a timestamp, got %T", field, value)
	}
}

func asNullDecimal(field Field, value any) (decimal.NullDecimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case decimal.NullDecimal:
		return v, nil
	case decimal.Decimal:
		return decimal.NewNullDecimal(v), nil
	case string:
		if v == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.NullDecimal{}, InvalidArgumentf("%s expects a decimal: %v", field, err)
		}
		return decimal.NewNullDecimal(d), nil
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v)), nil
	default:
		return decimal.NullDecimal{}, InvalidArgumentf("%s expects a decimal, got %T", field, value)
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func intsEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func decimalsEqual(a, b decimal.NullDecimal) bool {
	if !a.Valid || !b.Valid {
		return a.Valid == b.Valid
	}
	return a.Decimal.Equal(b.Decimal)
}
