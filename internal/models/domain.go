package models

import "strings"

// OrderField names a task attribute lists can be sorted by.
type OrderField string

const (
	OrderByTaskID   OrderField = "task_id"
	OrderByOrderNum OrderField = "order_num"
	OrderByDeadline OrderField = "deadline"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// MoveDirection names a single-step reorder among siblings.
type MoveDirection string

const (
	MoveUp     MoveDirection = "up"
	MoveDown   MoveDirection = "down"
	MoveTop    MoveDirection = "top"
	MoveBottom MoveDirection = "bottom"
)

// ExportFormat selects the serialization of an export document.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)

const (
	DefaultPageNum = 1
	DefaultPerPage = 20
	MaxPerPage     = 500
)

var validOrderFields = map[OrderField]struct{}{
	OrderByTaskID:   {},
	OrderByOrderNum: {},
	OrderByDeadline: {},
}

var validMoveDirections = map[MoveDirection]struct{}{
	MoveUp:     {},
	MoveDown:   {},
	MoveTop:    {},
	MoveBottom: {},
}

func IsValidOrderField(field OrderField) bool {
	_, ok := validOrderFields[field]
	return ok
}

func IsValidSortDirection(dir SortDirection) bool {
	return dir == SortAsc || dir == SortDesc
}

func ParseOrderField(raw string) (OrderField, error) {
	value := OrderField(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", InvalidArgumentf("order field is required")
	}
	if !IsValidOrderField(value) {
		return "", InvalidArgumentf("invalid order field: %s", value)
	}
	return value, nil
}

func ParseSortDirection(raw string) (SortDirection, error) {
	value := SortDirection(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return SortAsc, nil
	}
	if !IsValidSortDirection(value) {
		return "", InvalidArgumentf("invalid sort direction: %s", value)
	}
	return value, nil
}

func ParseMoveDirection(raw string) (MoveDirection, error) {
	value := MoveDirection(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := validMoveDirections[value]; !ok {
		return "", InvalidArgumentf("invalid move direction: %q", raw)
	}
	return value, nil
}

func ParseExportFormat(raw string) (ExportFormat, error) {
	value := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML:
		return value, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", InvalidArgumentf("invalid export format: %s", value)
	}
}
