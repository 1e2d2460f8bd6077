package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"tudor/internal/models"
)

type taskQueryBuilder struct {
	filter TaskQuery
	query  string
	args   []any
	where  []string
}

func buildTaskQuery(filter TaskQuery) (string, []any) {
	builder := &taskQueryBuilder{filter: filter}
	builder.buildSelect()
	builder.buildWhere()
	builder.buildOrder()
	builder.buildLimit()
	return builder.query, builder.args
}

func (b *taskQueryBuilder) buildSelect() {
	b.query = "SELECT id FROM tasks"
}

func (b *taskQueryBuilder) buildWhere() {
	b.appendFlags()
	b.appendParentID()
	b.appendIDSets()
	b.appendUsers()
	b.appendTags()
	b.appendDeadline()
	b.appendSearchTerm()
	b.appendOrderNumRange()

	if len(b.where) == 0 {
		return
	}
	b.query += " WHERE " + strings.Join(b.where, " AND ")
}

// buildOrder emits the sort keys most significant first: the last OrderBy
// entry, then the others in reverse, then id as the base order.
func (b *taskQueryBuilder) buildOrder() {
	var terms []string
	for _, ob := range slices.Backward(b.filter.OrderBy) {
		dir := "ASC"
		if ob.Direction == models.SortDesc {
			dir = "DESC"
		}
		switch ob.Field {
		case models.OrderByTaskID:
			terms = append(terms, "id "+dir)
		case models.OrderByOrderNum:
			terms = append(terms, "order_num "+dir)
		case models.OrderByDeadline:
			terms = append(terms, "deadline IS NULL", "deadline "+dir)
		}
	}
	terms = append(terms, "id ASC")
	b.query += " ORDER BY " + strings.Join(terms, ", ")
}

func (b *taskQueryBuilder) buildLimit() {
	if limit := limitOf(b.filter.Limit); limit >= 0 {
		b.query += " LIMIT ?"
		b.args = append(b.args, limit)
	}
}

func (b *taskQueryBuilder) appendFlags() {
	flags := []struct {
		column string
		value  *bool
	}{
		{"is_done", b.filter.IsDone},
		{"is_deleted", b.filter.IsDeleted},
		{"is_public", b.filter.IsPublic},
	}
	for _, f := range flags {
		if f.value == nil {
			continue
		}
		b.where = append(b.where, f.column+" = ?")
		b.args = append(b.args, boolToInt(*f.value))
	}
}

func (b *taskQueryBuilder) appendParentID() {
	if p := b.filter.ParentID; p != nil {
		if p.Valid {
			b.where = append(b.where, "parent_id = ?")
			b.args = append(b.args, p.Int64)
		} else {
			b.where = append(b.where, "parent_id IS NULL")
		}
	}
	if b.filter.ParentIDIn != nil {
		b.appendIn("parent_id", b.filter.ParentIDIn)
	}
}

func (b *taskQueryBuilder) appendIDSets() {
	if b.filter.TaskIDIn != nil {
		b.appendIn("id", b.filter.TaskIDIn)
	}
	if len(b.filter.TaskIDNotIn) > 0 {
		b.where = append(b.where, fmt.Sprintf("id NOT IN (%s)", placeholders(len(b.filter.TaskIDNotIn))))
		for _, id := range b.filter.TaskIDNotIn {
			b.args = append(b.args, id)
		}
	}
}

// appendIn matches nothing for an empty set.
func (b *taskQueryBuilder) appendIn(column string, ids []int64) {
	if len(ids) == 0 {
		b.where = append(b.where, "0")
		return
	}
	b.where = append(b.where, fmt.Sprintf("%s IN (%s)", column, placeholders(len(ids))))
	for _, id := range ids {
		b.args = append(b.args, id)
	}
}

func (b *taskQueryBuilder) appendUsers() {
	if b.filter.UsersContains != 0 {
		b.where = append(b.where, "id IN (SELECT task_id FROM task_users WHERE user_id = ?)")
		b.args = append(b.args, b.filter.UsersContains)
	}
	if b.filter.IsPublicOrUsersContains != nil {
		b.where = append(b.where, "(is_public = 1 OR id IN (SELECT task_id FROM task_users WHERE user_id = ?))")
		b.args = append(b.args, *b.filter.IsPublicOrUsersContains)
	}
}

func (b *taskQueryBuilder) appendTags() {
	if b.filter.TagsContains == 0 {
		return
	}
	b.where = append(b.where, "id IN (SELECT task_id FROM task_tags WHERE tag_id = ?)")
	b.args = append(b.args, b.filter.TagsContains)
}

func (b *taskQueryBuilder) appendDeadline() {
	if b.filter.DeadlineIsNotNone {
		b.where = append(b.where, "deadline IS NOT NULL")
	}
}

// appendSearchTerm uses instr, which unlike LIKE is case-sensitive.
func (b *taskQueryBuilder) appendSearchTerm() {
	if b.filter.SearchTerm == "" {
		return
	}
	b.where = append(b.where, "(instr(summary, ?) > 0 OR instr(description, ?) > 0)")
	b.args = append(b.args, b.filter.SearchTerm, b.filter.SearchTerm)
}

func (b *taskQueryBuilder) appendOrderNumRange() {
	if b.filter.OrderNumGreaterEq != nil {
		b.where = append(b.where, "order_num >= ?")
		b.args = append(b.args, *b.filter.OrderNumGreaterEq)
	}
	if b.filter.OrderNumLessEq != nil {
		b.where = append(b.where, "order_num <= ?")
		b.args = append(b.args, *b.filter.OrderNumLessEq)
	}
}

func (s *SQLiteBackend) QueryTasks(ctx context.Context, q TaskQuery) ([]int64, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args := buildTaskQuery(q)
	return scanIDs(ctx, s.db, query, args...)
}

func (s *SQLiteBackend) QueryTags(ctx context.Context, q TagQuery) ([]int64, error) {
	query := "SELECT id FROM tags"
	var where []string
	var args []any
	if q.Value != "" {
		where = append(where, "value = ?")
		args = append(args, q.Value)
	}
	if q.TaskID != 0 {
		where = append(where, "id IN (SELECT tag_id FROM task_tags WHERE task_id = ?)")
		args = append(args, q.TaskID)
	}
	query, args = finishQuery(query, where, "id ASC", q.Limit, args)
	return scanIDs(ctx, s.db, query, args...)
}

func (s *SQLiteBackend) QueryNotes(ctx context.Context, q NoteQuery) ([]int64, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query := "SELECT id FROM notes"
	var where []string
	var args []any
	if q.TaskID != 0 {
		where = append(where, "task_id = ?")
		args = append(args, q.TaskID)
	}
	order := "id ASC"
	switch q.OrderBy {
	case models.SortAsc:
		order = "timestamp IS NULL, timestamp ASC, id ASC"
	case models.SortDesc:
		order = "timestamp IS NULL, timestamp DESC, id ASC"
	}
	query, args = finishQuery(query, where, order, q.Limit, args)
	return scanIDs(ctx, s.db, query, args...)
}

func (s *SQLiteBackend) QueryAttachments(ctx context.Context, q AttachmentQuery) ([]int64, error) {
	query := "SELECT id FROM attachments"
	var where []string
	var args []any
	if q.TaskID != 0 {
		where = append(where, "task_id = ?")
		args = append(args, q.TaskID)
	}
	query, args = finishQuery(query, where, "id ASC", q.Limit, args)
	return scanIDs(ctx, s.db, query, args...)
}

func (s *SQLiteBackend) QueryUsers(ctx context.Context, q UserQuery) ([]int64, error) {
	query := "SELECT id FROM users"
	var where []string
	var args []any
	if q.Email != "" {
		where = append(where, "email = ?")
		args = append(args, q.Email)
	}
	if q.IsAdmin != nil {
		where = append(where, "is_admin = ?")
		args = append(args, boolToInt(*q.IsAdmin))
	}
	if q.TaskID != 0 {
		where = append(where, "id IN (SELECT user_id FROM task_users WHERE task_id = ?)")
		args = append(args, q.TaskID)
	}
	query, args = finishQuery(query, where, "id ASC", q.Limit, args)
	return scanIDs(ctx, s.db, query, args...)
}

func (s *SQLiteBackend) QueryOptions(ctx context.Context, q OptionQuery) ([]string, error) {
	query := "SELECT key FROM options"
	var where []string
	var args []any
	if q.KeyPrefix != "" {
		where = append(where, "instr(key, ?) = 1")
		args = append(args, q.KeyPrefix)
	}
	query, args = finishQuery(query, where, "key ASC", q.Limit, args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func finishQuery(query string, where []string, order string, limit *int, args []any) (string, []any) {
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + order
	if n := limitOf(limit); n >= 0 {
		query += " LIMIT ?"
		args = append(args, n)
	}
	return query, args
}
