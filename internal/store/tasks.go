package store

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

const taskColumns = "id, summary, description, is_done, is_deleted, is_public, deadline, expected_duration_minutes, expected_cost, order_num, parent_id"

func loadTask(ctx context.Context, q queryer, id int64) (*TaskRecord, error) {
	row := q.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	rec, err := scanTask(row)
	if err != nil || rec == nil {
		return nil, err
	}

	lists := []struct {
		dst   *[]int64
		query string
	}{
		{&rec.ChildIDs, "SELECT id FROM tasks WHERE parent_id = ? ORDER BY id"},
		{&rec.TagIDs, "SELECT tag_id FROM task_tags WHERE task_id = ? ORDER BY tag_id"},
		{&rec.UserIDs, "SELECT user_id FROM task_users WHERE task_id = ? ORDER BY user_id"},
		{&rec.DependeeIDs, "SELECT dependee_id FROM task_dependencies WHERE dependant_id = ? ORDER BY dependee_id"},
		{&rec.DependantIDs, "SELECT dependant_id FROM task_dependencies WHERE dependee_id = ? ORDER BY dependant_id"},
		{&rec.PrioritizeBeforeIDs, "SELECT after_id FROM task_prioritizations WHERE before_id = ? ORDER BY after_id"},
		{&rec.PrioritizeAfterIDs, "SELECT before_id FROM task_prioritizations WHERE after_id = ? ORDER BY before_id"},
		{&rec.NoteIDs, "SELECT id FROM notes WHERE task_id = ? ORDER BY id"},
		{&rec.AttachmentIDs, "SELECT id FROM attachments WHERE task_id = ? ORDER BY id"},
	}
	for _, l := range lists {
		ids, err := scanIDs(ctx, q, l.query, id)
		if err != nil {
			return nil, err
		}
		*l.dst = ids
	}
	return rec, nil
}

func insertTask(ctx context.Context, tx *sql.Tx, r *TaskRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`,
		r.ID,
		r.Summary,
		r.Description,
		boolToInt(r.IsDone),
		boolToInt(r.IsDeleted),
		boolToInt(r.IsPublic),
		nullTime(r.Deadline),
		nullInt(r.ExpectedDurationMinutes),
		r.ExpectedCost,
		r.OrderNum,
	)
	return err
}

// updateTask rewrites the row and every join table the task owns.
func updateTask(ctx context.Context, tx *sql.Tx, r *TaskRecord) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET
			summary = ?, description = ?, is_done = ?, is_deleted = ?, is_public = ?,
			deadline = ?, expected_duration_minutes = ?, expected_cost = ?, order_num = ?, parent_id = ?
		WHERE id = ?
	`,
		r.Summary,
		r.Description,
		boolToInt(r.IsDone),
		boolToInt(r.IsDeleted),
		boolToInt(r.IsPublic),
		nullTime(r.Deadline),
		nullInt(r.ExpectedDurationMinutes),
		r.ExpectedCost,
		r.OrderNum,
		nullID(r.ParentID),
		r.ID,
	)
	if err != nil {
		return err
	}
	if err := requireUpdated(res, r.Ref()); err != nil {
		return err
	}

	joins := []struct {
		table, owner, other string
		ids                 []int64
	}{
		{"task_tags", "task_id", "tag_id", r.TagIDs},
		{"task_users", "task_id", "user_id", r.UserIDs},
		{"task_dependencies", "dependant_id", "dependee_id", r.DependeeIDs},
		{"task_prioritizations", "before_id", "after_id", r.PrioritizeBeforeIDs},
	}
	for _, j := range joins {
		if err := replaceJoinRows(ctx, tx, j.table, j.owner, j.other, r.ID, j.ids); err != nil {
			return err
		}
	}
	return nil
}

func replaceJoinRows(ctx context.Context, tx *sql.Tx, table, owner, other string, id int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+owner+" = ?", id); err != nil {
		return err
	}
	for _, otherID := range ids {
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+table+" ("+owner+", "+other+") VALUES (?, ?)", id, otherID); err != nil {
			return err
		}
	}
	return nil
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*TaskRecord, error) {
	var (
		rec      TaskRecord
		isDone   int
		deleted  int
		public   int
		deadline sql.NullString
		duration sql.NullInt64
		cost     decimal.NullDecimal
		parentID sql.NullInt64
	)
	err := scanner.Scan(
		&rec.ID,
		&rec.Summary,
		&rec.Description,
		&isDone,
		&deleted,
		&public,
		&deadline,
		&duration,
		&cost,
		&rec.OrderNum,
		&parentID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.IsDone = isDone != 0
	rec.IsDeleted = deleted != 0
	rec.IsPublic = public != 0
	rec.Deadline, err = parseNullTime(deadline)
	if err != nil {
		return nil, err
	}
	if duration.Valid {
		minutes := int(duration.Int64)
		rec.ExpectedDurationMinutes = &minutes
	}
	rec.ExpectedCost = cost
	rec.ParentID = idPtr(parentID)
	return &rec, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

const tagColumns = "id, value, description"

func loadTag(ctx context.Context, q queryer, id int64) (*TagRecord, error) {
	var rec TagRecord
	err := q.QueryRowContext(ctx, "SELECT "+tagColumns+" FROM tags WHERE id = ?", id).
		Scan(&rec.ID, &rec.Value, &rec.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.TaskIDs, err = scanIDs(ctx, q, "SELECT task_id FROM task_tags WHERE tag_id = ? ORDER BY task_id", id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func insertTag(ctx context.Context, tx *sql.Tx, r *TagRecord) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO tags ("+tagColumns+") VALUES (?, ?, ?)", r.ID, r.Value, r.Description)
	return err
}

func updateTag(ctx context.Context, tx *sql.Tx, r *TagRecord) error {
	res, err := tx.ExecContext(ctx, "UPDATE tags SET value = ?, description = ? WHERE id = ?", r.Value, r.Description, r.ID)
	if err != nil {
		return err
	}
	return requireUpdated(res, r.Ref())
}
