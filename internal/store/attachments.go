package store

import (
	"context"
	"database/sql"
)

const noteColumns = "id, content, timestamp, task_id"

func loadNote(ctx context.Context, q queryer, id int64) (*NoteRecord, error) {
	row := q.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id)
	return scanNote(row)
}

func insertNote(ctx context.Context, tx *sql.Tx, r *NoteRecord) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO notes ("+noteColumns+") VALUES (?, ?, ?, NULL)",
		r.ID, r.Content, nullTime(r.Timestamp))
	return err
}

func updateNote(ctx context.Context, tx *sql.Tx, r *NoteRecord) error {
	res, err := tx.ExecContext(ctx, "UPDATE notes SET content = ?, timestamp = ?, task_id = ? WHERE id = ?",
		r.Content, nullTime(r.Timestamp), nullID(r.TaskID), r.ID)
	if err != nil {
		return err
	}
	return requireUpdated(res, r.Ref())
}

func scanNote(scanner interface {
	Scan(dest ...any) error
}) (*NoteRecord, error) {
	var (
		rec       NoteRecord
		timestamp sql.NullString
		taskID    sql.NullInt64
	)
	if err := scanner.Scan(&rec.ID, &rec.Content, &timestamp, &taskID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	ts, err := parseNullTime(timestamp)
	if err != nil {
		return nil, err
	}
	rec.Timestamp = ts
	rec.TaskID = idPtr(taskID)
	return &rec, nil
}

const attachmentColumns = "id, path, filename, description, timestamp, task_id"

func loadAttachment(ctx context.Context, q queryer, id int64) (*AttachmentRecord, error) {
	row := q.QueryRowContext(ctx, "SELECT "+attachmentColumns+" FROM attachments WHERE id = ?", id)
	return scanAttachment(row)
}

func insertAttachment(ctx context.Context, tx *sql.Tx, r *AttachmentRecord) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO attachments ("+attachmentColumns+") VALUES (?, ?, ?, ?, ?, NULL)",
		r.ID, r.Path, nullIfEmpty(r.Filename), r.Description, nullTime(r.Timestamp))
	return err
}

func updateAttachment(ctx context.Context, tx *sql.Tx, r *AttachmentRecord) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE attachments SET path = ?, filename = ?, description = ?, timestamp = ?, task_id = ?
		WHERE id = ?
	`, r.Path, nullIfEmpty(r.Filename), r.Description, nullTime(r.Timestamp), nullID(r.TaskID), r.ID)
	if err != nil {
		return err
	}
	return requireUpdated(res, r.Ref())
}

func scanAttachment(scanner interface {
	Scan(dest ...any) error
}) (*AttachmentRecord, error) {
	var (
		rec       AttachmentRecord
		filename  sql.NullString
		timestamp sql.NullString
		taskID    sql.NullInt64
	)
	err := scanner.Scan(&rec.ID, &rec.Path, &filename, &rec.Description, &timestamp, &taskID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec.Filename = filename.String
	rec.Timestamp, err = parseNullTime(timestamp)
	if err != nil {
		return nil, err
	}
	rec.TaskID = idPtr(taskID)
	return &rec, nil
}
