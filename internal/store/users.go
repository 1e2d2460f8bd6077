package store

import (
	"context"
	"database/sql"
)

const userColumns = "id, email, hashed_password, is_admin"

func loadUser(ctx context.Context, q queryer, id int64) (*UserRecord, error) {
	row := q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	rec, err := scanUser(row)
	if err != nil || rec == nil {
		return nil, err
	}
	rec.TaskIDs, err = scanIDs(ctx, q, "SELECT task_id FROM task_users WHERE user_id = ? ORDER BY task_id", id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func insertUser(ctx context.Context, tx *sql.Tx, r *UserRecord) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?)",
		r.ID, r.Email, r.HashedPassword, boolToInt(r.IsAdmin))
	return err
}

func updateUser(ctx context.Context, tx *sql.Tx, r *UserRecord) error {
	res, err := tx.ExecContext(ctx, "UPDATE users SET email = ?, hashed_password = ?, is_admin = ? WHERE id = ?",
		r.Email, r.HashedPassword, boolToInt(r.IsAdmin), r.ID)
	if err != nil {
		return err
	}
	return requireUpdated(res, r.Ref())
}

func scanUser(scanner interface {
	Scan(dest ...any) error
}) (*UserRecord, error) {
	var user UserRecord
	var isAdmin int
	if err := scanner.Scan(&user.ID, &user.Email, &user.HashedPassword, &isAdmin); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	user.IsAdmin = isAdmin != 0
	return &user, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
