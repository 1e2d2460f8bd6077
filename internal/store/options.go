package store

import (
	"context"
	"database/sql"
)

func loadOption(ctx context.Context, q queryer, key string) (*OptionRecord, error) {
	var rec OptionRecord
	err := q.QueryRowContext(ctx, "SELECT key, value FROM options WHERE key = ?", key).Scan(&rec.Key, &rec.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func insertOption(ctx context.Context, tx *sql.Tx, r *OptionRecord) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO options (key, value) VALUES (?, ?)", r.Key, r.Value)
	return err
}

func updateOption(ctx context.Context, tx *sql.Tx, r *OptionRecord) error {
	res, err := tx.ExecContext(ctx, "UPDATE options SET value = ? WHERE key = ?", r.Value, r.Key)
	if err != nil {
		return err
	}
	return requireUpdated(res, r.Ref())
}
