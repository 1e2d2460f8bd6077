package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tudor/internal/models"
)

const (
	busyTimeoutMS          = 5000
	defaultMaxOpenConns    = 1
	defaultMaxIdleConns    = 1
	defaultConnMaxLifetime = 5 * time.Minute

	maxOpenConnsEnvKey    = "TUDOR_DB_MAX_OPEN_CONNS"
	connMaxLifetimeEnvKey = "TUDOR_DB_CONN_MAX_LIFETIME"
)

// SQLiteBackend stores records in a SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

var _ Backend = (*SQLiteBackend)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite opens the SQLite database at path and applies pending
// migrations.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

// OpenRaw opens the database without migrating it, for inspection.
func OpenRaw(path string) (*sql.DB, error) {
	return openDB(path)
}

func openDB(path string) (*sql.DB, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := configureDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DB exposes the underlying handle for migrations tooling.
func (s *SQLiteBackend) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *SQLiteBackend) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Pragmas are per connection; keep a single one unless overridden.
	db.SetMaxOpenConns(intFromEnv(maxOpenConnsEnvKey, defaultMaxOpenConns))
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(durationFromEnv(connMaxLifetimeEnvKey, defaultConnMaxLifetime))

	return nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String(), nil
}

func intFromEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

var tableForKind = map[models.Kind]string{
	models.KindTask:       "tasks",
	models.KindTag:        "tags",
	models.KindNote:       "notes",
	models.KindAttachment: "attachments",
	models.KindUser:       "users",
}

// Load returns a nil Record, not a typed nil pointer, for a missing row.
func (s *SQLiteBackend) Load(ctx context.Context, ref Ref) (Record, error) {
	switch ref.Kind {
	case models.KindTask:
		return found(loadTask(ctx, s.db, ref.ID))
	case models.KindTag:
		return found(loadTag(ctx, s.db, ref.ID))
	case models.KindNote:
		return found(loadNote(ctx, s.db, ref.ID))
	case models.KindAttachment:
		return found(loadAttachment(ctx, s.db, ref.ID))
	case models.KindUser:
		return found(loadUser(ctx, s.db, ref.ID))
	case models.KindOption:
		return found(loadOption(ctx, s.db, ref.Key))
	}
	return nil, fmt.Errorf("unknown kind %q", ref.Kind)
}

func found[T any, P interface {
	*T
	Record
}](rec P, err error) (Record, error) {
	if err != nil || rec == nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteBackend) MaxID(ctx context.Context, kind models.Kind) (int64, error) {
	table, ok := tableForKind[kind]
	if !ok {
		return 0, models.InvalidArgumentf("%s has no numeric id", kind)
	}
	var maxID int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM "+table).Scan(&maxID)
	return maxID, err
}

func (s *SQLiteBackend) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Insert(ctx context.Context, rec Record) error {
	var err error
	switch r := rec.(type) {
	case *TaskRecord:
		err = insertTask(ctx, t.tx, r)
	case *TagRecord:
		err = insertTag(ctx, t.tx, r)
	case *NoteRecord:
		err = insertNote(ctx, t.tx, r)
	case *AttachmentRecord:
		err = insertAttachment(ctx, t.tx, r)
	case *UserRecord:
		err = insertUser(ctx, t.tx, r)
	case *OptionRecord:
		err = insertOption(ctx, t.tx, r)
	default:
		return fmt.Errorf("unsupported record %T", rec)
	}
	return mapSQLiteError(err)
}

func (t *sqliteTx) Update(ctx context.Context, rec Record) error {
	var err error
	switch r := rec.(type) {
	case *TaskRecord:
		err = updateTask(ctx, t.tx, r)
	case *TagRecord:
		err = updateTag(ctx, t.tx, r)
	case *NoteRecord:
		err = updateNote(ctx, t.tx, r)
	case *AttachmentRecord:
		err = updateAttachment(ctx, t.tx, r)
	case *UserRecord:
		err = updateUser(ctx, t.tx, r)
	case *OptionRecord:
		err = updateOption(ctx, t.tx, r)
	default:
		return fmt.Errorf("unsupported record %T", rec)
	}
	return mapSQLiteError(err)
}

func (t *sqliteTx) Delete(ctx context.Context, ref Ref) error {
	if ref.Kind == models.KindOption {
		_, err := t.tx.ExecContext(ctx, "DELETE FROM options WHERE key = ?", ref.Key)
		return err
	}
	table, ok := tableForKind[ref.Kind]
	if !ok {
		return fmt.Errorf("unknown kind %q", ref.Kind)
	}
	_, err := t.tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", ref.ID)
	return mapSQLiteError(err)
}

func (t *sqliteTx) Commit() error {
	return mapSQLiteError(t.tx.Commit())
}

func (t *sqliteTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// mapSQLiteError turns uniqueness violations into conflicts.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueConstraint(err) {
		return fmt.Errorf("%w: %v", models.ErrConflict, err)
	}
	return err
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// requireUpdated reports a missing row after an UPDATE.
func requireUpdated(res sql.Result, ref Ref) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NotFoundf("%s", ref)
	}
	return nil
}

func scanIDs(ctx context.Context, q queryer, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func nullTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(timeLayout)
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, value.String)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, value.String)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
