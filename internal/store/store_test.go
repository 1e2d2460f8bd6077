package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"tudor/internal/models"
)

func TestSQLiteDSN(t *testing.T) {
	if _, err := sqliteDSN(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	dsn, err := sqliteDSN("/tmp/my tasks.db")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	if dsn != "file:///tmp/my%20tasks.db" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}

func TestPoolSettingsFromEnv(t *testing.T) {
	cases := []struct {
		raw      string
		conns    int
		lifetime time.Duration
	}{
		{"", 3, 2 * time.Minute},
		{"4", 4, 4 * time.Second},
		{"45s", 3, 45 * time.Second},
		{"bad", 3, 2 * time.Minute},
		{"0", 3, 2 * time.Minute},
		{"-5", 3, 2 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			t.Setenv(maxOpenConnsEnvKey, tc.raw)
			t.Setenv(connMaxLifetimeEnvKey, tc.raw)
			if got := intFromEnv(maxOpenConnsEnvKey, 3); got != tc.conns {
				t.Fatalf("conns: expected %d, got %d", tc.conns, got)
			}
			if got := durationFromEnv(connMaxLifetimeEnvKey, 2*time.Minute); got != tc.lifetime {
				t.Fatalf("lifetime: expected %v, got %v", tc.lifetime, got)
			}
		})
	}
}

func TestStoredTimestampsSortLexically(t *testing.T) {
	early := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(500 * time.Millisecond)

	a := nullTime(&early).(string)
	b := nullTime(&late).(string)
	if len(a) != len(b) || a >= b {
		t.Fatalf("expected fixed-width ordered strings, got %q %q", a, b)
	}

	got, err := parseNullTime(sql.NullString{String: b, Valid: true})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(late) {
		t.Fatalf("expected %v, got %v", late, got)
	}

	legacy, err := parseNullTime(sql.NullString{String: "2030-01-01T12:00:00+02:00", Valid: true})
	if err != nil {
		t.Fatalf("parse rfc3339: %v", err)
	}
	if !legacy.Equal(early.Add(-2 * time.Hour)) {
		t.Fatalf("unexpected legacy time %v", legacy)
	}

	if none, err := parseNullTime(sql.NullString{}); none != nil || err != nil {
		t.Fatalf("expected nil for NULL, got %v %v", none, err)
	}
}

func TestSQLiteUpdateMissingRow(t *testing.T) {
	b := testBackends()["sqlite"](t)
	ctx := context.Background()

	tx, err := b.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	err = tx.Update(ctx, &TagRecord{ID: 42, Value: "ghost"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryBackendIsolatesUncommittedWrites(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	tx, err := b.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Insert(ctx, &TagRecord{ID: 1, Value: "draft"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec, err := b.Load(ctx, Ref{Kind: models.KindTag, ID: 1}); err != nil || rec != nil {
		t.Fatalf("expected uncommitted record invisible, got %v %v", rec, err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	maxID, err := b.MaxID(ctx, models.KindTag)
	if err != nil || maxID != 0 {
		t.Fatalf("expected empty store after rollback, got %d %v", maxID, err)
	}
}
