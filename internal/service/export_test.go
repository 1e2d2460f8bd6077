package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tudor/internal/models"
	"tudor/internal/store"
)

func encodeJSON(t *testing.T, data *ExportData) string {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeExport(&buf, models.FormatJSON, data); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.String()
}

func TestExportDefaultTask(t *testing.T) {
	ctx := context.Background()
	p := store.New(store.NewMemoryBackend(), nil)
	if err := p.Add(p.CreateTask("bare", "")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	data, err := New(p, nil).Export(ctx, Operator())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(data.Tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(data.Tasks))
	}
	rec := data.Tasks[0]
	if rec.OrderNum != 0 || rec.ParentID != nil || rec.Deadline != nil || rec.ExpectedCost != nil {
		t.Fatalf("unexpected defaults %+v", rec)
	}

	out := encodeJSON(t, data)
	for _, want := range []string{
		`"tag_ids": []`,
		`"user_ids": []`,
		`"dependee_ids": []`,
		`"prioritize_after_ids": []`,
		`"note_ids": []`,
		`"attachment_ids": []`,
		`"parent_id": null`,
		`"order_num": 0`,
		`"is_done": false`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in:\n%s", want, out)
		}
	}
}

func populate(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	deadline := time.Date(2031, 7, 1, 12, 30, 0, 0, time.UTC)
	stamp := time.Date(2030, 2, 3, 4, 5, 6, 0, time.UTC)

	parent, err := f.svc.CreateTask(ctx, f.alice, TaskInput{
		Summary:      "plan trip",
		Description:  "summer",
		IsPublic:     true,
		Deadline:     &deadline,
		ExpectedCost: decimal.NewNullDecimal(decimal.RequireFromString("1999.95")),
		Tags:         []string{"travel"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	child := f.task(t, f.alice, "book flights", parent)
	other := f.task(t, f.bob, "renew passport", nil)
	if err := f.svc.AuthorizeUser(ctx, f.bob, other.ID(), f.alice.ID()); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := f.svc.AddDependee(ctx, f.alice, child.ID(), other.ID()); err != nil {
		t.Fatalf("dependee: %v", err)
	}
	if err := f.svc.AddPrioritizeBefore(ctx, f.alice, other.ID(), parent.ID()); err != nil {
		t.Fatalf("prioritize: %v", err)
	}
	if _, err := f.svc.CreateNote(ctx, f.alice, parent.ID(), "check visas", &stamp); err != nil {
		t.Fatalf("note: %v", err)
	}
	if _, err := f.svc.CreateAttachment(ctx, f.alice, child.ID(), AttachmentInput{Path: "2030/itinerary.pdf", Filename: "itinerary.pdf", Timestamp: &stamp}); err != nil {
		t.Fatalf("attachment: %v", err)
	}
	if err := f.svc.SetOption(ctx, f.admin, "site.title", "Trips"); err != nil {
		t.Fatalf("option: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, format := range []models.ExportFormat{models.FormatJSON, models.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			populate(t, f)

			original, err := f.svc.Export(ctx, f.admin)
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			var buf bytes.Buffer
			if err := EncodeExport(&buf, format, original); err != nil {
				t.Fatalf("encode: %v", err)
			}
			decoded, err := DecodeExport(&buf, format)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			target := New(store.New(store.NewMemoryBackend(), nil), nil)
			res, err := target.Import(ctx, Operator(), decoded)
			if err != nil {
				t.Fatalf("import: %v", err)
			}
			if res.Tasks != 3 || res.Users != 3 || res.Notes != 1 || res.Attachments != 1 || res.Options != 1 {
				t.Fatalf("unexpected import result %s", res)
			}

			again, err := target.Export(ctx, Operator())
			if err != nil {
				t.Fatalf("re-export: %v", err)
			}
			if want, got := encodeJSON(t, original), encodeJSON(t, again); want != got {
				t.Fatalf("round trip mismatch\nwant:\n%s\ngot:\n%s", want, got)
			}

			// Imported users keep their password hashes.
			if _, err := target.Authenticate(ctx, "alice@example.com", "alice-password"); err != nil {
				t.Fatalf("authenticate imported user: %v", err)
			}
		})
	}
}

func TestImportIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	parentID := int64(99)

	data := &ExportData{
		Version: 1,
		Tags:    []TagExport{{ID: 10, Value: "fresh"}},
		Tasks:   []TaskExport{{ID: 50, Summary: "orphan", ParentID: &parentID}},
	}
	_, err := f.svc.Import(ctx, f.admin, data)
	requireKind(t, err, models.ErrInvalidArgument)

	tags, err := f.svc.ListTags(ctx)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected failed import to leave no tags, got %d", len(tags))
	}
}

func TestImportConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	populate(t, f)
	data, err := f.svc.Export(ctx, f.admin)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	_, err = f.svc.Import(ctx, f.admin, data)
	requireKind(t, err, models.ErrConflict)

	dup := &ExportData{Tasks: []TaskExport{{ID: 70, Summary: "a"}, {ID: 70, Summary: "b"}}}
	_, err = f.svc.Import(ctx, f.admin, dup)
	requireKind(t, err, models.ErrConflict)

	cycles := map[string]*ExportData{
		"parent": {Tasks: []TaskExport{
			{ID: 101, Summary: "a", ParentID: ptr(int64(102))},
			{ID: 102, Summary: "b", ParentID: ptr(int64(101))},
		}},
		"own parent": {Tasks: []TaskExport{{ID: 101, Summary: "a", ParentID: ptr(int64(101))}}},
		"dependency": {Tasks: []TaskExport{
			{ID: 101, Summary: "a", DependeeIDs: []int64{102}},
			{ID: 102, Summary: "b", DependeeIDs: []int64{103}},
			{ID: 103, Summary: "c", DependeeIDs: []int64{101}},
		}},
		"prioritization": {Tasks: []TaskExport{
			{ID: 101, Summary: "a", PrioritizeBeforeIDs: []int64{102}},
			{ID: 102, Summary: "b", PrioritizeBeforeIDs: []int64{101}},
		}},
	}
	for name, cyclic := range cycles {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Import(ctx, f.admin, cyclic)
			requireKind(t, err, models.ErrConflict)
			task, err := f.svc.Persistence().GetTask(ctx, 101)
			if err != nil {
				t.Fatalf("get after rejected import: %v", err)
			}
			if task != nil {
				t.Fatal("rejected import left task 101 behind")
			}
		})
	}

	_, err = f.svc.Import(ctx, f.alice, &ExportData{})
	requireKind(t, err, models.ErrForbidden)
	_, err = f.svc.Export(ctx, f.alice)
	requireKind(t, err, models.ErrForbidden)
}

func TestImportLinksToExistingEntities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	home := f.task(t, f.alice, "home", nil)

	data := &ExportData{Tasks: []TaskExport{{
		ID:       100,
		Summary:  "fix sink",
		ParentID: ptr(home.ID()),
		UserIDs:  []int64{f.alice.ID()},
	}}}
	if _, err := f.svc.Import(ctx, f.admin, data); err != nil {
		t.Fatalf("import: %v", err)
	}
	task, err := f.svc.GetTask(ctx, f.alice, 100)
	if err != nil {
		t.Fatalf("get imported task: %v", err)
	}
	if task.Parent() != home || !task.HasUser(f.alice) {
		t.Fatal("expected imported task linked to existing parent and user")
	}
}

func TestDecodeExportRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		format models.ExportFormat
		input  string
	}{
		{"json unknown field", models.FormatJSON, `{"version": 1, "bogus": true}`},
		{"yaml unknown field", models.FormatYAML, "version: 1\nbogus: true\n"},
		{"newer version", models.FormatJSON, `{"version": 99}`},
		{"malformed", models.FormatJSON, `{`},
		{"unknown format", models.ExportFormat("xml"), `<x/>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeExport(strings.NewReader(tc.input), tc.format)
			requireKind(t, err, models.ErrInvalidArgument)
		})
	}
}

func ptr[T any](v T) *T { return &v }
