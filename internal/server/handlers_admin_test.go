package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"tudor/internal/api"
	"tudor/internal/service"
	"tudor/internal/store"
)

func TestMoveRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})
	t1 := ts.createTask(aliceCreds, api.TaskCreateRequest{Summary: "t1"})
	t2 := ts.createTask(aliceCreds, api.TaskCreateRequest{Summary: "t2"})
	t3 := ts.createTask(aliceCreds, api.TaskCreateRequest{Summary: "t3"})

	w := ts.do(http.MethodPost, taskURL(t1.ID, "/move/up"), nil, aliceCreds)
	requireStatus(t, w, http.StatusOK)
	if got := decodeBody[api.TaskResponse](t, w).OrderNum; got != 2 {
		t.Fatalf("expected t1 to take order 2, got %d", got)
	}

	w = ts.do(http.MethodPost, taskURL(t1.ID, "/move/top"), nil, aliceCreds)
	requireStatus(t, w, http.StatusOK)
	if got := decodeBody[api.TaskResponse](t, w).OrderNum; got <= t3.OrderNum {
		t.Fatalf("expected t1 above t3 (%d), got %d", t3.OrderNum, got)
	}

	requireErrorCode(t, ts.do(http.MethodPost, taskURL(t1.ID, "/move/sideways"), nil, aliceCreds), http.StatusBadRequest, ErrCodeInvalidMove)
	requireErrorCode(t, ts.do(http.MethodPost, taskURL(t1.ID, "/move/up"), nil, bobCreds), http.StatusForbidden, ErrCodeForbidden)
	requireErrorCode(t, ts.do(http.MethodPost, taskURL(t1.ID, "/move/up"), nil, nil), http.StatusUnauthorized, ErrCodeUnauthorized)

	// Move t1 below t2: display order becomes t3, t2, t1.
	requireStatus(t, ts.do(http.MethodPost, taskURL(t1.ID, "/move-after/"+itoa(t2.ID)), nil, aliceCreds), http.StatusOK)
	w = ts.do(http.MethodGet, "/v1/tasks", nil, aliceCreds)
	page := decodeBody[api.TaskPageResponse](t, w)
	want := []int64{t3.ID, t2.ID, t1.ID}
	for i, task := range page.Tasks {
		if task.ID != want[i] || task.OrderNum != int64(6-2*i) {
			t.Fatalf("position %d: expected task %d with order %d, got %d/%d", i, want[i], 6-2*i, task.ID, task.OrderNum)
		}
	}

	child := ts.createTask(aliceCreds, api.TaskCreateRequest{Summary: "child", ParentID: t3.ID})
	requireErrorCode(t, ts.do(http.MethodPost, taskURL(child.ID, "/move-after/"+itoa(t2.ID)), nil, aliceCreds), http.StatusConflict, ErrCodeConflict)

	requireStatus(t, ts.do(http.MethodPost, "/v1/tasks/reset-order", nil, aliceCreds), http.StatusNoContent)
}

func TestRelationRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})
	a := ts.createTask(aliceCreds, api.TaskCreateRequest{Summary: "a"})
	b := ts.createTask(aliceCreds, api.TaskCreateRequest{Summary: "b"})

	w := ts.do(http.MethodPost, taskURL(a.ID, "/tags"), api.TagRequest{Value: "urgent"}, aliceCreds)
	requireStatus(t, w, http.StatusOK)
	tag := decodeBody[api.TagResponse](t, w)
	requireStatus(t, ts.do(http.MethodDelete, taskURL(a.ID, "/tags/"+itoa(tag.ID)), nil, aliceCreds), http.StatusNoContent)

	w = ts.do(http.MethodPost, taskURL(a.ID, "/dependees"), api.TaskRefRequest{TaskID: b.ID}, aliceCreds)
	requireStatus(t, w, http.StatusOK)
	if got := decodeBody[api.TaskResponse](t, w).DependeeIDs; len(got) != 1 || got[0] != b.ID {
		t.Fatalf("expected dependee %d, got %v", b.ID, got)
	}
	requireErrorCode(t, ts.do(http.MethodPost, taskURL(b.ID, "/dependees"), api.TaskRefRequest{TaskID: a.ID}, aliceCreds), http.StatusConflict, ErrCodeConflict)
	requireStatus(t, ts.do(http.MethodDelete, taskURL(a.ID, "/dependees/"+itoa(b.ID)), nil, aliceCreds), http.StatusNoContent)
	requireErrorCode(t, ts.do(http.MethodPost, taskURL(a.ID, "/dependees"), api.TaskRefRequest{}, aliceCreds), http.StatusBadRequest, ErrCodeMissingRequired)

	w = ts.do(http.MethodPost, taskURL(a.ID, "/prioritize-before"), api.TaskRefRequest{TaskID: b.ID}, aliceCreds)
	requireStatus(t, w, http.StatusOK)
	if got := decodeBody[api.TaskResponse](t, w).PrioritizeBeforeIDs; len(got) != 1 || got[0] != b.ID {
		t.Fatalf("expected prioritize-before %d, got %v", b.ID, got)
	}
	requireStatus(t, ts.do(http.MethodDelete, taskURL(a.ID, "/prioritize-before/"+itoa(b.ID)), nil, aliceCreds), http.StatusNoContent)

	w = ts.do(http.MethodPost, taskURL(a.ID, "/users"), api.UserRefRequest{UserID: ts.bob.ID()}, aliceCreds)
	requireStatus(t, w, http.StatusOK)
	if got := decodeBody[api.TaskResponse](t, w).UserIDs; len(got) != 2 {
		t.Fatalf("expected two authorized users, got %v", got)
	}
	requireStatus(t, ts.do(http.MethodPost, taskURL(a.ID, "/done"), nil, bobCreds), http.StatusOK)
	requireStatus(t, ts.do(http.MethodDelete, taskURL(a.ID, "/users/"+itoa(ts.alice.ID())), nil, bobCreds), http.StatusNoContent)
	requireErrorCode(t, ts.do(http.MethodDelete, taskURL(a.ID, "/users/"+itoa(ts.bob.ID())), nil, bobCreds), http.StatusConflict, ErrCodeConflict)
}

func TestNoteAndAttachmentRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})
	task := ts.createTask(aliceCreds, api.TaskCreateRequest{Summary: "taxes"})

	w := ts.do(http.MethodPost, taskURL(task.ID, "/notes"), api.NoteCreateRequest{Content: "find receipts"}, aliceCreds)
	requireStatus(t, w, http.StatusCreated)
	note := decodeBody[api.NoteResponse](t, w)
	if note.TaskID == nil || *note.TaskID != task.ID || note.Timestamp == nil {
		t.Fatalf("unexpected note %+v", note)
	}

	w = ts.do(http.MethodGet, taskURL(task.ID, "/notes"), nil, aliceCreds)
	requireStatus(t, w, http.StatusOK)
	if notes := decodeBody[[]api.NoteResponse](t, w); len(notes) != 1 || notes[0].ID != note.ID {
		t.Fatalf("expected the note listed, got %+v", notes)
	}
	requireErrorCode(t, ts.do(http.MethodDelete, "/v1/notes/"+itoa(note.ID), nil, bobCreds), http.StatusForbidden, ErrCodeForbidden)
	requireStatus(t, ts.do(http.MethodDelete, "/v1/notes/"+itoa(note.ID), nil, aliceCreds), http.StatusNoContent)

	w = ts.do(http.MethodPost, taskURL(task.ID, "/attachments"), api.AttachmentCreateRequest{Path: "2030/w2.pdf", Filename: "w2.pdf"}, aliceCreds)
	requireStatus(t, w, http.StatusCreated)
	att := decodeBody[api.AttachmentResponse](t, w)
	if att.Path != "2030/w2.pdf" || att.TaskID == nil {
		t.Fatalf("unexpected attachment %+v", att)
	}
	requireErrorCode(t, ts.do(http.MethodPost, taskURL(task.ID, "/attachments"), api.AttachmentCreateRequest{}, aliceCreds), http.StatusBadRequest, ErrCodeInvalidArgument)
	requireStatus(t, ts.do(http.MethodDelete, "/v1/attachments/"+itoa(att.ID), nil, aliceCreds), http.StatusNoContent)
}

func TestUserRoutes(t *testing.T) {
	t.Run("bootstrap first user anonymously", func(t *testing.T) {
		srv := New("", service.New(store.New(store.NewMemoryBackend(), nil), nil), nil, Options{})
		body := strings.NewReader(`{"email":"root@example.com","password":"root-password"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/users", body)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		requireStatus(t, w, http.StatusCreated)
		if user := decodeBody[api.UserResponse](t, w); !user.IsAdmin {
			t.Fatal("expected the first user to be an admin")
		}
	})

	ts := newTestServer(t, Options{})
	carol := api.UserCreateRequest{Email: "carol@example.com", Password: "carol-password"}
	requireErrorCode(t, ts.do(http.MethodPost, "/v1/users", carol, nil), http.StatusUnauthorized, ErrCodeUnauthorized)
	requireErrorCode(t, ts.do(http.MethodPost, "/v1/users", carol, aliceCreds), http.StatusForbidden, ErrCodeForbidden)
	requireStatus(t, ts.do(http.MethodPost, "/v1/users", carol, adminCreds), http.StatusCreated)
	requireErrorCode(t, ts.do(http.MethodPost, "/v1/users", carol, adminCreds), http.StatusConflict, ErrCodeConflict)

	requireErrorCode(t, ts.do(http.MethodGet, "/v1/users", nil, aliceCreds), http.StatusForbidden, ErrCodeForbidden)
	w := ts.do(http.MethodGet, "/v1/users", nil, adminCreds)
	requireStatus(t, w, http.StatusOK)
	if users := decodeBody[[]api.UserResponse](t, w); len(users) != 4 {
		t.Fatalf("expected 4 users, got %d", len(users))
	}

	path := "/v1/users/" + itoa(ts.alice.ID()) + "/password"
	requireStatus(t, ts.do(http.MethodPut, path, api.PasswordRequest{Password: "new-alice-password"}, aliceCreds), http.StatusNoContent)
	requireStatus(t, ts.do(http.MethodGet, "/v1/tags", nil, aliceCreds), http.StatusUnauthorized)
	requireStatus(t, ts.do(http.MethodGet, "/v1/tags", nil, &credentials{aliceCreds.email, "new-alice-password"}), http.StatusOK)
}

func TestTagAndOptionRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})
	task := ts.createTask(aliceCreds, api.TaskCreateRequest{Summary: "x", Tags: []string{"errand"}})

	w := ts.do(http.MethodGet, "/v1/tags", nil, nil)
	requireStatus(t, w, http.StatusOK)
	tags := decodeBody[[]api.TagResponse](t, w)
	if len(tags) != 1 || tags[0].Value != "errand" {
		t.Fatalf("unexpected tags %+v", tags)
	}

	path := "/v1/tags/" + itoa(tags[0].ID)
	requireErrorCode(t, ts.do(http.MethodPatch, path, api.TagRequest{Value: "chore"}, aliceCreds), http.StatusForbidden, ErrCodeForbidden)
	requireStatus(t, ts.do(http.MethodPatch, path, api.TagRequest{Value: "chore", Description: "small jobs"}, adminCreds), http.StatusOK)
	w = ts.do(http.MethodGet, taskURL(task.ID, ""), nil, aliceCreds)
	if got := decodeBody[api.TaskResponse](t, w).Tags; len(got) != 1 || got[0] != "chore" {
		t.Fatalf("expected renamed tag on the task, got %v", got)
	}

	requireErrorCode(t, ts.do(http.MethodPut, "/v1/options/site.title", api.OptionRequest{Value: "Home"}, aliceCreds), http.StatusForbidden, ErrCodeForbidden)
	requireStatus(t, ts.do(http.MethodPut, "/v1/options/site.title", api.OptionRequest{Value: "Home"}, adminCreds), http.StatusOK)
	requireStatus(t, ts.do(http.MethodPut, "/v1/options/mail.from", api.OptionRequest{Value: "me@example.com"}, adminCreds), http.StatusOK)
	w = ts.do(http.MethodGet, "/v1/options?prefix=site.", nil, nil)
	requireStatus(t, w, http.StatusOK)
	if opts := decodeBody[[]api.OptionResponse](t, w); len(opts) != 1 || opts[0].Value != "Home" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestExportImportRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})
	parent := ts.createTask(aliceCreds, api.TaskCreateRequest{Summary: "parent", Tags: []string{"p"}})
	ts.createTask(aliceCreds, api.TaskCreateRequest{Summary: "child", ParentID: parent.ID})

	requireErrorCode(t, ts.do(http.MethodGet, "/v1/export", nil, aliceCreds), http.StatusForbidden, ErrCodeForbidden)
	requireErrorCode(t, ts.do(http.MethodGet, "/v1/export?format=xml", nil, adminCreds), http.StatusBadRequest, ErrCodeInvalidFormat)

	w := ts.do(http.MethodGet, "/v1/export?format=yaml", nil, adminCreds)
	requireStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Fatalf("unexpected content type %q", ct)
	}
	exported := w.Body.Bytes()
	if !bytes.Contains(exported, []byte("summary: parent")) {
		t.Fatalf("expected yaml export, got:\n%s", exported)
	}

	target := New("", service.New(store.New(store.NewMemoryBackend(), nil), nil), nil, Options{})
	req := httptest.NewRequest(http.MethodPost, "/v1/import?format=yaml", bytes.NewReader(exported))
	// An empty service has no users, so import runs as an anonymous call
	// and is refused.
	w = httptest.NewRecorder()
	target.Handler().ServeHTTP(w, req)
	requireErrorCode(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)

	// Importing the same data again clashes with the existing ids.
	req = httptest.NewRequest(http.MethodPost, "/v1/import?format=yaml", bytes.NewReader(exported))
	req.SetBasicAuth(adminCreds.email, adminCreds.password)
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	requireErrorCode(t, w, http.StatusConflict, ErrCodeConflict)

	req = httptest.NewRequest(http.MethodPost, "/v1/import", strings.NewReader(`{"version":1,"tasks":[{"id":500,"summary":"imported"}]}`))
	req.SetBasicAuth(adminCreds.email, adminCreds.password)
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	requireStatus(t, w, http.StatusOK)
	if res := decodeBody[api.ImportResponse](t, w); res.Tasks != 1 {
		t.Fatalf("expected one imported task, got %+v", res)
	}
	requireStatus(t, ts.do(http.MethodGet, "/v1/tasks/500", nil, adminCreds), http.StatusOK)

	req = httptest.NewRequest(http.MethodPost, "/v1/import", strings.NewReader(`{"bogus":true}`))
	req.SetBasicAuth(adminCreds.email, adminCreds.password)
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	requireErrorCode(t, w, http.StatusBadRequest, ErrCodeInvalidArgument)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
