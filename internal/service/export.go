package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tudor/internal/models"
	"tudor/internal/store"
)

const exportVersion = 1

// ExportData is a complete dump of a tudor database.
type ExportData struct {
	Version     int                `json:"version" yaml:"version"`
	Tasks       []TaskExport       `json:"tasks" yaml:"tasks"`
	Tags        []TagExport        `json:"tags" yaml:"tags"`
	Notes       []NoteExport       `json:"notes" yaml:"notes"`
	Attachments []AttachmentExport `json:"attachments" yaml:"attachments"`
	Users       []UserExport       `json:"users" yaml:"users"`
	Options     []OptionExport     `json:"options" yaml:"options"`
}

// TaskExport carries both sides of every task relationship; import only
// reads the owning side.
type TaskExport struct {
	ID                      int64            `json:"id" yaml:"id"`
	Summary                 string           `json:"summary" yaml:"summary"`
	Description             string           `json:"description" yaml:"description"`
	IsDone                  bool             `json:"is_done" yaml:"is_done"`
	IsDeleted               bool             `json:"is_deleted" yaml:"is_deleted"`
	IsPublic                bool             `json:"is_public" yaml:"is_public"`
	Deadline                *time.Time       `json:"deadline" yaml:"deadline"`
	ExpectedDurationMinutes *int             `json:"expected_duration_minutes" yaml:"expected_duration_minutes"`
	ExpectedCost            *decimal.Decimal `json:"expected_cost" yaml:"expected_cost"`
	OrderNum                int64            `json:"order_num" yaml:"order_num"`
	ParentID                *int64           `json:"parent_id" yaml:"parent_id"`
	TagIDs                  []int64          `json:"tag_ids" yaml:"tag_ids"`
	UserIDs                 []int64          `json:"user_ids" yaml:"user_ids"`
	DependeeIDs             []int64          `json:"dependee_ids" yaml:"dependee_ids"`
	DependantIDs            []int64          `json:"dependant_ids" yaml:"dependant_ids"`
	PrioritizeBeforeIDs     []int64          `json:"prioritize_before_ids" yaml:"prioritize_before_ids"`
	PrioritizeAfterIDs      []int64          `json:"prioritize_after_ids" yaml:"prioritize_after_ids"`
	NoteIDs                 []int64          `json:"note_ids" yaml:"note_ids"`
	AttachmentIDs           []int64          `json:"attachment_ids" yaml:"attachment_ids"`
}

type TagExport struct {
	ID          int64  `json:"id" yaml:"id"`
	Value       string `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

type NoteExport struct {
	ID        int64      `json:"id" yaml:"id"`
	Content   string     `json:"content" yaml:"content"`
	Timestamp *time.Time `json:"timestamp" yaml:"timestamp"`
	TaskID    *int64     `json:"task_id" yaml:"task_id"`
}

type AttachmentExport struct {
	ID          int64      `json:"id" yaml:"id"`
	Path        string     `json:"path" yaml:"path"`
	Filename    string     `json:"filename" yaml:"filename"`
	Description string     `json:"description" yaml:"description"`
	Timestamp   *time.Time `json:"timestamp" yaml:"timestamp"`
	TaskID      *int64     `json:"task_id" yaml:"task_id"`
}

type UserExport struct {
	ID             int64  `json:"id" yaml:"id"`
	Email          string `json:"email" yaml:"email"`
	HashedPassword string `json:"hashed_password" yaml:"hashed_password"`
	IsAdmin        bool   `json:"is_admin" yaml:"is_admin"`
}

type OptionExport struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// ImportResult counts what an import created.
type ImportResult struct {
	Tasks       int `json:"tasks"`
	Tags        int `json:"tags"`
	Notes       int `json:"notes"`
	Attachments int `json:"attachments"`
	Users       int `json:"users"`
	Options     int `json:"options"`
}

// Export dumps every entity. Admin only.
func (s *Service) Export(ctx context.Context, user *models.User) (*ExportData, error) {
	data := &ExportData{Version: exportVersion}
	err := s.run(ctx, func() error {
		if err := requireAdmin(user); err != nil {
			return err
		}
		tasks, err := s.p.GetTasks(ctx, store.TaskQuery{})
		if err != nil {
			return err
		}
		tags, err := s.p.GetTags(ctx, store.TagQuery{})
		if err != nil {
			return err
		}
		notes, err := s.p.GetNotes(ctx, store.NoteQuery{})
		if err != nil {
			return err
		}
		atts, err := s.p.GetAttachments(ctx, store.AttachmentQuery{})
		if err != nil {
			return err
		}
		users, err := s.p.GetUsers(ctx, store.UserQuery{})
		if err != nil {
			return err
		}
		opts, err := s.p.GetOptions(ctx, store.OptionQuery{})
		if err != nil {
			return err
		}

		data.Tasks = make([]TaskExport, 0, len(tasks))
		for _, t := range tasks {
			data.Tasks = append(data.Tasks, exportTask(t))
		}
		data.Tags = make([]TagExport, 0, len(tags))
		for _, g := range tags {
			data.Tags = append(data.Tags, TagExport{ID: g.ID(), Value: g.Value(), Description: g.Description()})
		}
		data.Notes = make([]NoteExport, 0, len(notes))
		for _, n := range notes {
			data.Notes = append(data.Notes, NoteExport{ID: n.ID(), Content: n.Content(), Timestamp: n.Timestamp(), TaskID: ownerID(n.Task())})
		}
		data.Attachments = make([]AttachmentExport, 0, len(atts))
		for _, a := range atts {
			data.Attachments = append(data.Attachments, AttachmentExport{
				ID:          a.ID(),
				Path:        a.Path(),
				Filename:    a.Filename(),
				Description: a.Description(),
				Timestamp:   a.Timestamp(),
				TaskID:      ownerID(a.Task()),
			})
		}
		data.Users = make([]UserExport, 0, len(users))
		for _, u := range users {
			data.Users = append(data.Users, UserExport{ID: u.ID(), Email: u.Email(), HashedPassword: u.HashedPassword(), IsAdmin: u.IsAdmin()})
		}
		data.Options = make([]OptionExport, 0, len(opts))
		for _, o := range opts {
			data.Options = append(data.Options, OptionExport{Key: o.Key(), Value: o.Value()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func exportTask(t *models.Task) TaskExport {
	rec := TaskExport{
		ID:                      t.ID(),
		Summary:                 t.Summary(),
		Description:             t.Description(),
		IsDone:                  t.IsDone(),
		IsDeleted:               t.IsDeleted(),
		IsPublic:                t.IsPublic(),
		Deadline:                t.Deadline(),
		ExpectedDurationMinutes: t.ExpectedDurationMinutes(),
		OrderNum:                t.OrderNum(),
		ParentID:                ownerID(t.Parent()),
		TagIDs:                  idList(t.Tags()),
		UserIDs:                 idList(t.Users()),
		DependeeIDs:             idList(t.Dependees()),
		DependantIDs:            idList(t.Dependants()),
		PrioritizeBeforeIDs:     idList(t.PrioritizeBefore()),
		PrioritizeAfterIDs:      idList(t.PrioritizeAfter()),
		NoteIDs:                 idList(t.Notes()),
		AttachmentIDs:           idList(t.Attachments()),
	}
	if cost := t.ExpectedCost(); cost.Valid {
		rec.ExpectedCost = &cost.Decimal
	}
	return rec
}

func idList[T interface{ ID() int64 }](items []T) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID())
	}
	return out
}

func ownerID(t *models.Task) *int64 {
	if t == nil {
		return nil
	}
	id := t.ID()
	return &id
}

// Import recreates the entities in data with their original ids, in one
// commit. References may point into data or at entities already stored.
func (s *Service) Import(ctx context.Context, user *models.User, data *ExportData) (ImportResult, error) {
	var res ImportResult
	err := s.run(ctx, func() error {
		if err := requireAdmin(user); err != nil {
			return err
		}
		if data == nil {
			return models.InvalidArgumentf("import data is required")
		}
		imp := &importer{s: s, ctx: ctx, tasks: map[int64]*models.Task{}, tags: map[int64]*models.Tag{}, users: map[int64]*models.User{}}
		if err := imp.create(data); err != nil {
			return err
		}
		if err := imp.link(data); err != nil {
			return err
		}
		if err := imp.checkCycles(data); err != nil {
			return err
		}
		res = ImportResult{
			Tasks:       len(data.Tasks),
			Tags:        len(data.Tags),
			Notes:       len(data.Notes),
			Attachments: len(data.Attachments),
			Users:       len(data.Users),
			Options:     len(data.Options),
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	s.logger.Info("import complete", "tasks", res.Tasks, "tags", res.Tags, "users", res.Users)
	return res, nil
}

type importer struct {
	s     *Service
	ctx   context.Context
	tasks map[int64]*models.Task
	tags  map[int64]*models.Tag
	users map[int64]*models.User
}

func (imp *importer) create(data *ExportData) error {
	p := imp.s.p
	for _, r := range data.Tags {
		if err := checkImportID("tag", r.ID, imp.tags); err != nil {
			return err
		}
		tag := p.CreateTag(r.Value, r.Description)
		tag.SetID(r.ID)
		imp.tags[r.ID] = tag
		if err := p.Add(tag); err != nil {
			return err
		}
	}
	for _, r := range data.Users {
		if err := checkImportID("user", r.ID, imp.users); err != nil {
			return err
		}
		user := p.CreateUser(r.Email, r.HashedPassword, r.IsAdmin)
		user.SetID(r.ID)
		imp.users[r.ID] = user
		if err := p.Add(user); err != nil {
			return err
		}
	}
	for _, r := range data.Tasks {
		if err := checkImportID("task", r.ID, imp.tasks); err != nil {
			return err
		}
		task := p.CreateTask(r.Summary, r.Description)
		task.SetID(r.ID)
		task.SetIsDone(r.IsDone)
		task.SetIsDeleted(r.IsDeleted)
		task.SetIsPublic(r.IsPublic)
		task.SetDeadline(r.Deadline)
		task.SetExpectedDurationMinutes(r.ExpectedDurationMinutes)
		if r.ExpectedCost != nil {
			task.SetExpectedCost(decimal.NewNullDecimal(*r.ExpectedCost))
		}
		task.SetOrderNum(r.OrderNum)
		imp.tasks[r.ID] = task
		if err := p.Add(task); err != nil {
			return err
		}
	}
	for _, r := range data.Options {
		if err := p.Add(p.CreateOption(r.Key, r.Value)); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) link(data *ExportData) error {
	p := imp.s.p
	for _, r := range data.Tasks {
		task := imp.tasks[r.ID]
		if r.ParentID != nil {
			parent, err := imp.task(*r.ParentID)
			if err != nil {
				return err
			}
			task.SetParent(parent)
		}
		for _, id := range r.TagIDs {
			tag, err := imp.tag(id)
			if err != nil {
				return err
			}
			task.AddTag(tag)
		}
		for _, id := range r.UserIDs {
			user, err := imp.user(id)
			if err != nil {
				return err
			}
			task.AddUser(user)
		}
		for _, id := range r.DependeeIDs {
			other, err := imp.task(id)
			if err != nil {
				return err
			}
			task.AddDependee(other)
		}
		for _, id := range r.PrioritizeBeforeIDs {
			other, err := imp.task(id)
			if err != nil {
				return err
			}
			task.AddPrioritizeBefore(other)
		}
	}
	for _, r := range data.Notes {
		if r.ID <= 0 {
			return models.InvalidArgumentf("note id must be positive")
		}
		note := p.CreateNote(r.Content)
		note.SetID(r.ID)
		note.SetTimestamp(r.Timestamp)
		if r.TaskID != nil {
			task, err := imp.task(*r.TaskID)
			if err != nil {
				return err
			}
			note.SetTask(task)
		}
		if err := p.Add(note); err != nil {
			return err
		}
	}
	for _, r := range data.Attachments {
		if r.ID <= 0 {
			return models.InvalidArgumentf("attachment id must be positive")
		}
		att := p.CreateAttachment(r.Path, r.Filename, r.Description)
		att.SetID(r.ID)
		att.SetTimestamp(r.Timestamp)
		if r.TaskID != nil {
			task, err := imp.task(*r.TaskID)
			if err != nil {
				return err
			}
			att.SetTask(task)
		}
		if err := p.Add(att); err != nil {
			return err
		}
	}
	return nil
}

// checkCycles rejects imported parent, dependency and prioritization edges
// that close a loop, including loops through tasks already stored.
func (imp *importer) checkCycles(data *ExportData) error {
	for _, r := range data.Tasks {
		task := imp.tasks[r.ID]
		if onParentChain(task, task.Parent()) {
			return models.Conflictf("import: task %d is its own ancestor", r.ID)
		}
		for _, other := range task.Dependees() {
			if reaches(other, task, (*models.Task).Dependees) {
				return models.Conflictf("import: dependency cycle through task %d", r.ID)
			}
		}
		for _, other := range task.PrioritizeBefore() {
			if reaches(other, task, (*models.Task).PrioritizeBefore) {
				return models.Conflictf("import: prioritization cycle through task %d", r.ID)
			}
		}
	}
	return nil
}

func checkImportID[T any](kind string, id int64, seen map[int64]T) error {
	if id <= 0 {
		return models.InvalidArgumentf("%s id must be positive", kind)
	}
	if _, ok := seen[id]; ok {
		return models.Conflictf("duplicate %s id %d in import", kind, id)
	}
	return nil
}

func (imp *importer) task(id int64) (*models.Task, error) {
	if t, ok := imp.tasks[id]; ok {
		return t, nil
	}
	t, err := imp.s.p.GetTask(imp.ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, models.InvalidArgumentf("import references unknown task %d", id)
	}
	return t, nil
}

func (imp *importer) tag(id int64) (*models.Tag, error) {
	if g, ok := imp.tags[id]; ok {
		return g, nil
	}
	g, err := imp.s.p.GetTag(imp.ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, models.InvalidArgumentf("import references unknown tag %d", id)
	}
	return g, nil
}

func (imp *importer) user(id int64) (*models.User, error) {
	if u, ok := imp.users[id]; ok {
		return u, nil
	}
	u, err := imp.s.p.GetUser(imp.ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, models.InvalidArgumentf("import references unknown user %d", id)
	}
	return u, nil
}

// EncodeExport writes data in format.
func EncodeExport(w io.Writer, format models.ExportFormat, data *ExportData) error {
	switch format {
	case models.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case models.FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return models.InvalidArgumentf("unsupported export format %q", format)
}

// DecodeExport reads data written by EncodeExport.
func DecodeExport(r io.Reader, format models.ExportFormat) (*ExportData, error) {
	var data ExportData
	switch format {
	case models.FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&data); err != nil {
			return nil, models.InvalidArgumentf("decode yaml: %v", err)
		}
	case models.FormatJSON, "":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&data); err != nil {
			return nil, models.InvalidArgumentf("decode json: %v", err)
		}
	default:
		return nil, models.InvalidArgumentf("unsupported export format %q", format)
	}
	if data.Version > exportVersion {
		return nil, models.InvalidArgumentf("export version %d is newer than supported version %d", data.Version, exportVersion)
	}
	return &data, nil
}

func (r ImportResult) String() string {
	return fmt.Sprintf("%d tasks, %d tags, %d notes, %d attachments, %d users, %d options",
		r.Tasks, r.Tags, r.Notes, r.Attachments, r.Users, r.Options)
}
