package store

import (
	"context"
	"fmt"

	"tudor/internal/models"
)

// GetTask returns the committed task with id, or nil when none exists.
func (p *Persistence) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	if id == 0 {
		return nil, models.InvalidArgumentf("task id is required")
	}
	return getAs[*models.Task](ctx, p, Ref{Kind: models.KindTask, ID: id})
}

func (p *Persistence) GetTag(ctx context.Context, id int64) (*models.Tag, error) {
	if id == 0 {
		return nil, models.InvalidArgumentf("tag id is required")
	}
	return getAs[*models.Tag](ctx, p, Ref{Kind: models.KindTag, ID: id})
}

func (p *Persistence) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	if id == 0 {
		return nil, models.InvalidArgumentf("note id is required")
	}
	return getAs[*models.Note](ctx, p, Ref{Kind: models.KindNote, ID: id})
}

func (p *Persistence) GetAttachment(ctx context.Context, id int64) (*models.Attachment, error) {
	if id == 0 {
		return nil, models.InvalidArgumentf("attachment id is required")
	}
	return getAs[*models.Attachment](ctx, p, Ref{Kind: models.KindAttachment, ID: id})
}

func (p *Persistence) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if id == 0 {
		return nil, models.InvalidArgumentf("user id is required")
	}
	return getAs[*models.User](ctx, p, Ref{Kind: models.KindUser, ID: id})
}

func (p *Persistence) GetOption(ctx context.Context, key string) (*models.Option, error) {
	if key == "" {
		return nil, models.InvalidArgumentf("option key is required")
	}
	return getAs[*models.Option](ctx, p, Ref{Kind: models.KindOption, Key: key})
}

// GetTagByValue returns the committed tag with value, or nil.
func (p *Persistence) GetTagByValue(ctx context.Context, value string) (*models.Tag, error) {
	tags, err := p.GetTags(ctx, TagQuery{Value: value, Limit: Int(1)})
	if err != nil || len(tags) == 0 {
		return nil, err
	}
	return tags[0], nil
}

// GetUserByEmail returns the committed user with email, or nil.
func (p *Persistence) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := p.GetUsers(ctx, UserQuery{Email: email, Limit: Int(1)})
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

// GetTasks returns the committed tasks matching q. Filters are evaluated
// against committed state.
func (p *Persistence) GetTasks(ctx context.Context, q TaskQuery) ([]*models.Task, error) {
	ids, err := p.queryTasks(ctx, q)
	if err != nil {
		return nil, err
	}
	return loadAll[*models.Task](ctx, p, models.KindTask, ids)
}

func (p *Persistence) CountTasks(ctx context.Context, q TaskQuery) (int, error) {
	ids, err := p.queryTasks(ctx, q)
	return len(ids), err
}

// GetPaginatedTasks returns page pageNum (1-based) of the tasks matching q.
// Non-positive pageNum and perPage fall back to 1 and 20.
func (p *Persistence) GetPaginatedTasks(ctx context.Context, q TaskQuery, pageNum, perPage int) (*Pager, error) {
	ids, err := p.queryTasks(ctx, q)
	if err != nil {
		return nil, err
	}
	pager, page := newPager(ids, pageNum, perPage)
	pager.Items, err = loadAll[*models.Task](ctx, p, models.KindTask, page)
	if err != nil {
		return nil, err
	}
	return pager, nil
}

func (p *Persistence) queryTasks(ctx context.Context, q TaskQuery) ([]int64, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return p.backend.QueryTasks(ctx, q)
}

func (p *Persistence) GetTags(ctx context.Context, q TagQuery) ([]*models.Tag, error) {
	ids, err := p.backend.QueryTags(ctx, q)
	if err != nil {
		return nil, err
	}
	return loadAll[*models.Tag](ctx, p, models.KindTag, ids)
}

func (p *Persistence) CountTags(ctx context.Context, q TagQuery) (int, error) {
	ids, err := p.backend.QueryTags(ctx, q)
	return len(ids), err
}

func (p *Persistence) GetNotes(ctx context.Context, q NoteQuery) ([]*models.Note, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ids, err := p.backend.QueryNotes(ctx, q)
	if err != nil {
		return nil, err
	}
	return loadAll[*models.Note](ctx, p, models.KindNote, ids)
}

func (p *Persistence) CountNotes(ctx context.Context, q NoteQuery) (int, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	ids, err := p.backend.QueryNotes(ctx, q)
	return len(ids), err
}

func (p *Persistence) GetAttachments(ctx context.Context, q AttachmentQuery) ([]*models.Attachment, error) {
	ids, err := p.backend.QueryAttachments(ctx, q)
	if err != nil {
		return nil, err
	}
	return loadAll[*models.Attachment](ctx, p, models.KindAttachment, ids)
}

func (p *Persistence) CountAttachments(ctx context.Context, q AttachmentQuery) (int, error) {
	ids, err := p.backend.QueryAttachments(ctx, q)
	return len(ids), err
}

func (p *Persistence) GetUsers(ctx context.Context, q UserQuery) ([]*models.User, error) {
	ids, err := p.backend.QueryUsers(ctx, q)
	if err != nil {
		return nil, err
	}
	return loadAll[*models.User](ctx, p, models.KindUser, ids)
}

func (p *Persistence) CountUsers(ctx context.Context, q UserQuery) (int, error) {
	ids, err := p.backend.QueryUsers(ctx, q)
	return len(ids), err
}

func (p *Persistence) GetOptions(ctx context.Context, q OptionQuery) ([]*models.Option, error) {
	keys, err := p.backend.QueryOptions(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Option, 0, len(keys))
	for _, key := range keys {
		o, err := getAs[*models.Option](ctx, p, Ref{Kind: models.KindOption, Key: key})
		if err != nil {
			return nil, err
		}
		if o != nil {
			out = append(out, o)
		}
	}
	return out, nil
}

func (p *Persistence) CountOptions(ctx context.Context, q OptionQuery) (int, error) {
	keys, err := p.backend.QueryOptions(ctx, q)
	return len(keys), err
}

func getAs[T models.Entity](ctx context.Context, p *Persistence, ref Ref) (T, error) {
	var zero T
	e, err := p.get(ctx, ref)
	if err != nil || e == nil {
		return zero, err
	}
	v, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("identity map holds %T for %s", e, ref)
	}
	return v, nil
}

func loadAll[T models.Entity](ctx context.Context, p *Persistence, kind models.Kind, ids []int64) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := getAs[T](ctx, p, Ref{Kind: kind, ID: id})
		if err != nil {
			return nil, err
		}
		if e := models.Entity(v); !isNilEntity(e) {
			out = append(out, v)
		}
	}
	return out, nil
}
