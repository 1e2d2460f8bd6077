package server

import (
	"tudor/internal/api"
	"tudor/internal/models"
)

func toTaskResponse(t *models.Task) api.TaskResponse {
	resp := api.TaskResponse{
		ID:                      t.ID(),
		Summary:                 t.Summary(),
		Description:             t.Description(),
		IsDone:                  t.IsDone(),
		IsDeleted:               t.IsDeleted(),
		IsPublic:                t.IsPublic(),
		Deadline:                t.Deadline(),
		ExpectedDurationMinutes: t.ExpectedDurationMinutes(),
		OrderNum:                t.OrderNum(),
		ChildIDs:                taskIDs(t.Children()),
		Tags:                    tagValues(t.Tags()),
		UserIDs:                 userIDs(t.Users()),
		DependeeIDs:             taskIDs(t.Dependees()),
		PrioritizeBeforeIDs:     taskIDs(t.PrioritizeBefore()),
	}
	if cost := t.ExpectedCost(); cost.Valid {
		resp.ExpectedCost = &cost.Decimal
	}
	if parentID := t.ParentID(); parentID != 0 {
		resp.ParentID = &parentID
	}
	return resp
}

func toTaskResponses(tasks []*models.Task) []api.TaskResponse {
	out := make([]api.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

func taskIDs(tasks []*models.Task) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID())
	}
	return out
}

func userIDs(users []*models.User) []int64 {
	out := make([]int64, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID())
	}
	return out
}

func tagValues(tags []*models.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, g := range tags {
		out = append(out, g.Value())
	}
	return out
}

func toTagResponse(g *models.Tag) api.TagResponse {
	return api.TagResponse{ID: g.ID(), Value: g.Value(), Description: g.Description()}
}

func toUserResponse(u *models.User) api.UserResponse {
	return api.UserResponse{ID: u.ID(), Email: u.Email(), IsAdmin: u.IsAdmin()}
}

func toNoteResponse(n *models.Note) api.NoteResponse {
	resp := api.NoteResponse{ID: n.ID(), Content: n.Content(), Timestamp: n.Timestamp()}
	if id := n.TaskID(); id != 0 {
		resp.TaskID = &id
	}
	return resp
}

func toAttachmentResponse(a *models.Attachment) api.AttachmentResponse {
	resp := api.AttachmentResponse{
		ID:          a.ID(),
		Path:        a.Path(),
		Filename:    a.Filename(),
		Description: a.Description(),
		Timestamp:   a.Timestamp(),
	}
	if id := a.TaskID(); id != 0 {
		resp.TaskID = &id
	}
	return resp
}
