package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"tudor/internal/api"
	"tudor/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeTaskList(tasks []api.TaskResponse) error {
	for _, task := range tasks {
		if err := writePlain("%s\n", formatTaskLine(task)); err != nil {
			return err
		}
	}
	return nil
}

func writeTaskDetail(task api.TaskResponse) error {
	lines := []string{
		fmt.Sprintf("id: %d", task.ID),
		fmt.Sprintf("summary: %s", task.Summary),
		fmt.Sprintf("done: %t", task.IsDone),
		fmt.Sprintf("public: %t", task.IsPublic),
		fmt.Sprintf("order_num: %d", task.OrderNum),
	}

	if task.IsDeleted {
		lines = append(lines, "deleted: true")
	}
	if task.ParentID != nil {
		lines = append(lines, fmt.Sprintf("parent_id: %d", *task.ParentID))
	}
	if task.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", task.Description))
	}
	if task.Deadline != nil {
		lines = append(lines, fmt.Sprintf("deadline: %s", formatTime(*task.Deadline)))
	}
	if task.ExpectedDurationMinutes != nil {
		lines = append(lines, fmt.Sprintf("expected_duration: %dm", *task.ExpectedDurationMinutes))
	}
	if task.ExpectedCost != nil {
		lines = append(lines, fmt.Sprintf("expected_cost: %s", task.ExpectedCost.StringFixed(2)))
	}
	if len(task.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("tags: %s", strings.Join(task.Tags, ", ")))
	}
	if len(task.ChildIDs) > 0 {
		lines = append(lines, fmt.Sprintf("children: %s", joinIDs(task.ChildIDs)))
	}
	if len(task.DependeeIDs) > 0 {
		lines = append(lines, fmt.Sprintf("depends_on: %s", joinIDs(task.DependeeIDs)))
	}
	if len(task.PrioritizeBeforeIDs) > 0 {
		lines = append(lines, fmt.Sprintf("before: %s", joinIDs(task.PrioritizeBeforeIDs)))
	}

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatTaskLine(task api.TaskResponse) string {
	mark := "○"
	if task.IsDone {
		mark = "✓"
	}
	line := fmt.Sprintf("%s %d - %s", mark, task.ID, task.Summary)
	if len(task.Tags) > 0 {
		line += " [" + strings.Join(task.Tags, ", ") + "]"
	}
	if task.Deadline != nil {
		line += " (due " + task.Deadline.UTC().Format(time.DateOnly) + ")"
	}
	return line
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, ", ")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
