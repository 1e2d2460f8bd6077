package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tudor/internal/api"
	"tudor/internal/config"
)

func newAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		description string
		parentID    int64
		public      bool
		deadline    string
		duration    int
		cost        string
		tags        string
	)

	cmd := &cobra.Command{
		Use:   "add <summary>",
		Short: "Create a task",
		Args:  requireAtLeastArgs(1, "summary is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.TaskCreateRequest{
				Summary:     strings.Join(args, " "),
				Description: description,
				ParentID:    parentID,
				IsPublic:    public,
				Tags:        splitCommaList(tags),
			}
			if deadline != "" {
				t, err := parseDeadline(deadline)
				if err != nil {
					return err
				}
				req.Deadline = &t
			}
			if cmd.Flags().Changed("duration") {
				req.ExpectedDurationMinutes = &duration
			}
			if cost != "" {
				d, err := decimal.NewFromString(cost)
				if err != nil {
					return fmt.Errorf("invalid --cost %q", cost)
				}
				req.ExpectedCost = &d
			}

			return withClient(cfg, func(client *api.Client) error {
				task, err := client.CreateTask(cmd.Context(), req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(task)
				}
				return writePlain("created task %d\n", task.ID)
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "parent task id")
	cmd.Flags().BoolVar(&public, "public", false, "make the task visible to everyone")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().IntVar(&duration, "duration", 0, "expected duration in minutes")
	cmd.Flags().StringVar(&cost, "cost", "", "expected cost")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	return cmd
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		parentID    int64
		topLevel    bool
		showDone    bool
		showDeleted bool
		search      string
		orderBy     string
		page        int
		perPage     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if parentID > 0 {
				query.Set("parent_id", strconv.FormatInt(parentID, 10))
			}
			if topLevel {
				query.Set("top_level", "true")
			}
			if showDone {
				query.Set("show_done", "true")
			}
			if showDeleted {
				query.Set("show_deleted", "true")
			}
			setIfNotEmpty(query, "q", search)
			setIfNotEmpty(query, "order_by", orderBy)
			if page > 0 {
				query.Set("page", strconv.Itoa(page))
			}
			if perPage > 0 {
				query.Set("per_page", strconv.Itoa(perPage))
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListTasks(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				if err := writeTaskList(resp.Tasks); err != nil {
					return err
				}
				if resp.NumPages > 1 {
					return writePlain("page %d of %d (%d tasks)\n", resp.PageNum, resp.NumPages, resp.Total)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&parentID, "parent", 0, "only children of this task")
	cmd.Flags().BoolVar(&topLevel, "top-level", false, "only tasks without a parent")
	cmd.Flags().BoolVar(&showDone, "done", false, "include done tasks")
	cmd.Flags().BoolVar(&showDeleted, "deleted", false, "include deleted tasks")
	cmd.Flags().StringVarP(&search, "search", "s", "", "search summary and description")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "sort keys, e.g. deadline:asc,order_num:desc")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "tasks per page")
	return cmd
}

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  requireExactlyArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				task, err := client.GetTask(cmd.Context(), id)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(task)
				}
				return writeTaskDetail(task)
			})
		},
	}
}

func newDoneCmd(cfg *config.Config, jsonOutput *bool, done bool) *cobra.Command {
	use, short := "done", "Mark tasks done"
	if !done {
		use, short = "undone", "Reopen done tasks"
	}

	return &cobra.Command{
		Use:   use + " <id> [<id>...]",
		Short: short,
		Args:  requireAtLeastArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseTaskIDs(args)
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				updated := make([]api.TaskResponse, 0, len(ids))
				for _, id := range ids {
					task, err := client.SetDone(cmd.Context(), id, done)
					if err != nil {
						return fmt.Errorf("task %d: %w", id, err)
					}
					updated = append(updated, task)
				}
				if *jsonOutput {
					return writeJSON(updated)
				}
				return writeTaskList(updated)
			})
		},
	}
}

func newMoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		after       int64
		showDone    bool
		showDeleted bool
	)

	cmd := &cobra.Command{
		Use:   "move <id> [up|down|top|bottom]",
		Short: "Reorder a task among its siblings",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			if (len(args) == 2) == (after > 0) {
				return fmt.Errorf("give either a direction or --after")
			}

			return withClient(cfg, func(client *api.Client) error {
				if after > 0 {
					if err := client.MoveAfter(cmd.Context(), id, after); err != nil {
						return err
					}
				} else {
					query := url.Values{}
					if showDone {
						query.Set("show_done", "true")
					}
					if showDeleted {
						query.Set("show_deleted", "true")
					}
					if err := client.Move(cmd.Context(), id, args[1], query); err != nil {
						return err
					}
				}
				task, err := client.GetTask(cmd.Context(), id)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(task)
				}
				return writePlain("task %d now has order %d\n", task.ID, task.OrderNum)
			})
		},
	}

	cmd.Flags().Int64Var(&after, "after", 0, "place the task directly below this sibling")
	cmd.Flags().BoolVar(&showDone, "done", false, "count done siblings when moving")
	cmd.Flags().BoolVar(&showDeleted, "deleted", false, "count deleted siblings when moving")
	return cmd
}

func newUpdateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		summary     string
		description string
		parentID    int64
		public      bool
		deadline    string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change task fields",
		Args:  requireExactlyArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			req := api.TaskUpdateRequest{}
			flags := cmd.Flags()
			if flags.Changed("summary") {
				req["summary"] = summary
			}
			if flags.Changed("description") {
				req["description"] = description
			}
			if flags.Changed("public") {
				req["is_public"] = public
			}
			if flags.Changed("parent") {
				if parentID > 0 {
					req["parent"] = parentID
				} else {
					req["parent"] = nil
				}
			}
			if flags.Changed("deadline") {
				if deadline == "" {
					req["deadline"] = nil
				} else {
					t, err := parseDeadline(deadline)
					if err != nil {
						return err
					}
					req["deadline"] = t.Format(time.RFC3339)
				}
			}
			if len(req) == 0 {
				return fmt.Errorf("nothing to update")
			}

			return withClient(cfg, func(client *api.Client) error {
				task, err := client.UpdateTask(cmd.Context(), id, req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(task)
				}
				return writeTaskDetail(task)
			})
		},
	}

	cmd.Flags().StringVar(&summary, "summary", "", "new summary")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "new parent id (0 for top level)")
	cmd.Flags().BoolVar(&public, "public", false, "make the task public")
	cmd.Flags().StringVar(&deadline, "deadline", "", "new deadline; empty clears it")
	return cmd
}

func parseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid deadline %q (want RFC3339 or YYYY-MM-DD)", raw)
}

func setIfNotEmpty(values url.Values, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	values.Set(key, value)
}

func splitCommaList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
