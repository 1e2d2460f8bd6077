package main

import (
	"context"
	"errors"
	"net"

	"tudor/internal/api"
	"tudor/internal/models"
)

const conflictHint = "hint: the change clashes with existing data; export first to inspect it."

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized":
			lines = append(lines, "hint: set TUDOR_EMAIL and TUDOR_PASSWORD to a valid account.")
		case "forbidden":
			lines = append(lines, "hint: the account in TUDOR_EMAIL is not authorized for this task or action.")
		case "resource_exhausted":
			lines = append(lines, "hint: too many requests or failed logins; wait a few minutes and retry.")
		}
		if errors.Is(apiErr, models.ErrConflict) {
			lines = append(lines, conflictHint)
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify TUDOR_API_URL points to a tudor server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	switch {
	case errors.Is(err, models.ErrConflict):
		lines = append(lines, conflictHint)
	case errors.Is(err, context.DeadlineExceeded):
		lines = append(lines, "hint: request timed out; check server health or increase TUDOR_HTTP_TIMEOUT.")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a tudor server is running at TUDOR_API_URL.",
			"hint: start local server manually with: tudor srv",
		)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
