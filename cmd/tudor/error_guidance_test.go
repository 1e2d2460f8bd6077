package main

import (
	"fmt"
	"net"
	"slices"
	"testing"

	"tudor/internal/api"
	"tudor/internal/models"
)

func TestFormatCLIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "network",
			err:  &net.DNSError{Err: "dial tcp: connection refused", Name: "127.0.0.1", IsTemporary: true},
			want: "hint: start local server manually with: tudor srv",
		},
		{
			name: "unknown service",
			err:  &api.APIError{Status: 404, Message: "api error: 404 Not Found"},
			want: "hint: verify TUDOR_API_URL points to a tudor server.",
		},
		{
			name: "unauthorized",
			err:  &api.APIError{Status: 401, Code: "unauthorized", Message: "invalid credentials"},
			want: "hint: set TUDOR_EMAIL and TUDOR_PASSWORD to a valid account.",
		},
		{
			name: "throttled",
			err:  &api.APIError{Status: 429, Code: "resource_exhausted", Message: "too many failed logins"},
			want: "hint: too many requests or failed logins; wait a few minutes and retry.",
		},
		{
			name: "internal",
			err:  &api.APIError{Status: 500, Code: "internal", Message: "internal error"},
			want: "hint: server returned an internal error; check server logs for details.",
		},
		{
			name: "remote conflict",
			err:  &api.APIError{Status: 409, Code: "conflict", Message: "task 3 already exists"},
			want: "hint: the change clashes with existing data; export first to inspect it.",
		},
		{
			name: "local conflict",
			err:  fmt.Errorf("import: %w", models.Conflictf("task 3 already exists")),
			want: "hint: the change clashes with existing data; export first to inspect it.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := formatCLIError(tt.err)
			if lines[0] != tt.err.Error() {
				t.Fatalf("expected the error first, got %v", lines)
			}
			if !slices.Contains(lines, tt.want) {
				t.Fatalf("expected %q, got %v", tt.want, lines)
			}
		})
	}
}

func TestFormatCLIErrorNil(t *testing.T) {
	if lines := formatCLIError(nil); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}
