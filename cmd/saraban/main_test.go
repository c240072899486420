package main

import (
	"fmt"
	"strings"
	"testing"

	"saraban/internal/client"
	"saraban/internal/model"
)

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&client.APIError{StatusCode: 401, Message: "missing token"}, "saraban login"},
		{&client.APIError{StatusCode: 403, Message: "token expired"}, "saraban login"},
		{fmt.Errorf("create: %w", &client.APIError{StatusCode: 409, Message: "duplicate"}), "Conflict:"},
		{fmt.Errorf("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		if got := describeError(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("describeError(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}

func TestProjectTable(t *testing.T) {
	out := projectTable([]model.Project{
		{ID: 1, Code: "GS-25-P001", Name: "Road", Status: "ACTIVE", Budget: 1500, StartDate: model.NewDate(2025, 1, 10)},
	})
	for _, want := range []string{"GS-25-P001", "Road", "1500.00", "2025-01-10"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("12"); err != nil || id != 12 {
		t.Fatalf("parseID(12) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "x"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"login"}, {"logout"}, {"projects", "list"}, {"projects", "create"}, {"projects", "delete"},
		{"notifications", "watch"}, {"notifications", "read"}, {"stats"}, {"migrate", "status"},
		{"features", "note"}, {"logs"}, {"note"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not registered (err %v)", path, err)
		}
	}
}
