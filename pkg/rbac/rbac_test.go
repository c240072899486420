package rbac

import (
	"errors"
	"testing"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role, perm string
		want       bool
	}{
		{RoleUser, PermissionWriteProject, true},
		{RoleUser, PermissionReplayOutbox, false},
		{RoleAdmin, PermissionReplayOutbox, true},
		{"guest", PermissionReadProject, false},
		{"", PermissionReadProject, false},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestCheckPermission(t *testing.T) {
	err := CheckPermission(7, RoleUser, PermissionReplayOutbox)
	var denied *PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected PermissionDeniedError, got %v", err)
	}
	if denied.UserID != 7 || denied.Permission != PermissionReplayOutbox {
		t.Fatalf("unexpected error fields %+v", denied)
	}
	if err := CheckPermission(1, RoleAdmin, PermissionReplayOutbox); err != nil {
		t.Fatalf("admin should pass: %v", err)
	}
}
