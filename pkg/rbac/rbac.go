package rbac

import "slices"

const (
	PermissionReadProject   = "project:read"
	PermissionWriteProject  = "project:write"
	PermissionDeleteProject = "project:delete"
	PermissionWriteFeature  = "feature:write"
	PermissionReadAudit     = "audit:read"

	// Admin only.
	PermissionReplayOutbox = "outbox:replay"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadProject,
		PermissionWriteProject,
		PermissionDeleteProject,
		PermissionWriteFeature,
		PermissionReadAudit,
	},
	RoleAdmin: {
		PermissionReadProject,
		PermissionWriteProject,
		PermissionDeleteProject,
		PermissionWriteFeature,
		PermissionReadAudit,
		PermissionReplayOutbox,
	},
}

// HasPermission reports whether role grants permission. Unknown roles have
// no permissions.
func HasPermission(role, permission string) bool {
	return slices.Contains(rolePermissions[role], permission)
}

// CheckPermission is HasPermission returning an error.
func CheckPermission(userID int, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

type PermissionDeniedError struct {
	UserID     int
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
