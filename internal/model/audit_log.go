package model

import "time"

const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionNote   = "NOTE"
)

// AuditLog is one append-only history row. EntityID references a project
// but is not enforced, so ProjectCode and ProjectName are nil once the
// project has been deleted.
type AuditLog struct {
	ID          int64     `json:"id"`
	EntityID    int       `json:"entity_id"`
	Action      string    `json:"action"`
	Actor       string    `json:"actor"`
	Details     string    `json:"details"`
	Timestamp   time.Time `json:"timestamp"`
	ProjectCode *string   `json:"project_code,omitempty"`
	ProjectName *string   `json:"project_name,omitempty"`
}
