package model

import (
	"strings"
	"time"
)

const (
	FeaturePending    = "PENDING"
	FeatureInProgress = "IN_PROGRESS"
	FeatureCompleted  = "COMPLETED"
	FeatureDelayed    = "DELAYED"
)

// NormalizeFeatureStatus upper-cases s and reports whether it is one of the
// four timeline statuses. Empty input maps to PENDING.
func NormalizeFeatureStatus(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "":
		return FeaturePending, true
	case FeaturePending, FeatureInProgress, FeatureCompleted, FeatureDelayed:
		return s, true
	}
	return "", false
}

type ProjectFeature struct {
	ID        int       `json:"id"`
	ProjectID int       `json:"project_id"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	NextList  string    `json:"next_list"`
	Status    string    `json:"status"`
	StartDate Date      `json:"start_date"`
	DueDate   Date      `json:"due_date"`
	Remark    string    `json:"remark"`
	NoteBy    string    `json:"note_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FeatureInput struct {
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	NextList  string `json:"next_list"`
	Status    string `json:"status"`
	StartDate Date   `json:"start_date"`
	DueDate   Date   `json:"due_date"`
	Remark    string `json:"remark"`
	NoteBy    string `json:"note_by"`
}

type FeatureNote struct {
	ID             int       `json:"id"`
	FeatureID      int       `json:"feature_id"`
	Content        string    `json:"content"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	Attachment     *string   `json:"attachment"`
	AttachmentType *string   `json:"attachment_type"`
}
