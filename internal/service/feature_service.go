package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"saraban/internal/apperr"
	"saraban/internal/audit"
	"saraban/internal/model"
	"saraban/internal/storage"
)

type FeatureStore interface {
	ListByProject(ctx context.Context, projectID int) ([]model.ProjectFeature, error)
	Get(ctx context.Context, id int) (*model.ProjectFeature, error)
	Insert(ctx context.Context, f *model.ProjectFeature) error
	Update(ctx context.Context, f *model.ProjectFeature) error
	Delete(ctx context.Context, id int) (int, error)
}

type NoteStore interface {
	ListByFeature(ctx context.Context, featureID int) ([]model.FeatureNote, error)
	Insert(ctx context.Context, n *model.FeatureNote) error
}

type FileStore interface {
	Save(originalName, contentType string, r io.Reader) (*storage.Saved, error)
	Remove(name string) error
}

// Upload is an attachment received with a note.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// FeatureService manages project timelines. Every change is written to the
// owning project's history.
type FeatureService struct {
	features FeatureStore
	notes    NoteStore
	files    FileStore
	audit    AuditRecorder
	logger   *zap.Logger
}

func NewFeatureService(features FeatureStore, notes NoteStore, files FileStore, recorder AuditRecorder, logger *zap.Logger) *FeatureService {
	return &FeatureService{
		features: features,
		notes:    notes,
		files:    files,
		audit:    recorder,
		logger:   logger,
	}
}

func (s *FeatureService) List(ctx context.Context, projectID int) ([]model.ProjectFeature, error) {
	return s.features.ListByProject(ctx, projectID)
}

func (s *FeatureService) Create(ctx context.Context, actor string, projectID int, in model.FeatureInput) (*model.ProjectFeature, error) {
	f, err := featureFromInput(in)
	if err != nil {
		return nil, err
	}
	f.ProjectID = projectID
	if f.NoteBy == "" {
		f.NoteBy = actor
	}
	if err := s.features.Insert(ctx, f); err != nil {
		return nil, err
	}
	if err := s.audit.Record(ctx, audit.Entry{
		EntityID: projectID,
		Action:   model.ActionUpdate,
		Actor:    actor,
		Details:  fmt.Sprintf("Added timeline item %q (%s)", f.Title, f.Status),
	}); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FeatureService) Update(ctx context.Context, actor string, id int, in model.FeatureInput) (*model.ProjectFeature, error) {
	before, err := s.features.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f, err := featureFromInput(in)
	if err != nil {
		return nil, err
	}
	f.ID = id
	if err := s.features.Update(ctx, f); err != nil {
		return nil, err
	}

	details := fmt.Sprintf("Updated timeline item %q", f.Title)
	if before.Status != f.Status {
		details += fmt.Sprintf(": status %s -> %s", before.Status, f.Status)
	}
	if err := s.audit.Record(ctx, audit.Entry{
		EntityID: f.ProjectID,
		Action:   model.ActionUpdate,
		Actor:    actor,
		Details:  details,
	}); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FeatureService) Delete(ctx context.Context, actor string, id int) error {
	f, err := s.features.Get(ctx, id)
	if err != nil {
		return err
	}
	projectID, err := s.features.Delete(ctx, id)
	if err != nil {
		return err
	}
	return s.audit.Record(ctx, audit.Entry{
		EntityID: projectID,
		Action:   model.ActionUpdate,
		Actor:    actor,
		Details:  fmt.Sprintf("Removed timeline item %q", f.Title),
	})
}

func (s *FeatureService) Notes(ctx context.Context, featureID int) ([]model.FeatureNote, error) {
	return s.notes.ListByFeature(ctx, featureID)
}

// AddNote stores a note and its optional attachment. Either content or an
// attachment is required.
func (s *FeatureService) AddNote(ctx context.Context, actor string, featureID int, content string, up *Upload) (*model.FeatureNote, error) {
	content = strings.TrimSpace(content)
	if content == "" && up == nil {
		return nil, apperr.Validation("content or file is required")
	}

	feature, err := s.features.Get(ctx, featureID)
	if err != nil {
		return nil, err
	}

	n := &model.FeatureNote{
		FeatureID: featureID,
		Content:   content,
		CreatedBy: actor,
	}
	var saved *storage.Saved
	if up != nil {
		saved, err = s.files.Save(up.Name, up.ContentType, up.Body)
		if err != nil {
			return nil, err
		}
		n.Attachment = &saved.PublicPath
		if saved.ContentType != "" {
			ct := saved.ContentType
			n.AttachmentType = &ct
		}
		s.logger.Info("Attachment stored",
			zap.Int("feature_id", featureID),
			zap.String("file", saved.Name),
			zap.Int64("size", saved.Size),
		)
	}

	if err := s.notes.Insert(ctx, n); err != nil {
		if saved != nil {
			if rmErr := s.files.Remove(saved.Name); rmErr != nil {
				s.logger.Warn("Failed to remove orphaned attachment",
					zap.String("file", saved.Name),
					zap.Error(rmErr),
				)
			}
		}
		return nil, err
	}

	details := fmt.Sprintf("Note on %q: %s", feature.Title, content)
	if n.Attachment != nil {
		details += " [attachment " + *n.Attachment + "]"
	}
	if err := s.audit.Record(ctx, audit.Entry{
		EntityID: feature.ProjectID,
		Action:   model.ActionNote,
		Actor:    actor,
		Details:  details,
	}); err != nil {
		return nil, err
	}
	return n, nil
}

func featureFromInput(in model.FeatureInput) (*model.ProjectFeature, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	st, ok := model.NormalizeFeatureStatus(in.Status)
	if !ok {
		return nil, apperr.Validation("status must be one of PENDING, IN_PROGRESS, COMPLETED, DELAYED")
	}
	if !in.StartDate.IsZero() && !in.DueDate.IsZero() && in.DueDate.Before(in.StartDate.Time) {
		return nil, apperr.Validation("due_date is before start_date")
	}
	return &model.ProjectFeature{
		Title:     title,
		Detail:    in.Detail,
		NextList:  in.NextList,
		Status:    st,
		StartDate: in.StartDate,
		DueDate:   in.DueDate,
		Remark:    in.Remark,
		NoteBy:    strings.TrimSpace(in.NoteBy),
	}, nil
}
