package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"saraban/internal/apperr"
	"saraban/internal/audit"
	"saraban/internal/model"
	"saraban/internal/projectcode"
	"saraban/internal/stats"
	"saraban/internal/status"
	"saraban/pkg/logger"
	"saraban/pkg/metrics"
)

const allocationAttempts = 3

type ProjectStore interface {
	List(ctx context.Context) ([]model.Project, error)
	Get(ctx context.Context, id int) (*model.Project, error)
	Codes(ctx context.Context) ([]string, error)
	Insert(ctx context.Context, p *model.Project) error
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id int) error
}

type SequenceAllocator interface {
	Next(ctx context.Context, yy, typeTag string, floor int) (int, error)
}

// AuditRecorder is implemented by *audit.Recorder.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
	Append(ctx context.Context, e audit.Entry) (*model.AuditLog, error)
}

type ProjectService struct {
	projects  ProjectStore
	sequences SequenceAllocator
	audit     AuditRecorder
	now       func() time.Time
	logger    *zap.Logger
}

func NewProjectService(projects ProjectStore, sequences SequenceAllocator, recorder AuditRecorder, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		projects:  projects,
		sequences: sequences,
		audit:     recorder,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *ProjectService) List(ctx context.Context) ([]model.Project, error) {
	return s.projects.List(ctx)
}

func (s *ProjectService) Get(ctx context.Context, id int) (*model.Project, error) {
	return s.projects.Get(ctx, id)
}

// Stats aggregates the dashboard counters over every stored project.
func (s *ProjectService) Stats(ctx context.Context) (stats.Stats, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return stats.Stats{}, err
	}
	return stats.Compute(projects), nil
}

// NextCode previews the code the generator would produce right now. Nothing
// is reserved.
func (s *ProjectService) NextCode(ctx context.Context, acronym, typeTag string) (string, error) {
	typeTag = projectcode.NormalizeTypeTag(typeTag)
	if !projectcode.ValidTypeTag(typeTag) {
		return "", apperr.Validation("unknown project type %q", typeTag)
	}
	codes, err := s.projects.Codes(ctx)
	if err != nil {
		return "", err
	}
	return projectcode.Generate(codes, acronym, typeTag, s.now().Year()), nil
}

// Create stores a new project. A caller supplied code must be a well-formed
// PREFIX-YY-TYPEnnn code with a known tag; it is stored as given and a
// collision surfaces as apperr.ErrDuplicateCode. Without a code the server
// allocates one from the (year, type) counter.
func (s *ProjectService) Create(ctx context.Context, actor string, in model.ProjectInput) (*model.Project, error) {
	p, err := projectFromInput(in)
	if err != nil {
		return nil, err
	}

	if code := strings.ToUpper(strings.TrimSpace(in.Code)); code != "" {
		if _, ok := projectcode.Parse(code); !ok {
			return nil, apperr.Validation("project code %q is not of the form PREFIX-YY-TYPEnnn", code)
		}
		p.Code = code
		if err := s.projects.Insert(ctx, p); err != nil {
			if errors.Is(err, apperr.ErrDuplicateCode) {
				metrics.IncrementCodeAllocation("client", "conflict")
			}
			return nil, err
		}
		metrics.IncrementCodeAllocation("client", "ok")
	} else if err := s.insertWithAllocatedCode(ctx, p, in.Acronym, in.TypeTag); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, audit.Entry{
		EntityID: p.ID,
		Action:   model.ActionCreate,
		Actor:    actor,
		Details:  fmt.Sprintf("Created project %s: %s", p.Code, p.Name),
	}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) insertWithAllocatedCode(ctx context.Context, p *model.Project, acronym, typeTag string) error {
	typeTag = projectcode.NormalizeTypeTag(typeTag)
	if !projectcode.ValidTypeTag(typeTag) {
		return apperr.Validation("unknown project type %q", typeTag)
	}
	acronym = projectcode.NormalizeAcronym(acronym)
	yy := projectcode.YearYY(s.now().Year())
	log := logger.WithTrace(ctx, s.logger)

	for attempt := 1; attempt <= allocationAttempts; attempt++ {
		codes, err := s.projects.Codes(ctx)
		if err != nil {
			return err
		}
		if bad := projectcode.Malformed(codes); len(bad) > 0 && attempt == 1 {
			log.Debug("Ignoring malformed project codes", zap.Strings("codes", bad))
		}

		seq, err := s.sequences.Next(ctx, yy, typeTag, projectcode.MaxSequence(codes, typeTag, yy))
		if err != nil {
			return err
		}
		p.Code = projectcode.Format(acronym, yy, typeTag, seq)

		err = s.projects.Insert(ctx, p)
		if err == nil {
			metrics.IncrementCodeAllocation(typeTag, "ok")
			return nil
		}
		if !errors.Is(err, apperr.ErrDuplicateCode) {
			return err
		}
		metrics.IncrementCodeAllocation(typeTag, "conflict")
		log.Warn("Allocated project code already taken, retrying",
			zap.String("code", p.Code),
			zap.Int("attempt", attempt),
		)
	}
	return fmt.Errorf("%w: gave up after %d attempts", apperr.ErrDuplicateCode, allocationAttempts)
}

// Update overwrites the mutable fields. The audit entry lists what changed.
func (s *ProjectService) Update(ctx context.Context, actor string, id int, in model.ProjectInput) (*model.Project, error) {
	before, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := projectFromInput(in)
	if err != nil {
		return nil, err
	}
	after.ID = id
	after.Code = before.Code

	if err := s.projects.Update(ctx, after); err != nil {
		return nil, err
	}

	details := fmt.Sprintf("Updated project %s", after.Code)
	if changes := diffProjects(before, after); len(changes) > 0 {
		details += ": " + strings.Join(changes, "; ")
	}
	if err := s.audit.Record(ctx, audit.Entry{
		EntityID: id,
		Action:   model.ActionUpdate,
		Actor:    actor,
		Details:  details,
	}); err != nil {
		return nil, err
	}
	return after, nil
}

// Delete removes the project. Its audit history is retained.
//
// Like Create and Update, Delete stores the change before recording it. A
// strict-mode audit failure is returned as apperr.ErrAuditNotRecorded with
// the change already applied.
func (s *ProjectService) Delete(ctx context.Context, actor string, id int) error {
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	return s.audit.Record(ctx, audit.Entry{
		EntityID: id,
		Action:   model.ActionDelete,
		Actor:    actor,
		Details:  fmt.Sprintf("Deleted project %s: %s", p.Code, p.Name),
	})
}

// AddLog appends a manual history entry. The default action is NOTE.
func (s *ProjectService) AddLog(ctx context.Context, actor string, projectID int, note, action string) (*model.AuditLog, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, apperr.Validation("note is required")
	}
	action = strings.ToUpper(strings.TrimSpace(action))
	if action == "" {
		action = model.ActionNote
	}
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.audit.Append(ctx, audit.Entry{
		EntityID: projectID,
		Action:   action,
		Actor:    actor,
		Details:  note,
	})
}

func projectFromInput(in model.ProjectInput) (*model.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if in.Budget.Float() < 0 {
		return nil, apperr.Validation("budget must not be negative")
	}
	st, err := status.Normalize(in.Status)
	if err != nil {
		return nil, err
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate.Time) {
		return nil, apperr.Validation("endDate is before startDate")
	}
	return &model.Project{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Owner:       strings.TrimSpace(in.Owner),
		Budget:      model.Budget(in.Budget.Float()),
		Status:      st,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}, nil
}

func diffProjects(before, after *model.Project) []string {
	var changes []string
	add := func(field, from, to string) {
		if from != to {
			changes = append(changes, fmt.Sprintf("%s: %s -> %s", field, orDash(from), orDash(to)))
		}
	}
	add("name", before.Name, after.Name)
	add("description", before.Description, after.Description)
	add("owner", before.Owner, after.Owner)
	add("budget", formatBudget(before.Budget), formatBudget(after.Budget))
	add("status", before.Status, after.Status)
	add("startDate", before.StartDate.String(), after.StartDate.String())
	add("endDate", before.EndDate.String(), after.EndDate.String())
	return changes
}

func formatBudget(b model.Budget) string {
	raw, _ := b.MarshalJSON()
	return string(raw)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
