// Package memstore is an in-memory stand-in for the PostgreSQL
// repositories, used by service and handler tests. It mirrors the
// repositories' error contract: apperr.ErrNotFound for missing rows and
// apperr.ErrDuplicateCode / apperr.ErrUsernameTaken for unique violations.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"saraban/internal/apperr"
	"saraban/internal/model"
)

type DB struct {
	mu        sync.Mutex
	now       func() time.Time
	users     []model.User
	projects  map[int]model.Project
	features  map[int]model.ProjectFeature
	notes     []model.FeatureNote
	logs      []model.AuditLog
	sequences map[string]int
	nextID    int

	// FailAudit makes audit inserts fail with this error.
	FailAudit error
}

func New() *DB {
	return &DB{
		now:       time.Now,
		projects:  map[int]model.Project{},
		features:  map[int]model.ProjectFeature{},
		sequences: map[string]int{},
	}
}

func (db *DB) id() int {
	db.nextID++
	return db.nextID
}

func (db *DB) Users() *Users         { return &Users{db} }
func (db *DB) Projects() *Projects   { return &Projects{db} }
func (db *DB) Sequences() *Sequences { return &Sequences{db} }
func (db *DB) Audit() *Audit         { return &Audit{db} }
func (db *DB) Features() *Features   { return &Features{db} }
func (db *DB) Notes() *Notes         { return &Notes{db} }

type Users struct{ db *DB }

func (u *Users) CreateUser(ctx context.Context, user *model.User) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	for _, existing := range u.db.users {
		if existing.Username == user.Username {
			return apperr.ErrUsernameTaken
		}
	}
	user.ID = u.db.id()
	user.CreatedAt = u.db.now()
	u.db.users = append(u.db.users, *user)
	return nil
}

func (u *Users) find(match func(model.User) bool) (*model.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	for _, user := range u.db.users {
		if match(user) {
			cp := user
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (u *Users) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return u.find(func(m model.User) bool { return m.Username == username })
}

func (u *Users) FindByID(ctx context.Context, id int) (*model.User, error) {
	return u.find(func(m model.User) bool { return m.ID == id })
}

func (u *Users) update(id int, fn func(*model.User)) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	for i := range u.db.users {
		if u.db.users[i].ID == id {
			fn(&u.db.users[i])
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (u *Users) UpdateFullname(ctx context.Context, id int, fullname string) error {
	return u.update(id, func(m *model.User) { m.Fullname = fullname })
}

func (u *Users) UpdatePassword(ctx context.Context, id int, hash string) error {
	return u.update(id, func(m *model.User) { m.PasswordHash = hash })
}

type Projects struct{ db *DB }

// List orders by id descending, matching the newest-first listing.
func (p *Projects) List(ctx context.Context) ([]model.Project, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	out := make([]model.Project, 0, len(p.db.projects))
	for _, pr := range p.db.projects {
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (p *Projects) Get(ctx context.Context, id int) (*model.Project, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	pr, ok := p.db.projects[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &pr, nil
}

func (p *Projects) Codes(ctx context.Context) ([]string, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	codes := make([]string, 0, len(p.db.projects))
	for _, pr := range p.db.projects {
		codes = append(codes, pr.Code)
	}
	sort.Strings(codes)
	return codes, nil
}

// Seed stores pr as is, bypassing validation. Used to load legacy rows.
func (p *Projects) Seed(pr model.Project) model.Project {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	pr.ID = p.db.id()
	p.db.projects[pr.ID] = pr
	return pr
}

func (p *Projects) Insert(ctx context.Context, pr *model.Project) error {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	for _, existing := range p.db.projects {
		if existing.Code == pr.Code {
			return fmt.Errorf("%w: %s", apperr.ErrDuplicateCode, pr.Code)
		}
	}
	pr.ID = p.db.id()
	pr.UpdatedAt = p.db.now()
	p.db.projects[pr.ID] = *pr
	return nil
}

func (p *Projects) Update(ctx context.Context, pr *model.Project) error {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	existing, ok := p.db.projects[pr.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	pr.Code = existing.Code
	pr.UpdatedAt = p.db.now()
	p.db.projects[pr.ID] = *pr
	return nil
}

// Delete cascades to features and notes and leaves audit rows alone.
func (p *Projects) Delete(ctx context.Context, id int) error {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if _, ok := p.db.projects[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(p.db.projects, id)
	for fid, f := range p.db.features {
		if f.ProjectID == id {
			p.db.deleteFeatureLocked(fid)
		}
	}
	return nil
}

type Sequences struct{ db *DB }

func (s *Sequences) Next(ctx context.Context, yy, typeTag string, floor int) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := yy + "/" + typeTag
	seq := max(s.db.sequences[key], floor) + 1
	s.db.sequences[key] = seq
	return seq, nil
}

type Audit struct{ db *DB }

func (a *Audit) Insert(ctx context.Context, l *model.AuditLog) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	if a.db.FailAudit != nil {
		return a.db.FailAudit
	}
	l.ID = int64(len(a.db.logs) + 1)
	l.Timestamp = a.db.now()
	a.db.logs = append(a.db.logs, *l)
	return nil
}

func (a *Audit) newestFirst(match func(model.AuditLog) bool, limit int) []model.AuditLog {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	out := []model.AuditLog{}
	for i := len(a.db.logs) - 1; i >= 0; i-- {
		l := a.db.logs[i]
		if !match(l) {
			continue
		}
		if pr, ok := a.db.projects[l.EntityID]; ok {
			code, name := pr.Code, pr.Name
			l.ProjectCode, l.ProjectName = &code, &name
		}
		out = append(out, l)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (a *Audit) ListByEntity(ctx context.Context, entityID int) ([]model.AuditLog, error) {
	return a.newestFirst(func(l model.AuditLog) bool { return l.EntityID == entityID }, 0), nil
}

func (a *Audit) ListAll(ctx context.Context) ([]model.AuditLog, error) {
	return a.newestFirst(func(model.AuditLog) bool { return true }, 0), nil
}

func (a *Audit) Latest(ctx context.Context, limit int) ([]model.AuditLog, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	return a.newestFirst(func(model.AuditLog) bool { return true }, limit), nil
}

type Features struct{ db *DB }

func (f *Features) ListByProject(ctx context.Context, projectID int) ([]model.ProjectFeature, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.ProjectFeature{}
	for _, feat := range f.db.features {
		if feat.ProjectID == projectID {
			out = append(out, feat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Features) Get(ctx context.Context, id int) (*model.ProjectFeature, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	feat, ok := f.db.features[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &feat, nil
}

func (f *Features) Insert(ctx context.Context, feat *model.ProjectFeature) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.projects[feat.ProjectID]; !ok {
		return apperr.ErrNotFound
	}
	feat.ID = f.db.id()
	feat.CreatedAt = f.db.now()
	feat.UpdatedAt = feat.CreatedAt
	f.db.features[feat.ID] = *feat
	return nil
}

func (f *Features) Update(ctx context.Context, feat *model.ProjectFeature) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	existing, ok := f.db.features[feat.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	feat.ProjectID = existing.ProjectID
	feat.CreatedAt = existing.CreatedAt
	feat.UpdatedAt = f.db.now()
	f.db.features[feat.ID] = *feat
	return nil
}

func (f *Features) Delete(ctx context.Context, id int) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	feat, ok := f.db.features[id]
	if !ok {
		return 0, apperr.ErrNotFound
	}
	f.db.deleteFeatureLocked(id)
	return feat.ProjectID, nil
}

func (db *DB) deleteFeatureLocked(id int) {
	delete(db.features, id)
	kept := db.notes[:0]
	for _, n := range db.notes {
		if n.FeatureID != id {
			kept = append(kept, n)
		}
	}
	db.notes = kept
}

type Notes struct{ db *DB }

func (n *Notes) ListByFeature(ctx context.Context, featureID int) ([]model.FeatureNote, error) {
	n.db.mu.Lock()
	defer n.db.mu.Unlock()
	out := []model.FeatureNote{}
	for i := len(n.db.notes) - 1; i >= 0; i-- {
		if n.db.notes[i].FeatureID == featureID {
			out = append(out, n.db.notes[i])
		}
	}
	return out, nil
}

func (n *Notes) Insert(ctx context.Context, note *model.FeatureNote) error {
	n.db.mu.Lock()
	defer n.db.mu.Unlock()
	if _, ok := n.db.features[note.FeatureID]; !ok {
		return apperr.ErrNotFound
	}
	note.ID = n.db.id()
	note.CreatedAt = n.db.now()
	n.db.notes = append(n.db.notes, *note)
	return nil
}
