package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"saraban/internal/model"
)

// ErrDeleteSettled is returned when Commit or Rollback is called on a
// delete that already left the pending state.
var ErrDeleteSettled = errors.New("delete already settled")

type DeleteState int

const (
	DeletePending DeleteState = iota
	DeleteCommitted
	DeleteRolledBack
)

func (s DeleteState) String() string {
	switch s {
	case DeletePending:
		return "pending"
	case DeleteCommitted:
		return "committed"
	case DeleteRolledBack:
		return "rolled_back"
	}
	return "unknown"
}

// ProjectList is the client's local view of the project table.
type ProjectList struct {
	mu    sync.Mutex
	items []model.Project
}

func NewProjectList(items []model.Project) *ProjectList {
	return &ProjectList{items: append([]model.Project(nil), items...)}
}

func (l *ProjectList) Items() []model.Project {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Project(nil), l.items...)
}

// Replace installs a fresh server snapshot.
func (l *ProjectList) Replace(items []model.Project) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]model.Project(nil), items...)
}

// PendingDelete is a row removed from the view whose server delete has not
// been confirmed yet.
type PendingDelete struct {
	list  *ProjectList
	item  model.Project
	index int

	mu    sync.Mutex
	state DeleteState
}

// BeginDelete removes the project from the view right away.
func (l *ProjectList) BeginDelete(id int) (*PendingDelete, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, p := range l.items {
		if p.ID == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return &PendingDelete{list: l, item: p, index: i}, nil
		}
	}
	return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
}

func (d *PendingDelete) State() DeleteState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *PendingDelete) Item() model.Project { return d.item }

func (d *PendingDelete) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DeletePending {
		return ErrDeleteSettled
	}
	d.state = DeleteCommitted
	return nil
}

// Rollback puts the row back where it was, or at the end when the list has
// shrunk below that position in the meantime.
func (d *PendingDelete) Rollback() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DeletePending {
		return ErrDeleteSettled
	}
	d.state = DeleteRolledBack

	l := d.list
	l.mu.Lock()
	defer l.mu.Unlock()
	at := min(d.index, len(l.items))
	l.items = append(l.items[:at], append([]model.Project{d.item}, l.items[at:]...)...)
	return nil
}

// Deleter is implemented by *Client.
type Deleter interface {
	DeleteProject(ctx context.Context, id int) error
}

// DeleteOptimistic removes the row locally, then asks the server. A failed
// server call restores the row. A 404 counts as success since the project
// is gone either way.
func DeleteOptimistic(ctx context.Context, api Deleter, list *ProjectList, id int) (*PendingDelete, error) {
	pending, err := list.BeginDelete(id)
	if err != nil {
		return nil, err
	}
	if err := api.DeleteProject(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		if rbErr := pending.Rollback(); rbErr != nil {
			return pending, errors.Join(err, rbErr)
		}
		return pending, err
	}
	return pending, pending.Commit()
}
