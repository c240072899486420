package client

import (
	"context"
	"errors"
	"testing"

	"saraban/internal/model"
)

type deleterFunc func(ctx context.Context, id int) error

func (f deleterFunc) DeleteProject(ctx context.Context, id int) error { return f(ctx, id) }

func sampleList() *ProjectList {
	return NewProjectList([]model.Project{{ID: 1, Code: "A"}, {ID: 2, Code: "B"}, {ID: 3, Code: "C"}})
}

func ids(items []model.Project) []int {
	out := make([]int, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func TestDeleteOptimisticCommits(t *testing.T) {
	list := sampleList()
	pending, err := DeleteOptimistic(context.Background(), deleterFunc(func(context.Context, int) error { return nil }), list, 2)
	if err != nil {
		t.Fatal(err)
	}
	if pending.State() != DeleteCommitted {
		t.Fatalf("state = %v", pending.State())
	}
	if got := ids(list.Items()); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("items = %v", got)
	}
}

func TestDeleteOptimisticRollsBackInPlace(t *testing.T) {
	list := sampleList()
	boom := errors.New("connection reset")
	pending, err := DeleteOptimistic(context.Background(), deleterFunc(func(context.Context, int) error { return boom }), list, 2)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if pending.State() != DeleteRolledBack {
		t.Fatalf("state = %v", pending.State())
	}
	if got := ids(list.Items()); len(got) != 3 || got[1] != 2 {
		t.Fatalf("items after rollback = %v", got)
	}
}

func TestDeleteOptimisticTreatsNotFoundAsDone(t *testing.T) {
	list := sampleList()
	pending, err := DeleteOptimistic(context.Background(), deleterFunc(func(context.Context, int) error {
		return &APIError{StatusCode: 404}
	}), list, 1)
	if err != nil || pending.State() != DeleteCommitted {
		t.Fatalf("err=%v state=%v", err, pending.State())
	}
}

func TestPendingDeleteSettlesOnce(t *testing.T) {
	list := sampleList()
	pending, err := list.BeginDelete(3)
	if err != nil {
		t.Fatal(err)
	}
	list.Replace([]model.Project{{ID: 1}})
	if err := pending.Rollback(); err != nil {
		t.Fatal(err)
	}
	if got := ids(list.Items()); len(got) != 2 || got[1] != 3 {
		t.Fatalf("rollback past end = %v", got)
	}
	if err := pending.Commit(); !errors.Is(err, ErrDeleteSettled) {
		t.Fatalf("commit after rollback = %v", err)
	}
	if _, err := list.BeginDelete(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id err = %v", err)
	}
}
