package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"saraban/internal/model"
)

func TestAPIErrorIs(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusBadRequest, ErrValidation},
	}
	for _, tt := range tests {
		err := error(&APIError{StatusCode: tt.status})
		if !errors.Is(err, tt.target) {
			t.Errorf("status %d should match %v", tt.status, tt.target)
		}
		if errors.Is(err, ErrConflict) && tt.target != ErrConflict {
			t.Errorf("status %d must not match ErrConflict", tt.status)
		}
	}
}

func TestLoginStoresTokenAndSendsIt(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "secret1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":"invalid username or password","code":"unauthorized"}`)
				return
			}
			_ = json.NewEncoder(w).Encode(LoginResponse{Token: "tok-1", User: model.User{ID: 1, Username: body["username"]}})
		case "/api/projects":
			gotAuth = r.Header.Get("Authorization")
			_, _ = io.WriteString(w, `[]`)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "")
	_, err := c.Login(context.Background(), "malee", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "unauthorized" || !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bad login error = %v", err)
	}

	res, err := c.Login(context.Background(), "malee", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.Username != "malee" || c.Token() != "tok-1" {
		t.Fatalf("login result %+v token %q", res, c.Token())
	}
	if _, err := c.ListProjects(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}

func TestCreateProjectWithRetryRecomputesCode(t *testing.T) {
	var mu sync.Mutex
	codes := []string{"GS-25-P001"}
	var attempted []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			var out []model.Project
			for i, c := range codes {
				out = append(out, model.Project{ID: i + 1, Code: c})
			}
			_ = json.NewEncoder(w).Encode(out)
		case http.MethodPost:
			var in model.ProjectInput
			_ = json.NewDecoder(r.Body).Decode(&in)
			attempted = append(attempted, in.Code)
			if len(attempted) == 1 {
				// another writer grabbed the code between snapshot and create
				codes = append(codes, in.Code)
				w.WriteHeader(http.StatusConflict)
				_, _ = io.WriteString(w, `{"error":"duplicate","code":"duplicate_code"}`)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(model.Project{ID: 9, Code: in.Code, Name: in.Name})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	c.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	p, err := c.CreateProjectWithRetry(context.Background(), model.ProjectInput{Name: "Road", Acronym: "gs"}, 3)
	if err != nil {
		t.Fatalf("CreateProjectWithRetry: %v", err)
	}
	if len(attempted) != 2 || attempted[0] != "GS-25-P002" || attempted[1] != "GS-25-P003" {
		t.Fatalf("attempted codes = %v", attempted)
	}
	if p.Code != "GS-25-P003" {
		t.Fatalf("created code = %q", p.Code)
	}
}

func TestCreateProjectWithRetryGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok").CreateProjectWithRetry(context.Background(), model.ProjectInput{Name: "x"}, 2)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateProjectWithRetryNormalizesTypeTag(t *testing.T) {
	var posted []model.ProjectInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode([]model.Project{{ID: 1, Code: "GS-26-SP001"}})
			return
		}
		var in model.ProjectInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		posted = append(posted, in)
		if in.Code == "GS-26-SP001" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.Project{ID: 2, Code: in.Code})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	c.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }

	p, err := c.CreateProjectWithRetry(context.Background(), model.ProjectInput{Name: "Sub", Acronym: "gs", TypeTag: " sp "}, 3)
	if err != nil {
		t.Fatalf("CreateProjectWithRetry: %v", err)
	}
	if len(posted) != 1 || posted[0].Code != "GS-26-SP002" || posted[0].TypeTag != "SP" {
		t.Fatalf("posted %+v", posted)
	}
	if p.Code != "GS-26-SP002" {
		t.Fatalf("created code = %q", p.Code)
	}
}

func TestCreateProjectWithRetryRejectsUnknownType(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok").CreateProjectWithRetry(context.Background(), model.ProjectInput{Name: "x", TypeTag: "xyz"}, 3)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if calls != 0 {
		t.Fatalf("server called %d times", calls)
	}
}

func TestAddNoteUploadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memo.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/features/4/notes" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, fh, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		attachment := "/uploads/" + fh.Filename
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.FeatureNote{
			ID: 1, FeatureID: 4, Content: r.FormValue("content") + ":" + string(data), Attachment: &attachment,
		})
	}))
	defer srv.Close()

	note, err := New(srv.URL, "tok").AddNote(context.Background(), 4, "see file", path)
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if note.Content != "see file:hello" || note.Attachment == nil || !strings.HasSuffix(*note.Attachment, "memo.txt") {
		t.Fatalf("note = %+v", note)
	}
}

func TestNotificationsLimitQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `[{"id":3,"action":"CREATE"}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	logs, err := c.Notifications(context.Background(), 0)
	if err != nil || len(logs) != 1 || gotQuery != "" {
		t.Fatalf("logs=%v err=%v query=%q", logs, err, gotQuery)
	}
	if _, err := c.Notifications(context.Background(), 20); err != nil || gotQuery != "limit=20" {
		t.Fatalf("err=%v query=%q", err, gotQuery)
	}
}
