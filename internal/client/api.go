package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"saraban/internal/model"
	"saraban/internal/projectcode"
	"saraban/internal/stats"
)

type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login stores the returned token on c.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) Register(ctx context.Context, username, password, fullname string) (*model.User, error) {
	var out model.User
	err := c.doJSON(ctx, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"password": password,
		"fullname": fullname,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	err := c.doJSON(ctx, http.MethodGet, "/api/projects", nil, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, in model.ProjectInput) (*model.Project, error) {
	var out model.Project
	if err := c.doJSON(ctx, http.MethodPost, "/api/projects", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, id int, in model.ProjectInput) (*model.Project, error) {
	var out model.Project
	if err := c.doJSON(ctx, http.MethodPut, "/api/projects/"+strconv.Itoa(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProject(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/projects/"+strconv.Itoa(id), nil, nil)
}

// NextCode asks the server for a preview of the next code. Nothing is
// reserved.
func (c *Client) NextCode(ctx context.Context, acronym, typeTag string) (string, error) {
	q := url.Values{}
	q.Set("acronym", acronym)
	q.Set("type", typeTag)
	var out struct {
		Code string `json:"code"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/projects/next-code?"+q.Encode(), nil, &out)
	return out.Code, err
}

// CreateProjectWithRetry computes the code from a fresh project snapshot and
// creates the project. A 409 means another writer took the code first; the
// snapshot is refetched and the code recomputed, up to attempts times.
func (c *Client) CreateProjectWithRetry(ctx context.Context, in model.ProjectInput, attempts int) (*model.Project, error) {
	if attempts <= 0 {
		attempts = 3
	}
	typeTag := projectcode.NormalizeTypeTag(in.TypeTag)
	if !projectcode.ValidTypeTag(typeTag) {
		return nil, fmt.Errorf("%w: unknown project type %q", ErrValidation, in.TypeTag)
	}
	in.TypeTag = typeTag

	var lastErr error
	for i := 0; i < attempts; i++ {
		projects, err := c.ListProjects(ctx)
		if err != nil {
			return nil, err
		}
		codes := make([]string, 0, len(projects))
		for _, p := range projects {
			codes = append(codes, p.Code)
		}
		in.Code = projectcode.Generate(codes, in.Acronym, typeTag, c.now().Year())

		p, err := c.CreateProject(ctx, in)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("code still taken after %d attempts: %w", attempts, lastErr)
}

func (c *Client) Stats(ctx context.Context) (*stats.Stats, error) {
	var out stats.Stats
	if err := c.doJSON(ctx, http.MethodGet, "/api/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ProjectLogs(ctx context.Context, projectID int) ([]model.AuditLog, error) {
	var out []model.AuditLog
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/logs", projectID), nil, &out)
	return out, err
}

// AddLog appends a manual NOTE entry to a project's history.
func (c *Client) AddLog(ctx context.Context, projectID int, note string) (*model.AuditLog, error) {
	var out model.AuditLog
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/logs", projectID),
		map[string]string{"note": note}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Notifications fetches the newest audit entries. limit <= 0 leaves the
// server default in place.
func (c *Client) Notifications(ctx context.Context, limit int) ([]model.AuditLog, error) {
	path := "/api/notifications"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []model.AuditLog
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Features(ctx context.Context, projectID int) ([]model.ProjectFeature, error) {
	var out []model.ProjectFeature
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/features", projectID), nil, &out)
	return out, err
}

func (c *Client) CreateFeature(ctx context.Context, projectID int, in model.FeatureInput) (*model.ProjectFeature, error) {
	var out model.ProjectFeature
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/features", projectID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FeatureNotes(ctx context.Context, featureID int) ([]model.FeatureNote, error) {
	var out []model.FeatureNote
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/features/%d/notes", featureID), nil, &out)
	return out, err
}

// AddNote posts a feature note as multipart form data. filePath may be
// empty.
func (c *Client) AddNote(ctx context.Context, featureID int, content, filePath string) (*model.FeatureNote, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("content", content); err != nil {
		return nil, err
	}
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		part, err := mw.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/features/%d/notes", c.baseURL, featureID), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out model.FeatureNote
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
