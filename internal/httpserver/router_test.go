package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saraban/internal/audit"
	"saraban/internal/handler"
	"saraban/internal/memstore"
	"saraban/internal/model"
	"saraban/internal/service"
	"saraban/internal/storage"
	"saraban/pkg/util"
)

const testSecret = "test-secret"

type testServer struct {
	router *Router
	db     *memstore.DB
}

type fakeReplayer struct{ replayed []int64 }

func (f *fakeReplayer) ReplayEvent(ctx context.Context, id int64) error {
	f.replayed = append(f.replayed, id)
	return nil
}

func (f *fakeReplayer) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	return 0, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	return newTestServerWithAudit(t, maxUpload, false)
}

func newTestServerWithAudit(t *testing.T, maxUpload int64, strictAudit bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	db := memstore.New()
	uploadDir := t.TempDir()
	files, err := storage.NewLocal(uploadDir, "/uploads", maxUpload)
	if err != nil {
		t.Fatal(err)
	}
	rec := audit.NewRecorder(db.Audit(), nil, strictAudit, log)
	projects := service.NewProjectService(db.Projects(), db.Sequences(), rec, log)
	feed := service.NewAuditService(db.Audit(), nil, 50, 200)

	h := Handlers{
		Auth:     handler.NewAuthHandler(service.NewAuthService(db.Users(), testSecret, time.Hour, log), log),
		Projects: handler.NewProjectHandler(projects, log),
		Logs:     handler.NewLogHandler(projects, feed, log),
		Features: handler.NewFeatureHandler(service.NewFeatureService(db.Features(), db.Notes(), files, rec, log), maxUpload, log),
		Admin:    handler.NewAdminHandler(&fakeReplayer{}, log),
	}
	r := NewRouter(h, Options{
		JWTSecret:    testSecret,
		UploadDir:    uploadDir,
		UploadPrefix: "/uploads",
		DB:           failingPinger{},
	}, log)
	return &testServer{router: r, db: db}
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := util.GenerateJWT(util.Claims{UserID: 1, Username: "tester", Fullname: "Test User", Role: role}, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, 1<<20)

	if w := s.do(t, http.MethodGet, "/api/projects", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", w.Code)
	}
	w := s.do(t, http.MethodGet, "/api/projects", "garbage", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("invalid token: status %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["code"] != handler.CodeForbidden {
		t.Fatalf("body = %v", body)
	}
	if w := s.do(t, http.MethodGet, "/api/projects", token(t, model.RoleUser), nil); w.Code != http.StatusOK {
		t.Fatalf("valid token: status %d", w.Code)
	}
}

func TestRegisterLoginAndProfile(t *testing.T) {
	s := newTestServer(t, 1<<20)

	w := s.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"username": "malee", "password": "secret1", "fullname": "Malee S.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatal("password hash leaked")
	}
	if w := s.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"username": "malee", "password": "secret1",
	}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "malee", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body)
	}
	login := decode[struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}](t, w)
	if login.Token == "" || login.User.Username != "malee" {
		t.Fatalf("login body = %+v", login)
	}

	if w := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "malee", "password": "nope"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", w.Code)
	}

	w = s.do(t, http.MethodPut, "/api/profile", login.Token, map[string]string{"fullname": "Malee Suk"})
	if w.Code != http.StatusOK {
		t.Fatalf("profile: %d %s", w.Code, w.Body)
	}
	w = s.do(t, http.MethodPut, "/api/change-password", login.Token, map[string]string{
		"currentPassword": "wrong", "newPassword": "another1",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("change password with wrong current: %d", w.Code)
	}
}

func TestProjectCRUDAndHistory(t *testing.T) {
	s := newTestServer(t, 1<<20)
	tok := token(t, model.RoleUser)

	w := s.do(t, http.MethodPost, "/api/projects", tok, map[string]any{
		"code": "GS-25-P001", "name": "Road", "budget": "1,500", "status": "active", "startDate": "2025-01-10",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body)
	}
	created := decode[model.Project](t, w)
	if created.Budget != 1500 || created.Status != "ACTIVE" || created.StartDate.String() != "2025-01-10" {
		t.Fatalf("created = %+v", created)
	}

	w = s.do(t, http.MethodPost, "/api/projects", tok, map[string]any{"code": "GS-25-P001", "name": "Again"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate code: %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["code"] != handler.CodeDuplicateCode {
		t.Fatalf("conflict body = %v", body)
	}

	w = s.do(t, http.MethodPut, "/api/projects/"+itoa(created.ID), tok, map[string]any{"name": "Road", "budget": 1500, "status": "done"})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body)
	}

	w = s.do(t, http.MethodPost, "/api/projects/"+itoa(created.ID)+"/logs", tok, map[string]string{"note": "site visit"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add log: %d %s", w.Code, w.Body)
	}

	w = s.do(t, http.MethodGet, "/api/projects/"+itoa(created.ID)+"/logs", tok, nil)
	logs := decode[[]model.AuditLog](t, w)
	if len(logs) != 3 || logs[0].Action != model.ActionNote || logs[0].Actor != "Test User" {
		t.Fatalf("logs = %+v", logs)
	}

	w = s.do(t, http.MethodGet, "/api/stats", tok, nil)
	stats := decode[map[string]any](t, w)
	if stats["completed"] != float64(1) || stats["totalBudget"] != float64(1500) {
		t.Fatalf("stats = %v", stats)
	}

	if w := s.do(t, http.MethodDelete, "/api/projects/"+itoa(created.ID), tok, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/projects/"+itoa(created.ID), tok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, "/api/projects/abc", tok, map[string]any{"name": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", w.Code)
	}
}

func TestNextCodeAndNotifications(t *testing.T) {
	s := newTestServer(t, 1<<20)
	tok := token(t, model.RoleUser)
	year := time.Now().Year() % 100

	w := s.do(t, http.MethodGet, "/api/projects/next-code?acronym=gs&type=SP", tok, nil)
	code := decode[map[string]string](t, w)["code"]
	want := "GS-" + twoDigits(year) + "-SP001"
	if code != want {
		t.Fatalf("next code = %q, want %q", code, want)
	}
	if w := s.do(t, http.MethodGet, "/api/projects/next-code?type=Q", tok, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad type: %d", w.Code)
	}

	for i := 0; i < 3; i++ {
		s.do(t, http.MethodPost, "/api/projects", tok, map[string]any{"name": "p" + itoa(i), "type": "P", "acronym": "GS"})
	}
	w = s.do(t, http.MethodGet, "/api/notifications?limit=2", tok, nil)
	feed := decode[[]model.AuditLog](t, w)
	if len(feed) != 2 || feed[0].ID <= feed[1].ID {
		t.Fatalf("feed = %+v", feed)
	}
	if feed[0].ProjectCode == nil || !strings.HasPrefix(*feed[0].ProjectCode, "GS-") {
		t.Fatalf("feed entry lacks project code: %+v", feed[0])
	}
	if w := s.do(t, http.MethodGet, "/api/notifications?limit=x", tok, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", w.Code)
	}
}

func TestFeatureNotesWithUpload(t *testing.T) {
	s := newTestServer(t, 16)
	tok := token(t, model.RoleUser)

	p := decode[model.Project](t, s.do(t, http.MethodPost, "/api/projects", tok, map[string]any{"name": "Road"}))
	w := s.do(t, http.MethodPost, "/api/projects/"+itoa(p.ID)+"/features", tok, map[string]any{
		"title": "Survey", "status": "in_progress", "due_date": "2025-06-30",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create feature: %d %s", w.Code, w.Body)
	}
	f := decode[model.ProjectFeature](t, w)

	if w := s.do(t, http.MethodPost, "/api/projects/999/features", tok, map[string]any{"title": "x"}); w.Code != http.StatusNotFound {
		t.Fatalf("feature on missing project: %d", w.Code)
	}

	upload := func(content, filename, data string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField("content", content)
		if filename != "" {
			part, _ := mw.CreateFormFile("file", filename)
			_, _ = part.Write([]byte(data))
		}
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/features/"+itoa(f.ID)+"/notes", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		s.router.Engine.ServeHTTP(rec, req)
		return rec
	}

	w = upload("see photo", "site.png", "png-bytes")
	if w.Code != http.StatusCreated {
		t.Fatalf("note with file: %d %s", w.Code, w.Body)
	}
	note := decode[model.FeatureNote](t, w)
	if note.Attachment == nil {
		t.Fatal("attachment path missing")
	}

	get := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(get, httptest.NewRequest(http.MethodGet, *note.Attachment, nil))
	if get.Code != http.StatusOK || get.Body.String() != "png-bytes" {
		t.Fatalf("static upload: %d %q", get.Code, get.Body.String())
	}

	if w := upload("too big", "big.bin", strings.Repeat("x", 17)); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversize upload: %d", w.Code)
	}
	if w := upload("text only", "", ""); w.Code != http.StatusCreated {
		t.Fatalf("note without file: %d", w.Code)
	}

	notes := decode[[]model.FeatureNote](t, s.do(t, http.MethodGet, "/api/features/"+itoa(f.ID)+"/notes", tok, nil))
	if len(notes) != 2 || notes[0].Content != "text only" {
		t.Fatalf("notes = %+v", notes)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type repeatReader byte

func (r repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

func TestAddNoteStopsReadingOversizedBody(t *testing.T) {
	s := newTestServer(t, 16)
	tok := token(t, model.RoleUser)
	p := decode[model.Project](t, s.do(t, http.MethodPost, "/api/projects", tok, map[string]any{"name": "Road"}))
	f := decode[model.ProjectFeature](t, s.do(t, http.MethodPost, "/api/projects/"+itoa(p.ID)+"/features", tok, map[string]any{"title": "Survey"}))

	const payload = 32 << 20
	body := &countingReader{r: io.MultiReader(
		strings.NewReader("--b\r\nContent-Disposition: form-data; name=\"file\"; filename=\"big.bin\"\r\n"+
			"Content-Type: application/octet-stream\r\n\r\n"),
		io.LimitReader(repeatReader('x'), payload),
		strings.NewReader("\r\n--b--\r\n"),
	)}
	req := httptest.NewRequest(http.MethodPost, "/api/features/"+itoa(f.ID)+"/notes", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	if body.n >= 4<<20 {
		t.Fatalf("read %d bytes of an oversized upload", body.n)
	}
	notes := decode[[]model.FeatureNote](t, s.do(t, http.MethodGet, "/api/features/"+itoa(f.ID)+"/notes", tok, nil))
	if len(notes) != 0 {
		t.Fatalf("notes = %+v", notes)
	}
}

func TestStrictAuditFailureIsNotRetryable(t *testing.T) {
	s := newTestServerWithAudit(t, 1024, true)
	s.db.FailAudit = errors.New("disk full")
	tok := token(t, model.RoleUser)

	w := s.do(t, http.MethodPost, "/api/projects", tok, map[string]any{"code": "GS-25-P001", "name": "Road"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d %s", w.Code, w.Body)
	}
	if body := decode[map[string]string](t, w); body["code"] != handler.CodeAuditMissing {
		t.Fatalf("body = %v", body)
	}
	list, _ := s.db.Projects().List(context.Background())
	if len(list) != 1 || list[0].Code != "GS-25-P001" {
		t.Fatalf("project should already be stored: %+v", list)
	}
}

func TestAdminRequiresRole(t *testing.T) {
	s := newTestServer(t, 1<<20)
	if w := s.do(t, http.MethodPost, "/api/admin/outbox/replay?id=1", token(t, model.RoleUser), nil); w.Code != http.StatusForbidden {
		t.Fatalf("user replay: %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/admin/outbox/replay?id=1", token(t, model.RoleAdmin), nil); w.Code != http.StatusOK {
		t.Fatalf("admin replay: %d %s", w.Code, w.Body)
	}
	if w := s.do(t, http.MethodPost, "/api/admin/outbox/replay", token(t, model.RoleAdmin), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing id: %d", w.Code)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, 1<<20)
	if w := s.do(t, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/readyz", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing db: %d", w.Code)
	}
	w := s.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	if w.Header().Get("X-Trace-ID") == "" {
		t.Fatal("trace id header missing")
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, 1<<20)
	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight: %d %v", w.Code, w.Header())
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func twoDigits(n int) string {
	return fmt.Sprintf("%02d", n)
}
