package session

import (
	"os"
	"path/filepath"
	"testing"

	"saraban/internal/model"
)

func TestLoadMissingFile(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "session.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if s.LoggedIn() || s.ServerURL != DefaultServerURL || s.LastReadID != 0 {
		t.Fatalf("unexpected fresh session %+v", s)
	}
}

func TestSaveLoadAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	s, _ := LoadFrom(path)
	s.ServerURL = "https://saraban.example"
	if err := s.SetLogin("tok", model.User{ID: 4, Username: "malee", Fullname: "Malee S.", Role: "user"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveWatermark(42); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode = %v", info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Token != "tok" || loaded.User.Fullname != "Malee S." || loaded.ServerURL != "https://saraban.example" {
		t.Fatalf("loaded = %+v", loaded)
	}
	if id, _ := loaded.LoadWatermark(); id != 42 {
		t.Fatalf("watermark = %d", id)
	}

	if err := loaded.Clear(); err != nil {
		t.Fatal(err)
	}
	again, _ := LoadFrom(path)
	if again.LoggedIn() || again.LastReadID != 0 || again.User.Username != "" {
		t.Fatalf("clear left state behind: %+v", again)
	}
	if again.ServerURL != "https://saraban.example" {
		t.Fatalf("server url lost on clear: %q", again.ServerURL)
	}
}

func TestDirHonoursEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SARABAN_HOME", dir)
	p, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join(dir, "session.toml") {
		t.Fatalf("path = %q", p)
	}
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	if err := os.WriteFile(path, []byte("token = [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected decode error")
	}
}
