// Package session keeps the CLI's login state in a TOML file under
// $SARABAN_HOME (default ~/.saraban).
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"saraban/internal/model"
)

const DefaultServerURL = "http://localhost:8080"

type User struct {
	ID       int    `toml:"id"`
	Username string `toml:"username"`
	Fullname string `toml:"fullname"`
	Role     string `toml:"role"`
}

type Session struct {
	ServerURL  string `toml:"server_url"`
	Token      string `toml:"token"`
	User       User   `toml:"user"`
	LastReadID int64  `toml:"last_read_id"`

	path string
}

// Dir is $SARABAN_HOME, or ~/.saraban when unset.
func Dir() (string, error) {
	if dir := os.Getenv("SARABAN_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".saraban"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.toml"), nil
}

// Load reads the default session file. A missing file is an empty session.
func Load() (*Session, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Session, error) {
	s := &Session{ServerURL: DefaultServerURL, path: path}
	if _, err := toml.DecodeFile(path, s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read session %s: %w", path, err)
	}
	if s.ServerURL == "" {
		s.ServerURL = DefaultServerURL
	}
	return s, nil
}

// Save writes the file with owner-only permissions; it holds a bearer token.
func (s *Session) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *Session) LoggedIn() bool { return s.Token != "" }

// SetLogin records a successful login. The watermark starts over for the
// new user.
func (s *Session) SetLogin(token string, u model.User) error {
	s.Token = token
	s.User = User{ID: u.ID, Username: u.Username, Fullname: u.Fullname, Role: u.Role}
	s.LastReadID = 0
	return s.Save()
}

// Clear drops the token, user and watermark together. The server URL stays.
func (s *Session) Clear() error {
	s.Token = ""
	s.User = User{}
	s.LastReadID = 0
	return s.Save()
}

func (s *Session) LoadWatermark() (int64, error) { return s.LastReadID, nil }

func (s *Session) SaveWatermark(id int64) error {
	s.LastReadID = id
	return s.Save()
}
