package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"saraban/internal/apperr"
)

func TestSaveNamesAndWrites(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "uploads/", 1024)
	if err != nil {
		t.Fatal(err)
	}
	l.now = func() time.Time { return time.UnixMilli(1700000000123) }

	saved, err := l.Save("Scan Report.PDF", "application/pdf", strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if !regexp.MustCompile(`^file-1700000000123-\d{1,9}\.pdf$`).MatchString(saved.Name) {
		t.Fatalf("unexpected name %q", saved.Name)
	}
	if saved.PublicPath != "/uploads/"+saved.Name {
		t.Fatalf("public path = %q", saved.PublicPath)
	}
	data, err := os.ReadFile(filepath.Join(dir, saved.Name))
	if err != nil || string(data) != "hello" {
		t.Fatalf("file content %q, err %v", data, err)
	}
}

func TestSaveRejectsOversize(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "/uploads", 4)
	if err != nil {
		t.Fatal(err)
	}

	_, err = l.Save("a.txt", "text/plain", bytes.NewReader([]byte("12345")))
	if !errors.Is(err, apperr.ErrFileTooLarge) {
		t.Fatalf("err = %v, want ErrFileTooLarge", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("oversize file left behind: %v", entries)
	}

	if _, err := l.Save("a.txt", "text/plain", bytes.NewReader([]byte("1234"))); err != nil {
		t.Fatalf("exactly at the limit should pass: %v", err)
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"photo.JPG":      ".jpg",
		"archive.tar.gz": ".gz",
		"noext":          "",
		"../../etc/x.sh": ".sh",
		"weird.p$p":      "",
	}
	for in, want := range tests {
		if got := extension(in); got != want {
			t.Errorf("extension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "/uploads", 1024)
	if err != nil {
		t.Fatal(err)
	}
	saved, err := l.Save("a.txt", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Remove(saved.Name); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, saved.Name)); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if err := l.Remove(saved.Name); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if err := l.Remove("../etc/passwd"); err == nil {
		t.Fatal("path outside the upload dir accepted")
	}
}
