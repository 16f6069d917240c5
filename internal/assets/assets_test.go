package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestManagerLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "textures"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "textures", "wood floor.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatalf("AddDir failed: %v", err)
	}

	data, err := m.Load("textures/wood%20floor.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("unexpected data %q", data)
	}

	if _, err := m.Load("textures/wood%20floor.png"); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	hits, misses := m.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}

	want := filepath.Join(dir, "textures", "wood floor.png")
	if got := m.Locate("textures/wood%20floor.png"); got != want {
		t.Errorf("Locate = %q, want %q", got, want)
	}
}

func TestManagerPriority(t *testing.T) {
	m := NewManager()
	m.AddFS("low", fstest.MapFS{"a.bin": {Data: []byte("low")}})
	m.AddFS("high", fstest.MapFS{"a.bin": {Data: []byte("high")}})

	data, err := m.Load("a.bin")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "high" {
		t.Errorf("last added root should win, got %q", data)
	}
	if m.Locate("a.bin") != "" {
		t.Error("non-directory roots have no OS path")
	}
}

func TestManagerNotFound(t *testing.T) {
	m := NewManager()
	m.AddFS("mem", fstest.MapFS{})

	if _, err := m.Load("missing.bin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Load("../outside.bin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for escaping path, got %v", err)
	}
}

func TestAddDirRejectsFiles(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := NewManager().AddDir(f); err == nil {
		t.Error("expected error for non-directory")
	}
}

func TestCache(t *testing.T) {
	c := NewCache()
	if _, ok := c.Get("a"); ok {
		t.Error("empty cache should miss")
	}
	c.Set("a", []byte{1})
	if d, ok := c.Get("a"); !ok || d[0] != 1 {
		t.Error("expected cached value")
	}
	c.Clear()
	if hits, misses := c.Stats(); hits != 0 || misses != 0 {
		t.Error("Clear should reset stats")
	}
}
