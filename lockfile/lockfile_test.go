package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	h1 := Hash([]byte("hello world"))
	h2 := Hash([]byte("hello world"))
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64 hex chars", len(h1))
	}
	h3 := Hash([]byte("different"))
	if h1 == h3 {
		t.Errorf("Hash collision: %s == %s", h1, h3)
	}
}

func TestHashKnownVector(t *testing.T) {
	// BLAKE3 of the empty input.
	want := "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	if got := Hash(nil); got != want {
		t.Errorf("Hash(nil) = %s, want %s", got, want)
	}
}

func TestLoadNonExistent(t *testing.T) {
	dir := t.TempDir()
	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if lf.Version != Version {
		t.Errorf("Version = %d, want %d", lf.Version, Version)
	}
	if lf.Len() != 0 {
		t.Errorf("Files not empty: %v", lf.Files)
	}
	if lf.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("Path = %q", lf.Path())
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lf.Reset("autoglm-phone-9b")
	lf.Update("pkg/a.py", []byte("a = 1\n"))
	lf.Update("pkg/b.py", []byte("b = 2\n"))
	lf.Update("main.py", []byte("print()\n"))

	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, LockFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Lock file not created at %s", path)
	}

	lf2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	if lf2.Len() != 3 {
		t.Errorf("files = %d, want 3", lf2.Len())
	}
	if lf2.Model != "autoglm-phone-9b" {
		t.Errorf("Model = %q", lf2.Model)
	}
	if lf2.IsChanged("pkg/a.py", []byte("a = 1\n")) {
		t.Error("pkg/a.py should be unchanged after reload")
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("files: [oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load(invalid yaml) = nil error")
	}
}

func TestLoadFutureVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("version: 99\nfiles: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load(version 99) = nil error")
	}
}

func TestIsChanged(t *testing.T) {
	lf := New(t.TempDir())

	// New entry is always changed
	if !lf.IsChanged("a.py", []byte("x")) {
		t.Error("new entry should be changed")
	}

	// After update, same content is not changed
	lf.Update("a.py", []byte("x"))
	if lf.IsChanged("a.py", []byte("x")) {
		t.Error("unchanged entry should not be changed")
	}

	// Modified content is changed
	if !lf.IsChanged("a.py", []byte("y")) {
		t.Error("modified entry should be changed")
	}

	// Different file is changed
	if !lf.IsChanged("b.py", []byte("x")) {
		t.Error("different file should be changed")
	}
}

func TestKeyNormalizes(t *testing.T) {
	lf := New(t.TempDir())
	lf.Update("./pkg//mod.py", []byte("x"))
	if lf.IsChanged("pkg/mod.py", []byte("x")) {
		t.Error("equivalent paths should share one entry")
	}
	if got := Key(filepath.Join("pkg", "mod.py")); got != "pkg/mod.py" {
		t.Errorf("Key = %q, want %q", got, "pkg/mod.py")
	}
}

func TestClean(t *testing.T) {
	lf := New(t.TempDir())

	lf.Update("a.py", []byte("a"))
	lf.Update("b.py", []byte("b"))
	lf.Update("deleted.py", []byte("d"))

	if n := lf.Clean([]string{"a.py", "b.py"}); n != 1 {
		t.Errorf("Clean removed %d, want 1", n)
	}

	if lf.IsChanged("a.py", []byte("a")) {
		t.Error("a.py should still be tracked")
	}
	if !lf.IsChanged("deleted.py", []byte("d")) {
		t.Error("deleted.py should be removed by Clean")
	}
}

func TestRemove(t *testing.T) {
	lf := New(t.TempDir())
	lf.Update("a.py", []byte("a"))
	lf.Remove("a.py")
	if lf.Len() != 0 {
		t.Errorf("files after Remove = %d, want 0", lf.Len())
	}
}

func TestReset(t *testing.T) {
	lf := New(t.TempDir())

	if lf.Reset("m1") {
		t.Error("first model should not reset an empty lock file")
	}
	lf.Update("a.py", []byte("a"))

	if lf.Reset("m1") {
		t.Error("same model should not reset")
	}
	if !lf.Reset("m2") {
		t.Error("new model should reset")
	}
	if lf.Len() != 0 || lf.Model != "m2" {
		t.Errorf("after reset: files=%d model=%q", lf.Len(), lf.Model)
	}
}

func TestPaths(t *testing.T) {
	lf := New(t.TempDir())

	lf.Update("c.py", nil)
	lf.Update("a.py", nil)
	lf.Update("b/x.py", nil)

	paths := lf.Paths()
	expected := []string{"a.py", "b/x.py", "c.py"}
	if len(paths) != len(expected) {
		t.Fatalf("paths len = %d, want %d", len(paths), len(expected))
	}
	for i, want := range expected {
		if paths[i] != want {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want)
		}
	}
}

func TestSummary(t *testing.T) {
	lf := New(t.TempDir())

	if lf.Summary() != "empty" {
		t.Errorf("empty summary = %q, want %q", lf.Summary(), "empty")
	}

	lf.Update("pkg/a.py", nil)
	lf.Update("pkg/b.py", nil)
	lf.Update("setup.py", nil)
	s := lf.Summary()
	if !strings.HasPrefix(s, "3 files") || !strings.Contains(s, "pkg: 2") || !strings.Contains(s, ".: 1") {
		t.Errorf("Summary = %q", s)
	}
}

func TestConcurrentAccess(t *testing.T) {
	lf := New(t.TempDir())

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			p := "file" + string(rune('0'+n)) + ".py"
			lf.Update(p, []byte("value"))
			lf.IsChanged(p, []byte("value"))
			lf.Len()
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if lf.Len() != 10 {
		t.Errorf("files after concurrent writes = %d, want 10", lf.Len())
	}
}
