package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	// Set a deterministic HOME for the duration of this test so we never skip.
	origHome, hadHome := os.LookupEnv("HOME")
	origUserProfile, hadUserProfile := os.LookupEnv("USERPROFILE")
	t.Cleanup(func() {
		if hadHome {
			_ = os.Setenv("HOME", origHome)
		} else {
			_ = os.Unsetenv("HOME")
		}
		if hadUserProfile {
			_ = os.Setenv("USERPROFILE", origUserProfile)
		} else {
			_ = os.Unsetenv("USERPROFILE")
		}
	})

	home := t.TempDir()
	_ = os.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		_ = os.Setenv("USERPROFILE", home)
	}
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	exp, err := ExpandHome("~/acserver")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if filepath.Base(exp) != "acserver" {
		t.Fatalf("unexpected expanded path: %q", exp)
	}
}

func TestPathExistsAndRegularFile(t *testing.T) {
	dir := t.TempDir()
	if !PathExists(dir) {
		t.Fatalf("expected dir to exist")
	}
	if IsRegularFile(dir) {
		t.Fatalf("dir is not a regular file")
	}
	p := filepath.Join(dir, "f")
	if PathExists(p) {
		t.Fatalf("expected missing path")
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !IsRegularFile(p) {
		t.Fatalf("expected regular file")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg", "server_cfg.ini")
	if err := WriteFileAtomic(p, []byte("[SERVER]\nNAME=a\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFileAtomic(p, []byte("[SERVER]\nNAME=b\n"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "[SERVER]\nNAME=b\n" {
		t.Fatalf("content=%q", string(b))
	}
	entries, _ := os.ReadDir(filepath.Dir(p))
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, got %d entries", len(entries))
	}
}

func TestWriteFileAtomicSyncsDirectory(t *testing.T) {
	var synced []string
	orig := syncDir
	syncDir = func(dir string) error {
		synced = append(synced, dir)
		return orig(dir)
	}
	t.Cleanup(func() { syncDir = orig })

	p := filepath.Join(t.TempDir(), "presets", "index.json")
	if err := WriteFileAtomic(p, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(synced) != 1 || synced[0] != filepath.Dir(p) {
		t.Fatalf("directory not synced after rename: %v", synced)
	}
}

func TestWriteFileAtomicReportsDirectorySyncFailure(t *testing.T) {
	orig := syncDir
	syncDir = func(string) error { return errors.New("sync failed") }
	t.Cleanup(func() { syncDir = orig })

	p := filepath.Join(t.TempDir(), "index.json")
	if err := WriteFileAtomic(p, []byte("{}"), 0o644); err == nil {
		t.Fatal("expected directory sync error")
	}
}
