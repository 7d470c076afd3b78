package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	t.Run("creates nested directories", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "dist", "worker.js")
		if err := WriteAtomic(path, []byte("// out\n")); err != nil {
			t.Fatalf("WriteAtomic: %v", err)
		}
		b, err := os.ReadFile(path) // #nosec G304 -- test-owned temp path.
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if string(b) != "// out\n" {
			t.Fatalf("content=%q", b)
		}
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "middleware.ts")
		if err := WriteAtomic(path, []byte("v1")); err != nil {
			t.Fatalf("first write: %v", err)
		}
		if err := WriteAtomic(path, []byte("v2")); err != nil {
			t.Fatalf("second write: %v", err)
		}
		b, err := os.ReadFile(path) // #nosec G304 -- test-owned temp path.
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if string(b) != "v2" {
			t.Fatalf("content=%q", b)
		}
	})

	t.Run("leaves no temp file behind", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.js")
		if err := WriteAtomic(path, []byte("x")); err != nil {
			t.Fatalf("WriteAtomic: %v", err)
		}
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Fatalf("temp file still present: %v", err)
		}
	})

	t.Run("empty path fails", func(t *testing.T) {
		if err := WriteAtomic("  ", []byte("x")); err == nil {
			t.Fatalf("expected error for empty path")
		}
	})
}
