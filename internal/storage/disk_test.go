package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSized(t *testing.T, path string, n int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, n), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.vec")
	registry := filepath.Join(dir, "registry.json")
	uploads := filepath.Join(dir, "uploads")
	writeSized(t, index, 120)
	writeSized(t, registry, 30)
	writeSized(t, filepath.Join(uploads, "a.pdf"), 7)
	writeSized(t, filepath.Join(uploads, "nested", "b.pdf"), 3)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{index}, 120},
		{"directory is summed recursively", []string{uploads}, 10},
		{"files and directory", []string{index, registry, uploads}, 160},
		{"missing path skipped", []string{index, filepath.Join(dir, "journal.db")}, 120},
		{"empty path skipped", []string{"", registry}, 30},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DiskUsageBytes = %d, want %d", got, tt.want)
			}
		})
	}
}
