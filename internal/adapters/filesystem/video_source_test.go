package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/autopost/internal/ports/secondary"
)

func writeVideo(t *testing.T, dir, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake video "+name), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}
	return path
}

func TestListCandidates_OrderAndFiltering(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	writeVideo(t, dir, "c.mp4", base.Add(2*time.Hour))
	writeVideo(t, dir, "a.mov", base)
	writeVideo(t, dir, "b.webm", base) // same time as a.mov, sorts after it by ID
	writeVideo(t, dir, "notes.txt", base)
	writeVideo(t, dir, ".hidden.mp4", base)
	if err := os.Mkdir(filepath.Join(dir, "sub.mp4"), 0755); err != nil {
		t.Fatalf("failed to mkdir: %v", err)
	}

	source := NewVideoDirSource(dir)
	items, err := source.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}

	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	expected := []string{"a.mov", "b.webm", "c.mp4"}
	if len(ids) != len(expected) {
		t.Fatalf("ids = %v, want %v", ids, expected)
	}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], expected[i])
		}
	}
	if items[2].MIMEType != "video/mp4" {
		t.Errorf("MIMEType = %q, want video/mp4", items[2].MIMEType)
	}
	if items[2].ContentRef != filepath.Join(dir, "c.mp4") {
		t.Errorf("ContentRef = %q", items[2].ContentRef)
	}
}

func TestListCandidates_MissingDirectory(t *testing.T) {
	source := NewVideoDirSource(filepath.Join(t.TempDir(), "gone"))

	if _, err := source.ListCandidates(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestFetchContent(t *testing.T) {
	dir := t.TempDir()
	path := writeVideo(t, dir, "clip.mp4", time.Now())
	source := NewVideoDirSource(dir)

	items, err := source.ListCandidates(context.Background())
	if err != nil || len(items) != 1 {
		t.Fatalf("ListCandidates = %v, %v", items, err)
	}

	media, err := source.FetchContent(context.Background(), items[0])
	if err != nil {
		t.Fatalf("FetchContent failed: %v", err)
	}
	defer media.Close()

	if media.Path != path {
		t.Errorf("Path = %q, want %q", media.Path, path)
	}
	if media.Size != int64(len("fake video clip.mp4")) {
		t.Errorf("Size = %d", media.Size)
	}
	if media.Release != nil {
		t.Error("in-place media should not need release")
	}
}

func TestFetchContent_RemovedAfterListing(t *testing.T) {
	dir := t.TempDir()
	path := writeVideo(t, dir, "clip.mp4", time.Now())
	source := NewVideoDirSource(dir)

	items, err := source.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}

	_, err = source.FetchContent(context.Background(), items[0])
	if !errors.Is(err, secondary.ErrContentUnavailable) {
		t.Fatalf("expected ErrContentUnavailable, got %v", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"a.mp4", "video/mp4"},
		{"A.MOV", "video/quicktime"},
		{"a.mkv", "video/x-matroska"},
		{"a.png", "image/png"},
		{"noext", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.name); got != tt.expected {
				t.Errorf("detectMIMEType(%q) = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}
