// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/autopost/internal/core/item"
	"github.com/example/autopost/internal/ports/secondary"
)

// videoTypes covers containers that platform mime tables often omit.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

// VideoDirSource implements secondary.ItemSource over one local directory.
// Item IDs are file names; subdirectories are not walked.
type VideoDirSource struct {
	dir string
}

// NewVideoDirSource creates a source reading videos from dir.
func NewVideoDirSource(dir string) *VideoDirSource {
	return &VideoDirSource{dir: dir}
}

// Describe returns the directory being read.
func (s *VideoDirSource) Describe() string {
	return "local:" + s.dir
}

// ListCandidates returns every regular video file, oldest modification first.
func (s *VideoDirSource) ListCandidates(ctx context.Context) ([]item.Item, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	var items []item.Item
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		mimeType := detectMIMEType(entry.Name())
		if !item.IsVideo(mimeType) {
			continue
		}
		info, err := entry.Info()
		if errors.Is(err, os.ErrNotExist) {
			continue // removed between ReadDir and Info
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		items = append(items, item.Item{
			ID:          entry.Name(),
			Name:        entry.Name(),
			OrderingKey: info.ModTime().UTC(),
			ContentRef:  filepath.Join(s.dir, entry.Name()),
			MIMEType:    mimeType,
		})
	}

	item.Sort(items)
	return items, nil
}

// FetchContent returns the file in place. Nothing is copied, so Release is nil.
func (s *VideoDirSource) FetchContent(ctx context.Context, it item.Item) (*secondary.Media, error) {
	path := it.ContentRef
	if path == "" {
		path = filepath.Join(s.dir, it.ID)
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", secondary.ErrContentUnavailable, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", secondary.ErrContentUnavailable, path)
	}

	mimeType := it.MIMEType
	if mimeType == "" {
		mimeType = detectMIMEType(path)
	}
	return &secondary.Media{
		ItemID:   it.ID,
		Name:     it.Name,
		MIMEType: mimeType,
		Path:     path,
		Size:     info.Size(),
	}, nil
}

func detectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// Ensure VideoDirSource implements the interface
var _ secondary.ItemSource = (*VideoDirSource)(nil)
