package gdrive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/example/autopost/internal/ports/secondary"
)

type fakeFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	CreatedTime string `json:"createdTime"`
	content     string
}

// fakeDrive serves files in pages of pageLen from the files endpoint.
type fakeDrive struct {
	files   []fakeFile
	pageLen int
	queries []string
	// failures answers this many requests with 503 first.
	failures int
}

func (d *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if d.failures > 0 {
		d.failures--
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": {"code": 503, "message": "backendError"}}`))
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "files" {
		d.queries = append(d.queries, r.URL.Query().Get("q"))
		start := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			for i, f := range d.files {
				if f.ID == tok {
					start = i
				}
			}
		}
		end := len(d.files)
		next := ""
		if d.pageLen > 0 && start+d.pageLen < end {
			end = start + d.pageLen
			next = d.files[end].ID
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"files":         d.files[start:end],
			"nextPageToken": next,
		})
		return
	}

	id := strings.TrimPrefix(path, "files/")
	for _, f := range d.files {
		if f.ID == id && r.URL.Query().Get("alt") == "media" {
			w.Write([]byte(f.content))
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error": {"code": 404, "message": "File not found"}}`))
}

func newTestSource(t *testing.T, d *fakeDrive) *DriveSource {
	t.Helper()
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)

	source, err := NewDriveSource(context.Background(), "folder-1", "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewDriveSource failed: %v", err)
	}
	source.SetTempDir(t.TempDir())
	source.SetRetryPolicy(2, time.Millisecond)
	return source
}

func TestListCandidates_FollowsPagination(t *testing.T) {
	d := &fakeDrive{
		pageLen: 2,
		files: []fakeFile{
			{ID: "f3", Name: "third.mp4", MimeType: "video/mp4", CreatedTime: "2024-01-03T00:00:00Z"},
			{ID: "f1", Name: "first.mp4", MimeType: "video/mp4", CreatedTime: "2024-01-01T00:00:00Z"},
			{ID: "doc", Name: "notes", MimeType: "application/vnd.google-apps.document", CreatedTime: "2024-01-01T00:00:00Z"},
			{ID: "f2", Name: "second.mov", MimeType: "video/quicktime", CreatedTime: "2024-01-02T00:00:00.5Z"},
		},
	}
	source := newTestSource(t, d)

	items, err := source.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}

	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if strings.Join(ids, ",") != "f1,f2,f3" {
		t.Errorf("ids = %v, want [f1 f2 f3]", ids)
	}
	if len(d.queries) != 2 {
		t.Errorf("list calls = %d, want 2 pages", len(d.queries))
	}
	if !strings.Contains(d.queries[0], "'folder-1' in parents") || !strings.Contains(d.queries[0], "trashed = false") {
		t.Errorf("query = %q", d.queries[0])
	}
}

func TestFetchContent_StagesAndReleases(t *testing.T) {
	d := &fakeDrive{files: []fakeFile{
		{ID: "f1", Name: "first.mp4", MimeType: "video/mp4", CreatedTime: "2024-01-01T00:00:00Z", content: "0123456789"},
	}}
	source := newTestSource(t, d)

	items, err := source.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}

	media, err := source.FetchContent(context.Background(), items[0])
	if err != nil {
		t.Fatalf("FetchContent failed: %v", err)
	}

	data, err := os.ReadFile(media.Path)
	if err != nil {
		t.Fatalf("staged file unreadable: %v", err)
	}
	if string(data) != "0123456789" || media.Size != 10 {
		t.Errorf("staged %q (size %d)", data, media.Size)
	}
	if filepath.Base(media.Path) != "first.mp4" {
		t.Errorf("staged name = %q, want first.mp4", filepath.Base(media.Path))
	}

	if err := media.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(media.Path)); !os.IsNotExist(err) {
		t.Errorf("staging directory still exists after Close: %v", err)
	}
}

func TestFetchContent_DeletedFileIsUnavailable(t *testing.T) {
	d := &fakeDrive{files: []fakeFile{
		{ID: "f1", Name: "first.mp4", MimeType: "video/mp4", CreatedTime: "2024-01-01T00:00:00Z"},
	}}
	source := newTestSource(t, d)

	items, err := source.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	d.files = nil

	_, err = source.FetchContent(context.Background(), items[0])
	if !errors.Is(err, secondary.ErrContentUnavailable) {
		t.Fatalf("expected ErrContentUnavailable, got %v", err)
	}
}

func TestListCandidates_RetriesTransientFailure(t *testing.T) {
	d := &fakeDrive{
		failures: 2,
		files: []fakeFile{
			{ID: "f1", Name: "first.mp4", MimeType: "video/mp4", CreatedTime: "2024-01-01T00:00:00Z"},
		},
	}
	source := newTestSource(t, d)

	items, err := source.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %v, want 1", items)
	}
}

func TestListCandidates_RetriesExhausted(t *testing.T) {
	d := &fakeDrive{failures: 10}
	source := newTestSource(t, d)

	if _, err := source.ListCandidates(context.Background()); err == nil {
		t.Fatal("expected error after retries")
	}
	if 10-d.failures < 3 {
		t.Errorf("requests = %d, want at least 3 (1 + 2 retries)", 10-d.failures)
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery(`it's`); got != `it\'s` {
		t.Errorf("escapeQuery = %q", got)
	}
}
