// Package gdrive reads video items from a Google Drive folder.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/example/autopost/internal/core/item"
	"github.com/example/autopost/internal/ports/secondary"
)

const (
	pageSize   = 100
	listFields = "nextPageToken, files(id, name, mimeType, createdTime)"

	defaultMaxRetries = 3
	defaultRetryDelay = 500 * time.Millisecond
)

// DriveSource implements secondary.ItemSource over one Drive folder.
// Item IDs are Drive file IDs; the ordering key is the file's creation time.
type DriveSource struct {
	service  *drive.Service
	folderID string
	tempDir  string

	listExec     failsafe.Executor[*drive.FileList]
	downloadExec failsafe.Executor[*http.Response]
}

// NewDriveSource creates a Drive source authenticated with a service account
// key file. Extra options are appended after the credentials.
func NewDriveSource(ctx context.Context, folderID, credentialsFile string, opts ...option.ClientOption) (*DriveSource, error) {
	var clientOpts []option.ClientOption
	if credentialsFile != "" {
		clientOpts = append(clientOpts,
			option.WithCredentialsFile(credentialsFile),
			option.WithScopes(drive.DriveReadonlyScope),
		)
	}
	clientOpts = append(clientOpts, opts...)

	service, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	source := &DriveSource{service: service, folderID: folderID}
	source.SetRetryPolicy(defaultMaxRetries, defaultRetryDelay)
	return source, nil
}

// SetRetryPolicy bounds retries of transient Drive failures (429, 5xx,
// transport errors). Delays back off exponentially from baseDelay.
func (s *DriveSource) SetRetryPolicy(maxRetries int, baseDelay time.Duration) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = defaultRetryDelay
	}
	maxDelay := 60 * baseDelay

	s.listExec = failsafe.With(retrypolicy.NewBuilder[*drive.FileList]().
		HandleIf(func(_ *drive.FileList, err error) bool { return isTransient(err) }).
		WithBackoff(baseDelay, maxDelay).
		WithMaxRetries(maxRetries).
		WithJitterFactor(0.1).
		Build())
	//nolint:bodyclose // false positive: [*http.Response] is a generic type parameter, not an actual response
	s.downloadExec = failsafe.With(retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(_ *http.Response, err error) bool { return isTransient(err) }).
		WithBackoff(baseDelay, maxDelay).
		WithMaxRetries(maxRetries).
		WithJitterFactor(0.1).
		Build())
}

// SetTempDir sets where downloads are staged. Empty means os.TempDir().
func (s *DriveSource) SetTempDir(dir string) {
	s.tempDir = dir
}

// Describe returns the folder being read.
func (s *DriveSource) Describe() string {
	return "drive:" + s.folderID
}

// ListCandidates returns every non-trashed video in the folder, following
// pagination, oldest first.
func (s *DriveSource) ListCandidates(ctx context.Context) ([]item.Item, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false and mimeType contains 'video/'",
		escapeQuery(s.folderID))

	var items []item.Item
	pageToken := ""
	for {
		call := s.service.Files.List().
			Q(query).
			Fields(listFields).
			OrderBy("createdTime").
			PageSize(pageSize).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := s.listExec.WithContext(ctx).Get(func() (*drive.FileList, error) {
			return call.Do()
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list drive folder %s: %w", s.folderID, err)
		}

		for _, f := range list.Files {
			if !item.IsVideo(f.MimeType) {
				continue
			}
			created, err := time.Parse(time.RFC3339, f.CreatedTime)
			if err != nil {
				return nil, fmt.Errorf("drive file %s has invalid createdTime %q: %w", f.Id, f.CreatedTime, err)
			}
			items = append(items, item.Item{
				ID:          f.Id,
				Name:        f.Name,
				OrderingKey: created.UTC(),
				ContentRef:  f.Id,
				MIMEType:    f.MimeType,
			})
		}

		pageToken = list.NextPageToken
		if pageToken == "" {
			break
		}
	}

	item.Sort(items)
	return items, nil
}

// FetchContent downloads the file into a private temporary directory.
// Release removes the directory.
func (s *DriveSource) FetchContent(ctx context.Context, it item.Item) (*secondary.Media, error) {
	fileID := it.ContentRef
	if fileID == "" {
		fileID = it.ID
	}

	call := s.service.Files.Get(fileID).SupportsAllDrives(true).Context(ctx)
	resp, err := s.downloadExec.WithContext(ctx).Get(func() (*http.Response, error) {
		return call.Download()
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: drive file %s: %v", secondary.ErrContentUnavailable, fileID, err)
		}
		return nil, fmt.Errorf("failed to download drive file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	dir, err := os.MkdirTemp(s.tempDir, "autopost_")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	release := func() error { return os.RemoveAll(dir) }

	path := filepath.Join(dir, stagedName(it))
	size, err := writeFile(path, resp.Body)
	if err != nil {
		_ = release()
		return nil, fmt.Errorf("failed to stage drive file %s: %w", fileID, err)
	}

	return &secondary.Media{
		ItemID:   it.ID,
		Name:     it.Name,
		MIMEType: it.MIMEType,
		Path:     path,
		Size:     size,
		Release:  release,
	}, nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}

// stagedName keeps the original extension; some upload endpoints sniff it.
func stagedName(it item.Item) string {
	name := filepath.Base(it.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = it.ID
	}
	return name
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}

func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// Ensure DriveSource implements the interface
var _ secondary.ItemSource = (*DriveSource)(nil)
