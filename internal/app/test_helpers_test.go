package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/autopost/internal/core/item"
	"github.com/example/autopost/internal/core/ledger"
	"github.com/example/autopost/internal/ports/secondary"
)

// Ensure mocks implement the interfaces
var (
	_ secondary.ItemSource     = (*mockItemSource)(nil)
	_ secondary.StateStore     = (*mockStateStore)(nil)
	_ secondary.PlatformClient = (*mockPlatform)(nil)
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// testItems returns items named <id>.mp4, one hour apart, in the given order.
func testItems(ids ...string) []item.Item {
	items := make([]item.Item, 0, len(ids))
	for i, id := range ids {
		items = append(items, item.Item{
			ID:          id,
			Name:        id + ".mp4",
			OrderingKey: testEpoch.Add(time.Duration(i) * time.Hour),
			MIMEType:    "video/mp4",
		})
	}
	return items
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// mockItemSource implements secondary.ItemSource for testing.
type mockItemSource struct {
	items       []item.Item
	unavailable map[string]bool
	fetchErr    map[string]error
	listErr     error
	fetched     []string
	released    int
}

func newMockItemSource(items ...item.Item) *mockItemSource {
	return &mockItemSource{
		items:       items,
		unavailable: make(map[string]bool),
		fetchErr:    make(map[string]error),
	}
}

func (m *mockItemSource) ListCandidates(ctx context.Context) ([]item.Item, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]item.Item, len(m.items))
	copy(out, m.items)
	item.Sort(out)
	return out, nil
}

func (m *mockItemSource) FetchContent(ctx context.Context, it item.Item) (*secondary.Media, error) {
	m.fetched = append(m.fetched, it.ID)
	if m.unavailable[it.ID] {
		return nil, fmt.Errorf("%w: %s", secondary.ErrContentUnavailable, it.ID)
	}
	if err := m.fetchErr[it.ID]; err != nil {
		return nil, err
	}
	return &secondary.Media{
		ItemID:   it.ID,
		Name:     it.Name,
		MIMEType: it.MIMEType,
		Path:     "/staged/" + it.Name,
		Size:     1024,
		Release: func() error {
			m.released++
			return nil
		},
	}, nil
}

func (m *mockItemSource) Describe() string {
	return "mock"
}

// mockStateStore implements secondary.StateStore in memory.
type mockStateStore struct {
	state   ledger.State
	loadErr error
	saveErr error
	saves   int
	// saveCtxErr records ctx.Err() seen by the last Save.
	saveCtxErr error
}

func newMockStateStore() *mockStateStore {
	return &mockStateStore{state: ledger.New()}
}

func (m *mockStateStore) Load(ctx context.Context) (ledger.State, error) {
	if m.loadErr != nil {
		return ledger.State{}, m.loadErr
	}
	return m.state, nil
}

func (m *mockStateStore) Save(ctx context.Context, state ledger.State) error {
	m.saveCtxErr = ctx.Err()
	if m.saveErr != nil {
		return m.saveErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.saves++
	m.state = state
	return nil
}

func (m *mockStateStore) Location() string {
	return "mem://state"
}

type postCall struct {
	mediaID string
	text    string
}

// mockPlatform implements secondary.PlatformClient for testing.
type mockPlatform struct {
	uploadErr error
	postErr   error
	uploads   []string
	posts     []postCall
	// onPost runs before CreatePost returns.
	onPost func()
}

func (m *mockPlatform) UploadMedia(ctx context.Context, media *secondary.Media) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploads = append(m.uploads, media.ItemID)
	return "media-" + media.ItemID, nil
}

func (m *mockPlatform) CreatePost(ctx context.Context, mediaID, text string) (string, error) {
	if m.postErr != nil {
		return "", m.postErr
	}
	m.posts = append(m.posts, postCall{mediaID: mediaID, text: text})
	if m.onPost != nil {
		m.onPost()
	}
	return fmt.Sprintf("post-%d", len(m.posts)), nil
}

func (m *mockPlatform) Name() string {
	return "mock"
}

var errBoom = errors.New("boom")
