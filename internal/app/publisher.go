package app

import (
	"context"

	"github.com/example/autopost/internal/ports/primary"
	"github.com/example/autopost/internal/ports/secondary"
)

// PublisherImpl implements primary.Publisher over a platform client.
type PublisherImpl struct {
	platform secondary.PlatformClient
}

// NewPublisher creates a publisher for platform.
func NewPublisher(platform secondary.PlatformClient) *PublisherImpl {
	return &PublisherImpl{platform: platform}
}

// Publish uploads media, then creates the post. Either failure is a
// *primary.PublishError naming the stage.
func (p *PublisherImpl) Publish(ctx context.Context, media *secondary.Media, caption string) (string, error) {
	mediaID, err := p.platform.UploadMedia(ctx, media)
	if err != nil {
		return "", &primary.PublishError{Stage: primary.StageUpload, Err: err}
	}

	postID, err := p.platform.CreatePost(ctx, mediaID, caption)
	if err != nil {
		return "", &primary.PublishError{Stage: primary.StagePost, MediaID: mediaID, Err: err}
	}
	return postID, nil
}

// Ensure PublisherImpl implements the interface
var _ primary.Publisher = (*PublisherImpl)(nil)
