package secondary

import "context"

// PlatformClient defines the secondary port for the social platform.
type PlatformClient interface {
	// UploadMedia uploads staged media and returns the platform media reference.
	UploadMedia(ctx context.Context, media *Media) (string, error)

	// CreatePost publishes a post referencing mediaID and returns the post ID.
	CreatePost(ctx context.Context, mediaID, text string) (string, error)

	// Name returns the platform name for logs.
	Name() string
}
