package primary

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/autopost/internal/ports/secondary"
)

// Publisher defines the primary port for publishing one media item.
type Publisher interface {
	// Publish uploads media and creates a post with caption.
	// Failures are *PublishError naming the failed stage.
	Publish(ctx context.Context, media *secondary.Media, caption string) (string, error)
}

// PublishStage names a publish sub-step.
type PublishStage string

const (
	StageUpload PublishStage = "upload"
	StagePost   PublishStage = "post"
)

var (
	// ErrUploadFailed matches a PublishError from the upload stage.
	ErrUploadFailed = errors.New("upload failed")
	// ErrPostFailed matches a PublishError from the post stage.
	ErrPostFailed = errors.New("post failed")
)

// PublishError reports which publish stage failed.
type PublishError struct {
	Stage   PublishStage
	MediaID string // set when the upload succeeded but the post did not
	Err     error
}

func (e *PublishError) Error() string {
	if e.Stage == StagePost && e.MediaID != "" {
		return fmt.Sprintf("%s (media %s): %v", e.sentinel(), e.MediaID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
}

func (e *PublishError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

func (e *PublishError) sentinel() error {
	if e.Stage == StagePost {
		return ErrPostFailed
	}
	return ErrUploadFailed
}
