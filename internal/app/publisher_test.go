package app

import (
	"context"
	"errors"
	"testing"

	"github.com/example/autopost/internal/ports/primary"
	"github.com/example/autopost/internal/ports/secondary"
)

func TestPublish(t *testing.T) {
	tests := []struct {
		name      string
		platform  *mockPlatform
		wantErr   error
		wantStage primary.PublishStage
		wantMedia string
	}{
		{name: "success", platform: &mockPlatform{}},
		{name: "upload fails", platform: &mockPlatform{uploadErr: errBoom}, wantErr: primary.ErrUploadFailed, wantStage: primary.StageUpload},
		{name: "post fails", platform: &mockPlatform{postErr: errBoom}, wantErr: primary.ErrPostFailed, wantStage: primary.StagePost, wantMedia: "media-a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := NewPublisher(tt.platform)
			media := &secondary.Media{ItemID: "a", Path: "/tmp/a.mp4"}

			postID, err := publisher.Publish(context.Background(), media, "caption")

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Publish failed: %v", err)
				}
				if postID != "post-1" {
					t.Errorf("postID = %q, want post-1", postID)
				}
				if tt.platform.posts[0] != (postCall{mediaID: "media-a", text: "caption"}) {
					t.Errorf("post = %+v", tt.platform.posts[0])
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, errBoom) {
				t.Errorf("cause not preserved: %v", err)
			}
			var pubErr *primary.PublishError
			if !errors.As(err, &pubErr) {
				t.Fatalf("expected *PublishError, got %T", err)
			}
			if pubErr.Stage != tt.wantStage || pubErr.MediaID != tt.wantMedia {
				t.Errorf("PublishError = %+v", pubErr)
			}
		})
	}
}
