package xapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/autopost/internal/ports/secondary"
)

const mediaCategoryVideo = "tweet_video"

// Processing states reported by FINALIZE and STATUS.
const (
	stateSucceeded  = "succeeded"
	stateFailed     = "failed"
	statePending    = "pending"
	stateInProgress = "in_progress"
)

type mediaResponse struct {
	MediaIDString  string          `json:"media_id_string"`
	ProcessingInfo *processingInfo `json:"processing_info,omitempty"`
}

type processingInfo struct {
	State           string `json:"state"`
	CheckAfterSecs  int    `json:"check_after_secs"`
	ProgressPercent int    `json:"progress_percent"`
	Error           *struct {
		Code    int    `json:"code"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// UploadMedia performs INIT, APPEND per chunk and FINALIZE, then waits for
// server-side processing to finish. Returns the media ID.
func (c *Client) UploadMedia(ctx context.Context, media *secondary.Media) (string, error) {
	f, err := os.Open(media.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open media: %w", err)
	}
	defer f.Close()

	size := media.Size
	if size <= 0 {
		info, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("failed to stat media: %w", err)
		}
		size = info.Size()
	}
	mimeType := media.MIMEType
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	mediaID, err := c.initUpload(ctx, size, mimeType)
	if err != nil {
		return "", err
	}
	log := c.logger.WithFields(logrus.Fields{"media_id": mediaID, "item_id": media.ItemID})
	log.WithField("bytes", size).Debug("media upload initialized")

	buf := make([]byte, c.chunkSize)
	for segment := 0; ; segment++ {
		n, readErr := io.ReadFull(f, buf)
		if n > 0 {
			if err := c.appendChunk(ctx, mediaID, segment, buf[:n]); err != nil {
				return "", err
			}
		}
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("failed to read media: %w", readErr)
		}
	}

	info, err := c.finalize(ctx, mediaID)
	if err != nil {
		return "", err
	}
	if err := c.awaitProcessing(ctx, mediaID, info, log); err != nil {
		return "", err
	}

	log.Debug("media upload complete")
	return mediaID, nil
}

func (c *Client) postForm(ctx context.Context, op string, form url.Values, out any) error {
	body := form.Encode()
	return c.doJSON(ctx, op, true, out, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

func (c *Client) initUpload(ctx context.Context, size int64, mimeType string) (string, error) {
	form := url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.FormatInt(size, 10)},
		"media_type":     {mimeType},
		"media_category": {mediaCategoryVideo},
	}
	var resp mediaResponse
	if err := c.postForm(ctx, "media INIT", form, &resp); err != nil {
		return "", err
	}
	if resp.MediaIDString == "" {
		return "", errors.New("media INIT: response has no media_id_string")
	}
	return resp.MediaIDString, nil
}

func (c *Client) appendChunk(ctx context.Context, mediaID string, segment int, chunk []byte) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("command", "APPEND")
	_ = w.WriteField("media_id", mediaID)
	_ = w.WriteField("segment_index", strconv.Itoa(segment))
	part, err := w.CreateFormFile("media", "chunk")
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	payload := body.Bytes()
	contentType := w.FormDataContentType()

	op := fmt.Sprintf("media APPEND segment %d", segment)
	return c.doJSON(ctx, op, true, nil, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
}

func (c *Client) finalize(ctx context.Context, mediaID string) (*processingInfo, error) {
	form := url.Values{
		"command":  {"FINALIZE"},
		"media_id": {mediaID},
	}
	var resp mediaResponse
	if err := c.postForm(ctx, "media FINALIZE", form, &resp); err != nil {
		return nil, err
	}
	return resp.ProcessingInfo, nil
}

func (c *Client) status(ctx context.Context, mediaID string) (*processingInfo, error) {
	query := url.Values{
		"command":  {"STATUS"},
		"media_id": {mediaID},
	}
	target := c.uploadURL + "?" + query.Encode()

	var resp mediaResponse
	err := c.doJSON(ctx, "media STATUS", true, &resp, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
	if err != nil {
		return nil, err
	}
	return resp.ProcessingInfo, nil
}

func (c *Client) awaitProcessing(ctx context.Context, mediaID string, info *processingInfo, log *logrus.Entry) error {
	for polls := 0; info != nil; polls++ {
		switch info.State {
		case stateSucceeded:
			return nil
		case stateFailed:
			msg := "unknown error"
			if info.Error != nil && info.Error.Message != "" {
				msg = info.Error.Message
			}
			return fmt.Errorf("media %s processing failed: %s", mediaID, msg)
		case statePending, stateInProgress:
		default:
			return fmt.Errorf("media %s: unexpected processing state %q", mediaID, info.State)
		}

		if polls >= maxStatusPolls {
			return fmt.Errorf("media %s still %s after %d status checks", mediaID, info.State, polls)
		}

		wait := time.Duration(info.CheckAfterSecs) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		log.WithFields(logrus.Fields{
			"state":    info.State,
			"progress": info.ProgressPercent,
		}).Debug("waiting for media processing")
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}

		next, err := c.status(ctx, mediaID)
		if err != nil {
			return err
		}
		info = next
	}
	return nil
}
