package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

type createPostRequest struct {
	Text  string          `json:"text"`
	Media *postMediaField `json:"media,omitempty"`
}

type postMediaField struct {
	MediaIDs []string `json:"media_ids"`
}

type createPostResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// CreatePost publishes text with the uploaded media attached.
func (c *Client) CreatePost(ctx context.Context, mediaID, text string) (string, error) {
	reqBody := createPostRequest{Text: text}
	if mediaID != "" {
		reqBody.Media = &postMediaField{MediaIDs: []string{mediaID}}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	target := c.apiURL + "/tweets"
	var resp createPostResponse
	err = c.doJSON(ctx, "create post", false, &resp, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", errors.New("create post: response has no data.id")
	}
	return resp.Data.ID, nil
}
