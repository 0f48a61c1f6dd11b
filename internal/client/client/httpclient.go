package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/dmitrijs2005/feedsync/internal/common"
	"github.com/google/uuid"
)

type HTTPClient struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

// NewHTTPClient returns an API client rooted at baseURL. Timeout bounds every
// request, body included; tokens may be nil.
func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenSource) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

func (c *HTTPClient) FetchAfter(ctx context.Context, id int64, count int) ([]models.Post, error) {
	return c.list(ctx, fmt.Sprintf("/api/posts/%d/after", id), count)
}

func (c *HTTPClient) FetchBefore(ctx context.Context, id int64, count int) ([]models.Post, error) {
	return c.list(ctx, fmt.Sprintf("/api/posts/%d/before", id), count)
}

func (c *HTTPClient) FetchNewer(ctx context.Context, id int64) ([]models.Post, error) {
	return c.list(ctx, fmt.Sprintf("/api/posts/%d/newer", id), 0)
}

func (c *HTTPClient) list(ctx context.Context, path string, count int) ([]models.Post, error) {
	if count > 0 {
		path += "?" + url.Values{"count": {strconv.Itoa(count)}}.Encode()
	}
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, path, nil, "", &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *HTTPClient) Save(ctx context.Context, post models.Post) (models.Post, error) {
	body, err := json.Marshal(post)
	if err != nil {
		return models.Post{}, fmt.Errorf("marshal post: %w", err)
	}

	var saved models.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", bytes.NewReader(body), "application/json", &saved); err != nil {
		return models.Post{}, err
	}
	return saved, nil
}

func (c *HTTPClient) RemoveByID(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), nil, "", nil)
}

func (c *HTTPClient) LikeByID(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/likes", id), nil, "", nil)
}

func (c *HTTPClient) UnlikeByID(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d/likes", id), nil, "", nil)
}

func (c *HTTPClient) Upload(ctx context.Context, name string, r io.Reader) (models.Media, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return models.Media{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return models.Media{}, fmt.Errorf("read media %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return models.Media{}, fmt.Errorf("close multipart: %w", err)
	}

	var media models.Media
	if err := c.do(ctx, http.MethodPost, "/api/media", &buf, mw.FormDataContentType(), &media); err != nil {
		return models.Media{}, err
	}
	return media, nil
}

// do sends one request. Transport failures wrap ErrUnavailable, non-2xx
// responses become *StatusError, and out (when non-nil) must be decodable
// from a non-empty body.
func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set(common.AuthorizationHeaderName, token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, Message: reason(resp)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &StatusError{Code: resp.StatusCode, Message: "empty response body"}
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// reason returns the reason phrase of resp, e.g. "Internal Server Error".
func reason(resp *http.Response) string {
	if msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}
