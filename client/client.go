package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/picfeed/picfeed-client/cmd/models"
)

// Client is a typed wrapper over the content-sharing REST API. It does no
// business logic of its own: request construction and response decoding
// only. All methods take a context so callers can cancel or time out.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API served at baseURL.
func New(baseURL string) *Client {
	return NewWithTimeout(baseURL, 15*time.Second)
}

// NewWithTimeout creates a client with an explicit per-request timeout.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the backend, carrying the HTTP
// status and the backend's detail message.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Detail)
}

// do issues the request, checks the status, and decodes the JSON body into
// out when out is non-nil. Every request carries a correlation ID so calls
// can be matched against the backend's interaction log.
func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail struct {
			Detail string `json:"detail"`
		}
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &detail); err != nil || detail.Detail == "" {
			detail.Detail = string(bytes.TrimSpace(body))
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: detail.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// CreateUser registers a new account and returns the canonical record.
func (c *Client) CreateUser(ctx context.Context, username, email string) (models.User, error) {
	payload := map[string]string{"username": username, "email": email}
	var user models.User
	err := c.postJSON(ctx, "/users/", payload, &user)
	return user, err
}

// GetUser fetches one user by ID.
func (c *Client) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := c.getJSON(ctx, "/users/"+url.PathEscape(userID), &user)
	return user, err
}

// ListUsers fetches every account on the platform.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.getJSON(ctx, "/users/", &users)
	return users, err
}

// ToggleFollow flips the follow state between userID and targetID. The
// backend reports which direction the toggle went.
func (c *Client) ToggleFollow(ctx context.Context, userID, targetID string) (models.FollowResult, error) {
	path := "/users/" + url.PathEscape(userID) + "/follow/" + url.PathEscape(targetID)
	var result models.FollowResult
	err := c.postJSON(ctx, path, nil, &result)
	return result, err
}

// IsFollowing reports whether userID currently follows targetID.
func (c *Client) IsFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	path := "/users/" + url.PathEscape(userID) + "/is-following/" + url.PathEscape(targetID)
	var result struct {
		IsFollowing bool `json:"is_following"`
	}
	err := c.getJSON(ctx, path, &result)
	return result.IsFollowing, err
}

// Following lists the users that userID follows.
func (c *Client) Following(ctx context.Context, userID string) ([]models.User, error) {
	var users []models.User
	err := c.getJSON(ctx, "/users/"+url.PathEscape(userID)+"/following", &users)
	return users, err
}

// UploadImage submits a new post as a multipart form and returns the
// canonical record with the server-assigned ID and timestamp.
func (c *Client) UploadImage(ctx context.Context, upload models.ImageUpload) (models.Image, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":       upload.Title,
		"description": upload.Description,
		"image_url":   upload.ImageURL,
		"uploader_id": upload.UploaderID,
		"is_trial":    strconv.FormatBool(upload.IsTrial),
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return models.Image{}, err
		}
	}
	if err := form.Close(); err != nil {
		return models.Image{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/upload", &buf)
	if err != nil {
		return models.Image{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var image models.Image
	err = c.do(req, &image)
	return image, err
}

// Feed fetches the posts visible to userID, most recent first. The
// ordering is owned by the backend; the client preserves it.
func (c *Client) Feed(ctx context.Context, userID string) ([]models.Image, error) {
	var images []models.Image
	err := c.getJSON(ctx, "/images/feed/"+url.PathEscape(userID), &images)
	return images, err
}

// GetImage fetches one post. When userID is non-empty the viewer-relative
// flags (is_liked, is_shared, is_from_non_follower) are computed for it.
func (c *Client) GetImage(ctx context.Context, imageID, userID string) (models.Image, error) {
	path := "/images/" + url.PathEscape(imageID)
	if userID != "" {
		path += "?user_id=" + url.QueryEscape(userID)
	}
	var image models.Image
	err := c.getJSON(ctx, path, &image)
	return image, err
}

// LikeImage toggles userID's like on imageID.
func (c *Client) LikeImage(ctx context.Context, imageID, userID string) error {
	path := "/images/" + url.PathEscape(imageID) + "/like?user_id=" + url.QueryEscape(userID)
	return c.postJSON(ctx, path, nil, nil)
}

// ShareImage triggers a share. With autoShare the backend fans the post
// out to everyone the sharer follows (except the uploader).
func (c *Client) ShareImage(ctx context.Context, imageID, userID string, autoShare bool) error {
	path := "/images/" + url.PathEscape(imageID) + "/share?user_id=" + url.QueryEscape(userID)
	payload := map[string]interface{}{
		"image_id":   imageID,
		"auto_share": autoShare,
	}
	return c.postJSON(ctx, path, payload, nil)
}

// ShareToUser shares imageID with one specific followed user.
func (c *Client) ShareToUser(ctx context.Context, imageID, userID, targetID string) error {
	path := "/images/" + url.PathEscape(imageID) + "/share-to-user?user_id=" +
		url.QueryEscape(userID) + "&target_user_id=" + url.QueryEscape(targetID)
	return c.postJSON(ctx, path, nil, nil)
}

// SharedPosts fetches the posts shared to userID, most recently shared
// first.
func (c *Client) SharedPosts(ctx context.Context, userID string) ([]models.SharedPost, error) {
	var posts []models.SharedPost
	err := c.getJSON(ctx, "/images/shared/"+url.PathEscape(userID), &posts)
	return posts, err
}

// ImageLikes lists the users who liked imageID.
func (c *Client) ImageLikes(ctx context.Context, imageID string) (models.LikeList, error) {
	var likes models.LikeList
	err := c.getJSON(ctx, "/images/"+url.PathEscape(imageID)+"/likes", &likes)
	return likes, err
}

// UserAnalytics fetches the engagement summary for one user.
func (c *Client) UserAnalytics(ctx context.Context, userID string) (models.UserAnalytics, error) {
	var analytics models.UserAnalytics
	err := c.getJSON(ctx, "/analytics/"+url.PathEscape(userID), &analytics)
	return analytics, err
}

// SystemAnalytics fetches the platform-wide summary.
func (c *Client) SystemAnalytics(ctx context.Context) (models.SystemAnalytics, error) {
	var analytics models.SystemAnalytics
	err := c.getJSON(ctx, "/analytics/system", &analytics)
	return analytics, err
}

// Health probes the backend's liveness endpoint.
func (c *Client) Health(ctx context.Context) (models.Health, error) {
	var health models.Health
	err := c.getJSON(ctx, "/health", &health)
	return health, err
}
