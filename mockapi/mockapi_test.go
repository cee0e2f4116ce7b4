package mockapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/picfeed/picfeed-client/cmd/models"
)

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec.Code
}

func createUser(t *testing.T, handler http.Handler, username string) models.User {
	t.Helper()
	var user models.User
	code := doJSON(t, handler, http.MethodPost, "/users/",
		map[string]string{"username": username, "email": username + "@example.com"}, &user)
	if code != http.StatusOK {
		t.Fatalf("create user %s: status %d", username, code)
	}
	return user
}

func uploadImage(t *testing.T, handler http.Handler, uploaderID, title string, trial bool) models.Image {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	form.WriteField("title", title)
	form.WriteField("description", "desc of "+title)
	form.WriteField("image_url", "https://example.com/"+title+".jpg")
	form.WriteField("uploader_id", uploaderID)
	form.WriteField("is_trial", fmt.Sprintf("%v", trial))
	form.Close()

	req := httptest.NewRequest(http.MethodPost, "/images/upload", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload %s: status %d: %s", title, rec.Code, rec.Body.String())
	}
	var img models.Image
	if err := json.NewDecoder(rec.Body).Decode(&img); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	return img
}

func follow(t *testing.T, handler http.Handler, userID, targetID string) models.FollowResult {
	t.Helper()
	var result models.FollowResult
	path := fmt.Sprintf("/users/%s/follow/%s", userID, targetID)
	code := doJSON(t, handler, http.MethodPost, path, nil, &result)
	if code != http.StatusOK {
		t.Fatalf("follow: status %d", code)
	}
	return result
}

func fetchFeed(t *testing.T, handler http.Handler, userID string) []models.Image {
	t.Helper()
	var feed []models.Image
	code := doJSON(t, handler, http.MethodGet, "/images/feed/"+userID, nil, &feed)
	if code != http.StatusOK {
		t.Fatalf("feed: status %d", code)
	}
	return feed
}

func TestFollowToggle(t *testing.T) {
	handler := New().Handler()
	alice := createUser(t, handler, "alice")
	bob := createUser(t, handler, "bob")

	if r := follow(t, handler, alice.ID, bob.ID); r.Action != models.ActionFollowed {
		t.Fatalf("first toggle: got action %q", r.Action)
	}
	if r := follow(t, handler, alice.ID, bob.ID); r.Action != models.ActionUnfollowed {
		t.Fatalf("second toggle: got action %q", r.Action)
	}

	var status struct {
		IsFollowing bool `json:"is_following"`
	}
	doJSON(t, handler, http.MethodGet, fmt.Sprintf("/users/%s/is-following/%s", alice.ID, bob.ID), nil, &status)
	if status.IsFollowing {
		t.Fatalf("expected follow state back to original after two toggles")
	}
}

func TestFollowValidation(t *testing.T) {
	handler := New().Handler()
	alice := createUser(t, handler, "alice")

	path := fmt.Sprintf("/users/%s/follow/%s", alice.ID, alice.ID)
	if code := doJSON(t, handler, http.MethodPost, path, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("self-follow: expected 400, got %d", code)
	}
	path = fmt.Sprintf("/users/%s/follow/nope", alice.ID)
	if code := doJSON(t, handler, http.MethodPost, path, nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown target: expected 404, got %d", code)
	}
}

func TestFeedVisibilityRules(t *testing.T) {
	handler := New().Handler()
	alice := createUser(t, handler, "alice")
	bob := createUser(t, handler, "bob")
	carol := createUser(t, handler, "carol")

	// alice follows bob but not carol.
	follow(t, handler, alice.ID, bob.ID)

	own := uploadImage(t, handler, alice.ID, "own", false)
	followedRegular := uploadImage(t, handler, bob.ID, "followed-regular", false)
	followedTrial := uploadImage(t, handler, bob.ID, "followed-trial", true)
	strangerRegular := uploadImage(t, handler, carol.ID, "stranger-regular", false)
	strangerTrial := uploadImage(t, handler, carol.ID, "stranger-trial", true)

	feed := fetchFeed(t, handler, alice.ID)
	got := map[string]models.Image{}
	for _, img := range feed {
		got[img.ID] = img
	}

	for _, want := range []string{own.ID, followedRegular.ID, strangerTrial.ID} {
		if _, ok := got[want]; !ok {
			t.Fatalf("expected image %s in feed", want)
		}
	}
	for _, excluded := range []string{followedTrial.ID, strangerRegular.ID} {
		if _, ok := got[excluded]; ok {
			t.Fatalf("image %s must not be visible", excluded)
		}
	}

	if !got[strangerTrial.ID].IsFromNonFollower {
		t.Fatalf("stranger trial post should be flagged as from a non-follower")
	}
	if got[own.ID].IsFromNonFollower {
		t.Fatalf("own post must never be flagged as from a non-follower")
	}
}

func TestFeedOrdering(t *testing.T) {
	handler := New().Handler()
	alice := createUser(t, handler, "alice")
	first := uploadImage(t, handler, alice.ID, "first", false)
	second := uploadImage(t, handler, alice.ID, "second", false)

	feed := fetchFeed(t, handler, alice.ID)
	if len(feed) != 2 {
		t.Fatalf("expected 2 images, got %d", len(feed))
	}
	if feed[0].UploadTime.Before(feed[1].UploadTime) {
		t.Fatalf("feed not ordered most-recent-first")
	}
	ids := map[string]bool{feed[0].ID: true, feed[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Fatalf("feed missing an uploaded image")
	}
}

func TestLikeToggle(t *testing.T) {
	handler := New().Handler()
	alice := createUser(t, handler, "alice")
	img := uploadImage(t, handler, alice.ID, "pic", false)

	likePath := fmt.Sprintf("/images/%s/like?user_id=%s", img.ID, alice.ID)
	if code := doJSON(t, handler, http.MethodPost, likePath, nil, nil); code != http.StatusOK {
		t.Fatalf("like: status %d", code)
	}

	var after models.Image
	doJSON(t, handler, http.MethodGet, fmt.Sprintf("/images/%s?user_id=%s", img.ID, alice.ID), nil, &after)
	if !after.IsLiked || after.LikesCount != 1 {
		t.Fatalf("after like: is_liked=%v count=%d", after.IsLiked, after.LikesCount)
	}

	doJSON(t, handler, http.MethodPost, likePath, nil, nil)
	doJSON(t, handler, http.MethodGet, fmt.Sprintf("/images/%s?user_id=%s", img.ID, alice.ID), nil, &after)
	if after.IsLiked || after.LikesCount != 0 {
		t.Fatalf("after unlike: is_liked=%v count=%d", after.IsLiked, after.LikesCount)
	}
}

func TestTargetedShareIsIdempotent(t *testing.T) {
	handler := New().Handler()
	alice := createUser(t, handler, "alice")
	bob := createUser(t, handler, "bob")
	carol := createUser(t, handler, "carol")

	follow(t, handler, alice.ID, bob.ID)
	img := uploadImage(t, handler, carol.ID, "pic", false)

	sharePath := fmt.Sprintf("/images/%s/share-to-user?user_id=%s&target_user_id=%s", img.ID, alice.ID, bob.ID)
	for i := 0; i < 2; i++ {
		if code := doJSON(t, handler, http.MethodPost, sharePath, nil, nil); code != http.StatusOK {
			t.Fatalf("share attempt %d: status %d", i+1, code)
		}
	}

	var inbox []models.SharedPost
	doJSON(t, handler, http.MethodGet, "/images/shared/"+bob.ID, nil, &inbox)
	if len(inbox) != 1 {
		t.Fatalf("duplicate share must not duplicate the inbox entry, got %d", len(inbox))
	}
	if inbox[0].SharedByUsername != "alice" {
		t.Fatalf("shared_by_username = %q", inbox[0].SharedByUsername)
	}
}

func TestTargetedShareRequiresFollowing(t *testing.T) {
	handler := New().Handler()
	alice := createUser(t, handler, "alice")
	bob := createUser(t, handler, "bob")
	img := uploadImage(t, handler, alice.ID, "pic", false)

	sharePath := fmt.Sprintf("/images/%s/share-to-user?user_id=%s&target_user_id=%s", img.ID, alice.ID, bob.ID)
	if code := doJSON(t, handler, http.MethodPost, sharePath, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("share to non-followed user: expected 400, got %d", code)
	}
}

func TestBroadcastShareSkipsUploader(t *testing.T) {
	handler := New().Handler()
	alice := createUser(t, handler, "alice")
	bob := createUser(t, handler, "bob")
	carol := createUser(t, handler, "carol")

	// alice follows both; bob uploads.
	follow(t, handler, alice.ID, bob.ID)
	follow(t, handler, alice.ID, carol.ID)
	img := uploadImage(t, handler, bob.ID, "pic", false)

	sharePath := fmt.Sprintf("/images/%s/share?user_id=%s", img.ID, alice.ID)
	payload := map[string]interface{}{"image_id": img.ID, "auto_share": true}
	if code := doJSON(t, handler, http.MethodPost, sharePath, payload, nil); code != http.StatusOK {
		t.Fatalf("broadcast: status %d", code)
	}

	var carolInbox []models.SharedPost
	doJSON(t, handler, http.MethodGet, "/images/shared/"+carol.ID, nil, &carolInbox)
	if len(carolInbox) != 1 {
		t.Fatalf("carol should receive the broadcast, got %d posts", len(carolInbox))
	}
	var bobInbox []models.SharedPost
	doJSON(t, handler, http.MethodGet, "/images/shared/"+bob.ID, nil, &bobInbox)
	if len(bobInbox) != 0 {
		t.Fatalf("uploader must not receive their own post, got %d", len(bobInbox))
	}
}

func TestAnalyticsAndHealth(t *testing.T) {
	handler := New().Handler()
	alice := createUser(t, handler, "alice")
	bob := createUser(t, handler, "bob")
	img := uploadImage(t, handler, alice.ID, "pic", false)
	doJSON(t, handler, http.MethodPost, fmt.Sprintf("/images/%s/like?user_id=%s", img.ID, bob.ID), nil, nil)

	var user models.UserAnalytics
	doJSON(t, handler, http.MethodGet, "/analytics/"+alice.ID, nil, &user)
	if user.TotalImages != 1 || user.TotalLikesReceived != 1 {
		t.Fatalf("user analytics: images=%d likes=%d", user.TotalImages, user.TotalLikesReceived)
	}

	var system models.SystemAnalytics
	doJSON(t, handler, http.MethodGet, "/analytics/system", nil, &system)
	if system.TotalUsers != 2 || system.TotalImages != 1 {
		t.Fatalf("system analytics: users=%d images=%d", system.TotalUsers, system.TotalImages)
	}
	if system.MostLikedImage == nil || system.MostLikedImage.ID != img.ID {
		t.Fatalf("most liked image not reported")
	}

	var health models.Health
	doJSON(t, handler, http.MethodGet, "/health", nil, &health)
	if health.Status != "healthy" || health.UsersCount != 2 {
		t.Fatalf("health: %+v", health)
	}
}
