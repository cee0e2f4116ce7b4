// Package mockapi is an in-memory implementation of the content-sharing
// REST contract. It exists for tests and local development of the client;
// the real backend is a separate deployment this repository only talks to.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/picfeed/picfeed-client/cmd/models"
)

type sharedEntry struct {
	ImageID  string
	SharedBy string
	SharedAt time.Time
}

// Server holds the whole platform state behind one mutex. State lives for
// the lifetime of the process. Counters and viewer flags on stored images
// are derived per request; only the intrinsic fields are authoritative.
type Server struct {
	mu           sync.Mutex
	users        map[string]models.User
	images       map[string]models.Image
	followers    map[string][]string // target -> follower IDs
	likes        map[string][]string // image -> liker IDs
	shares       map[string][]string // image -> sharer IDs (one per delivery)
	sharedPosts  map[string][]sharedEntry
	interactions int
}

// New returns an empty platform.
func New() *Server {
	return &Server{
		users:       make(map[string]models.User),
		images:      make(map[string]models.Image),
		followers:   make(map[string][]string),
		likes:       make(map[string][]string),
		shares:      make(map[string][]string),
		sharedPosts: make(map[string][]sharedEntry),
	}
}

// Handler returns the route table for the full REST contract.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/users/", s.createUser).Methods("POST")
	router.HandleFunc("/users/", s.listUsers).Methods("GET")
	router.HandleFunc("/users/{id}/follow/{targetId}", s.toggleFollow).Methods("POST")
	router.HandleFunc("/users/{id}/is-following/{targetId}", s.isFollowing).Methods("GET")
	router.HandleFunc("/users/{id}/following", s.following).Methods("GET")
	router.HandleFunc("/users/{id}", s.getUser).Methods("GET")
	router.HandleFunc("/images/upload", s.uploadImage).Methods("POST")
	router.HandleFunc("/images/feed/{userId}", s.feed).Methods("GET")
	router.HandleFunc("/images/shared/{userId}", s.sharedInbox).Methods("GET")
	router.HandleFunc("/images/{id}/like", s.likeImage).Methods("POST")
	router.HandleFunc("/images/{id}/likes", s.imageLikes).Methods("GET")
	router.HandleFunc("/images/{id}/share", s.shareImage).Methods("POST")
	router.HandleFunc("/images/{id}/share-to-user", s.shareToUser).Methods("POST")
	router.HandleFunc("/images/{id}", s.getImage).Methods("GET")
	router.HandleFunc("/analytics/system", s.systemAnalytics).Methods("GET")
	router.HandleFunc("/analytics/{userId}", s.userAnalytics).Methods("GET")
	router.HandleFunc("/health", s.health).Methods("GET")
	return router
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeDetail mirrors the backend's error body shape: {"detail": "..."}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// followingOf returns the IDs that userID follows. Callers hold s.mu.
func (s *Server) followingOf(userID string) []string {
	var ids []string
	for target, followerIDs := range s.followers {
		for _, f := range followerIDs {
			if f == userID {
				ids = append(ids, target)
				break
			}
		}
	}
	return ids
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// userView fills the derived counters on a user record. Callers hold s.mu.
func (s *Server) userView(id string) models.User {
	u := s.users[id]
	u.FollowersCount = len(s.followers[id])
	u.FollowingCount = len(s.followingOf(id))
	return u
}

// imageView computes the viewer-relative representation of an image.
// Callers hold s.mu.
func (s *Server) imageView(imageID, viewerID string) models.Image {
	img := s.images[imageID]
	img.LikesCount = len(s.likes[imageID])
	img.SharesCount = len(s.shares[imageID])
	img.IsLiked = viewerID != "" && contains(s.likes[imageID], viewerID)
	img.IsShared = viewerID != "" && contains(s.shares[imageID], viewerID)
	if viewerID != "" && img.IsTrial {
		followed := contains(s.followingOf(viewerID), img.UploaderID)
		img.IsFromNonFollower = !followed && img.UploaderID != viewerID
	} else {
		img.IsFromNonFollower = false
	}
	if u, ok := s.users[img.UploaderID]; ok {
		img.UploaderUsername = u.Username
	}
	return img
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user := models.User{
		ID:       uuid.NewString(),
		Username: payload.Username,
		Email:    payload.Email,
	}
	s.users[user.ID] = user
	s.interactions++
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.User, 0, len(s.users))
	for id := range s.users {
		list = append(list, s.userView(id))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, s.userView(id))
}

func (s *Server) toggleFollow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, targetID := vars["id"], vars["targetId"]

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if _, ok := s.users[targetID]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if userID == targetID {
		writeDetail(w, http.StatusBadRequest, "Cannot follow yourself")
		return
	}

	s.interactions++
	if contains(s.followers[targetID], userID) {
		kept := s.followers[targetID][:0]
		for _, f := range s.followers[targetID] {
			if f != userID {
				kept = append(kept, f)
			}
		}
		s.followers[targetID] = kept
		writeJSON(w, http.StatusOK, models.FollowResult{
			Message: fmt.Sprintf("Successfully unfollowed user %s", targetID),
			Action:  models.ActionUnfollowed,
		})
		return
	}
	s.followers[targetID] = append(s.followers[targetID], userID)
	writeJSON(w, http.StatusOK, models.FollowResult{
		Message: fmt.Sprintf("Successfully followed user %s", targetID),
		Action:  models.ActionFollowed,
	})
}

func (s *Server) isFollowing(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, targetID := vars["id"], vars["targetId"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if _, ok := s.users[targetID]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"is_following": contains(s.followers[targetID], userID),
	})
}

func (s *Server) following(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	list := make([]models.User, 0)
	for _, id := range s.followingOf(userID) {
		list = append(list, s.userView(id))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form data")
		return
	}
	uploaderID := r.FormValue("uploader_id")
	isTrial := strings.ToLower(r.FormValue("is_trial"))
	trial := isTrial == "true" || isTrial == "1" || isTrial == "yes" || isTrial == "on"

	s.mu.Lock()
	defer s.mu.Unlock()
	uploader, ok := s.users[uploaderID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	img := models.Image{
		ID:               uuid.NewString(),
		Title:            r.FormValue("title"),
		Description:      r.FormValue("description"),
		ImageURL:         r.FormValue("image_url"),
		UploaderID:       uploaderID,
		UploaderUsername: uploader.Username,
		UploadTime:       time.Now().UTC(),
		IsTrial:          trial,
	}
	s.images[img.ID] = img
	s.interactions++
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) feed(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	following := s.followingOf(userID)
	visible := make([]models.Image, 0)
	for id, img := range s.images {
		own := img.UploaderID == userID
		followed := contains(following, img.UploaderID)
		trial := img.IsTrial
		// Own posts always show. Followed uploaders show their regular
		// posts; trial posts instead surface to users who do NOT follow
		// the uploader, to measure reach outside the follow graph.
		if own || (followed && !trial) || (trial && !followed && !own) {
			visible = append(visible, s.imageView(id, userID))
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].UploadTime.After(visible[j].UploadTime)
	})
	if len(visible) > 20 {
		visible = visible[:20]
	}
	s.interactions++
	writeJSON(w, http.StatusOK, visible)
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	imageID := mux.Vars(r)["id"]
	viewerID := r.URL.Query().Get("user_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[imageID]; !ok {
		writeDetail(w, http.StatusNotFound, "Image not found")
		return
	}
	writeJSON(w, http.StatusOK, s.imageView(imageID, viewerID))
}

func (s *Server) likeImage(w http.ResponseWriter, r *http.Request) {
	imageID := mux.Vars(r)["id"]
	userID := r.URL.Query().Get("user_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[imageID]; !ok {
		writeDetail(w, http.StatusNotFound, "Image not found")
		return
	}
	if _, ok := s.users[userID]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	s.interactions++
	if contains(s.likes[imageID], userID) {
		kept := s.likes[imageID][:0]
		for _, u := range s.likes[imageID] {
			if u != userID {
				kept = append(kept, u)
			}
		}
		s.likes[imageID] = kept
		writeJSON(w, http.StatusOK, map[string]string{"message": "Image unliked successfully"})
		return
	}
	s.likes[imageID] = append(s.likes[imageID], userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Image liked successfully"})
}

func (s *Server) imageLikes(w http.ResponseWriter, r *http.Request) {
	imageID := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[imageID]; !ok {
		writeDetail(w, http.StatusNotFound, "Image not found")
		return
	}
	list := models.LikeList{Likes: make([]models.LikeEntry, 0)}
	for _, userID := range s.likes[imageID] {
		if u, ok := s.users[userID]; ok {
			list.Likes = append(list.Likes, models.LikeEntry{UserID: userID, Username: u.Username})
		}
	}
	list.Count = len(list.Likes)
	writeJSON(w, http.StatusOK, list)
}

// alreadyShared reports whether sharer has already delivered imageID to
// target. Callers hold s.mu.
func (s *Server) alreadyShared(target, imageID, sharer string) bool {
	for _, entry := range s.sharedPosts[target] {
		if entry.ImageID == imageID && entry.SharedBy == sharer {
			return true
		}
	}
	return false
}

func (s *Server) shareImage(w http.ResponseWriter, r *http.Request) {
	imageID := mux.Vars(r)["id"]
	userID := r.URL.Query().Get("user_id")

	var payload struct {
		ImageID   string `json:"image_id"`
		AutoShare bool   `json:"auto_share"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[imageID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Image not found")
		return
	}
	if _, ok := s.users[userID]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	s.interactions++
	if payload.AutoShare {
		// Fan out to everyone the sharer follows, except the post's
		// uploader, skipping anyone who already got this pair.
		now := time.Now().UTC()
		for _, target := range s.followingOf(userID) {
			if target == img.UploaderID || s.alreadyShared(target, imageID, userID) {
				continue
			}
			s.sharedPosts[target] = append(s.sharedPosts[target], sharedEntry{
				ImageID: imageID, SharedBy: userID, SharedAt: now,
			})
			s.shares[imageID] = append(s.shares[imageID], userID)
		}
	} else {
		s.shares[imageID] = append(s.shares[imageID], userID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Image shared successfully"})
}

func (s *Server) shareToUser(w http.ResponseWriter, r *http.Request) {
	imageID := mux.Vars(r)["id"]
	userID := r.URL.Query().Get("user_id")
	targetID := r.URL.Query().Get("target_user_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[imageID]; !ok {
		writeDetail(w, http.StatusNotFound, "Image not found")
		return
	}
	if _, ok := s.users[userID]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	target, ok := s.users[targetID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if !contains(s.followers[targetID], userID) {
		writeDetail(w, http.StatusBadRequest, "You can only share to users you follow")
		return
	}

	// Re-sharing the same image to the same user is a no-op, so a
	// double-submitted share never duplicates the inbox entry.
	if !s.alreadyShared(targetID, imageID, userID) {
		s.shares[imageID] = append(s.shares[imageID], userID)
		s.sharedPosts[targetID] = append(s.sharedPosts[targetID], sharedEntry{
			ImageID: imageID, SharedBy: userID, SharedAt: time.Now().UTC(),
		})
	}
	s.interactions++
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Image shared to %s", target.Username),
	})
}

func (s *Server) sharedInbox(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	posts := make([]models.SharedPost, 0, len(s.sharedPosts[userID]))
	for _, entry := range s.sharedPosts[userID] {
		if _, ok := s.images[entry.ImageID]; !ok {
			continue
		}
		post := models.SharedPost{
			Image:    s.imageView(entry.ImageID, userID),
			SharedBy: entry.SharedBy,
			SharedAt: entry.SharedAt,
		}
		if u, ok := s.users[entry.SharedBy]; ok {
			post.SharedByUsername = u.Username
		}
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].SharedAt.After(posts[j].SharedAt)
	})
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) userAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	analytics := models.UserAnalytics{
		UserID:         userID,
		Username:       user.Username,
		FollowersCount: len(s.followers[userID]),
		FollowingCount: len(s.followingOf(userID)),
	}
	for id, img := range s.images {
		if img.UploaderID == userID {
			analytics.TotalImages++
			analytics.TotalLikesReceived += len(s.likes[id])
			analytics.TotalSharesReceived += len(s.shares[id])
		}
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) systemAnalytics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	analytics := models.SystemAnalytics{
		TotalUsers:        len(s.users),
		TotalImages:       len(s.images),
		TotalInteractions: s.interactions,
	}
	var mostLiked, mostShared string
	for id := range s.images {
		if mostLiked == "" || len(s.likes[id]) > len(s.likes[mostLiked]) {
			mostLiked = id
		}
		if mostShared == "" || len(s.shares[id]) > len(s.shares[mostShared]) {
			mostShared = id
		}
	}
	if mostLiked != "" {
		img := s.imageView(mostLiked, "")
		analytics.MostLikedImage = &img
	}
	if mostShared != "" {
		img := s.imageView(mostShared, "")
		analytics.MostSharedImage = &img
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.Health{
		Status:      "healthy",
		UsersCount:  len(s.users),
		ImagesCount: len(s.images),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}
