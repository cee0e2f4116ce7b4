package models

// User is the platform account as returned by the backend. Identity is the
// server-assigned ID; username and email are display-only on this side.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
}

// FollowResult is the backend's answer to the follow toggle. The backend
// decides which direction the toggle went; the client must treat Action as
// authoritative rather than guessing from its own prior state.
type FollowResult struct {
	Message string `json:"message"`
	Action  string `json:"action"`
}

const (
	ActionFollowed   = "followed"
	ActionUnfollowed = "unfollowed"
)
