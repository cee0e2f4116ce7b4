package models

// UserAnalytics aggregates engagement received by one user's posts.
type UserAnalytics struct {
	UserID              string `json:"user_id"`
	Username            string `json:"username"`
	TotalImages         int    `json:"total_images"`
	TotalLikesReceived  int    `json:"total_likes_received"`
	TotalSharesReceived int    `json:"total_shares_received"`
	FollowersCount      int    `json:"followers_count"`
	FollowingCount      int    `json:"following_count"`
}

// SystemAnalytics is the platform-wide read-only summary.
type SystemAnalytics struct {
	TotalUsers        int    `json:"total_users"`
	TotalImages       int    `json:"total_images"`
	TotalInteractions int    `json:"total_interactions"`
	MostLikedImage    *Image `json:"most_liked_image,omitempty"`
	MostSharedImage   *Image `json:"most_shared_image,omitempty"`
}

// Health is the liveness probe response.
type Health struct {
	Status      string `json:"status"`
	UsersCount  int    `json:"users_count"`
	ImagesCount int    `json:"images_count"`
	Timestamp   string `json:"timestamp"`
}
