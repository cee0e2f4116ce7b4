package models

import "time"

// SharedPost is an Image as it appears in a recipient's shared inbox,
// annotated with who shared it and when.
type SharedPost struct {
	Image
	SharedBy         string    `json:"shared_by"`
	SharedByUsername string    `json:"shared_by_username"`
	SharedAt         time.Time `json:"shared_at"`
}

// LikeEntry identifies one user who liked an image.
type LikeEntry struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// LikeList is the roster of likes on a single image.
type LikeList struct {
	Likes []LikeEntry `json:"likes"`
	Count int         `json:"count"`
}
