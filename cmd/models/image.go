package models

import "time"

// Image is a post as seen by a particular viewer. IsLiked and IsShared are
// viewer-relative flags computed by the backend for the requesting user,
// not global post properties.
type Image struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	ImageURL          string    `json:"image_url"`
	UploaderID        string    `json:"uploader_id"`
	UploaderUsername  string    `json:"uploader_username"`
	UploadTime        time.Time `json:"upload_time"`
	LikesCount        int       `json:"likes_count"`
	SharesCount       int       `json:"shares_count"`
	IsLiked           bool      `json:"is_liked"`
	IsShared          bool      `json:"is_shared"`
	IsTrial           bool      `json:"is_trial"`
	IsFromNonFollower bool      `json:"is_from_non_follower"`
}

// ImageUpload is the new-post form submitted to the upload endpoint.
type ImageUpload struct {
	Title       string
	Description string
	ImageURL    string
	UploaderID  string
	IsTrial     bool
}

// ImagePatch is a partial update merged into an existing Image by ID.
// Nil fields are left untouched.
type ImagePatch struct {
	LikesCount  *int
	SharesCount *int
	IsLiked     *bool
	IsShared    *bool
}

// Apply merges the patch into img.
func (p ImagePatch) Apply(img *Image) {
	if p.LikesCount != nil {
		img.LikesCount = *p.LikesCount
	}
	if p.SharesCount != nil {
		img.SharesCount = *p.SharesCount
	}
	if p.IsLiked != nil {
		img.IsLiked = *p.IsLiked
	}
	if p.IsShared != nil {
		img.IsShared = *p.IsShared
	}
}
