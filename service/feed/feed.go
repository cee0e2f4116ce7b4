// Package feed holds the viewer's timeline and the per-post interaction
// state derived from it.
package feed

import (
	"context"
	"sync"

	"github.com/picfeed/picfeed-client/cmd/models"
)

// API is the slice of the REST client the feed needs.
type API interface {
	Feed(ctx context.Context, userID string) ([]models.Image, error)
	LikeImage(ctx context.Context, imageID, userID string) error
}

// ViewModel owns the ordered list of feed images. The order is whatever
// the backend returned (most recent first); local inserts go to the head.
type ViewModel struct {
	api API

	mu      sync.Mutex
	images  []models.Image
	lastErr error
}

func New(api API) *ViewModel {
	return &ViewModel{api: api}
}

// Load replaces the feed with the posts visible to userID. On failure the
// previous images are kept and the error becomes the visible error state;
// there is no automatic retry.
func (vm *ViewModel) Load(ctx context.Context, userID string) error {
	images, err := vm.api.Feed(ctx, userID)
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil {
		vm.lastErr = err
		return err
	}
	vm.images = images
	vm.lastErr = nil
	return nil
}

// Images returns a copy of the current feed.
func (vm *ViewModel) Images() []models.Image {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]models.Image, len(vm.images))
	copy(out, vm.images)
	return out
}

// Err returns the error state from the last failed load, if any.
func (vm *ViewModel) Err() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.lastErr
}

// Like toggles userID's like on imageID. The flip is applied optimistically
// before the request; if the request fails the flip is rolled back and the
// error returned. Updates are keyed by image ID, so a post that left the
// feed while the request was in flight is ignored harmlessly.
func (vm *ViewModel) Like(ctx context.Context, imageID, userID string) error {
	if !vm.toggleLike(imageID) {
		return nil
	}
	if err := vm.api.LikeImage(ctx, imageID, userID); err != nil {
		vm.toggleLike(imageID)
		return err
	}
	return nil
}

// toggleLike flips is_liked and adjusts likes_count by one, keeping the
// two consistent. Returns false when the image is not in the feed.
func (vm *ViewModel) toggleLike(imageID string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for i := range vm.images {
		if vm.images[i].ID != imageID {
			continue
		}
		if vm.images[i].IsLiked {
			vm.images[i].IsLiked = false
			vm.images[i].LikesCount--
		} else {
			vm.images[i].IsLiked = true
			vm.images[i].LikesCount++
		}
		return true
	}
	return false
}

// ApplyUpdate merges a partial update into the post with the given ID.
// Unknown IDs are a no-op, which also covers stale responses arriving
// after the feed has been reloaded.
func (vm *ViewModel) ApplyUpdate(imageID string, patch models.ImagePatch) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for i := range vm.images {
		if vm.images[i].ID == imageID {
			patch.Apply(&vm.images[i])
			return true
		}
	}
	return false
}

// PrependNew inserts a freshly uploaded image at the head of the feed.
func (vm *ViewModel) PrependNew(image models.Image) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.images = append([]models.Image{image}, vm.images...)
}

// Reset drops all feed state, e.g. on logout.
func (vm *ViewModel) Reset() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.images = nil
	vm.lastErr = nil
}
