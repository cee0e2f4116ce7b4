// Package shared holds the posts other users shared to the viewer.
package shared

import (
	"context"
	"log"
	"sync"

	"github.com/picfeed/picfeed-client/cmd/models"
)

// API is the slice of the REST client the shared inbox needs.
type API interface {
	SharedPosts(ctx context.Context, userID string) ([]models.SharedPost, error)
}

// ViewModel owns the shared inbox. It is a secondary listing: a failed
// load keeps the previous contents and is only logged, never allowed to
// block the primary feed.
type ViewModel struct {
	api API

	mu    sync.Mutex
	posts []models.SharedPost
}

func New(api API) *ViewModel {
	return &ViewModel{api: api}
}

// Load refreshes the inbox for userID. Failures degrade softly: the old
// posts stay in place and the error is returned for callers that care.
func (vm *ViewModel) Load(ctx context.Context, userID string) error {
	posts, err := vm.api.SharedPosts(ctx, userID)
	if err != nil {
		log.Printf("failed to load shared posts: %v", err)
		return err
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.posts = posts
	return nil
}

// Posts returns a copy of the inbox, most recently shared first.
func (vm *ViewModel) Posts() []models.SharedPost {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]models.SharedPost, len(vm.posts))
	copy(out, vm.posts)
	return out
}

// Reset drops all inbox state.
func (vm *ViewModel) Reset() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.posts = nil
}
