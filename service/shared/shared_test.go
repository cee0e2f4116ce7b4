package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/picfeed/picfeed-client/cmd/models"
)

var errBackend = errors.New("backend unavailable")

type fakeAPI struct {
	posts []models.SharedPost
	err   error
}

func (f *fakeAPI) SharedPosts(ctx context.Context, userID string) ([]models.SharedPost, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

func TestLoadFailureKeepsOldPosts(t *testing.T) {
	api := &fakeAPI{posts: []models.SharedPost{
		{Image: models.Image{ID: "a"}, SharedByUsername: "alice"},
	}}
	vm := New(api)
	if err := vm.Load(context.Background(), "viewer"); err != nil {
		t.Fatalf("load: %v", err)
	}

	api.err = errBackend
	if err := vm.Load(context.Background(), "viewer"); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	posts := vm.Posts()
	if len(posts) != 1 || posts[0].ID != "a" {
		t.Fatalf("previous inbox must survive a failed reload: %+v", posts)
	}
}

func TestReset(t *testing.T) {
	api := &fakeAPI{posts: []models.SharedPost{{Image: models.Image{ID: "a"}}}}
	vm := New(api)
	vm.Load(context.Background(), "viewer")

	vm.Reset()
	if len(vm.Posts()) != 0 {
		t.Fatalf("reset must clear the inbox")
	}
}
