// Package share orchestrates sharing a single post: load the viewer's
// follow list, exclude the post's uploader, then either broadcast to all
// followers or deliver to one chosen user.
package share

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/picfeed/picfeed-client/cmd/models"
)

// API is the slice of the REST client the flow needs.
type API interface {
	Following(ctx context.Context, userID string) ([]models.User, error)
	ShareImage(ctx context.Context, imageID, userID string, autoShare bool) error
	ShareToUser(ctx context.Context, imageID, userID, targetID string) error
}

// State is the flow's position in Closed -> Loading -> Ready | Failed.
type State int

const (
	StateClosed State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// EmptyReason explains an empty target list in the Ready state.
type EmptyReason int

const (
	// ReasonNone: the list is not empty.
	ReasonNone EmptyReason = iota
	// ReasonOwnPost: the viewer is the uploader; you can't share your
	// own post to anyone.
	ReasonOwnPost
	// ReasonOnlyUploaderFollowed: everyone the viewer follows is the
	// post's uploader, who is never offered as a target.
	ReasonOnlyUploaderFollowed
)

var errFlowNotReady = errors.New("share flow is not ready")

// Flow is the modal interaction for one post. Open it, inspect Targets,
// then Broadcast or ShareTo; either success closes the flow and fires the
// completion callback so the caller can refresh the shared inbox.
type Flow struct {
	api       API
	onShared  func()

	mu       sync.Mutex
	state    State
	viewerID string
	image    models.Image
	targets  []models.User
	lastErr  error
}

// New creates a closed flow. onShared may be nil.
func New(api API, onShared func()) *Flow {
	return &Flow{api: api, onShared: onShared}
}

// Open starts the flow for image on behalf of viewerID: fetches the
// viewer's follow list and filters out the post's uploader. For every
// listing this produces, the uploader is never among the offered targets.
func (f *Flow) Open(ctx context.Context, viewerID string, image models.Image) error {
	f.mu.Lock()
	f.state = StateLoading
	f.viewerID = viewerID
	f.image = image
	f.targets = nil
	f.lastErr = nil
	f.mu.Unlock()

	following, err := f.api.Following(ctx, viewerID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateFailed
		f.lastErr = err
		return err
	}

	targets := make([]models.User, 0, len(following))
	for _, u := range following {
		if u.ID != image.UploaderID {
			targets = append(targets, u)
		}
	}
	f.targets = targets
	f.state = StateReady
	return nil
}

// Broadcast shares to all of the viewer's followers via the backend's
// fan-out. On success the flow closes and the completion callback fires;
// on failure the flow stays open with its target list untouched.
func (f *Flow) Broadcast(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateReady {
		f.mu.Unlock()
		return errFlowNotReady
	}
	imageID, viewerID := f.image.ID, f.viewerID
	f.mu.Unlock()

	if err := f.api.ShareImage(ctx, imageID, viewerID, true); err != nil {
		f.mu.Lock()
		f.lastErr = err
		f.mu.Unlock()
		return err
	}
	f.complete()
	return nil
}

// ShareTo delivers the post to one specific followed user. The target must
// come from the offered list, which excludes the uploader by construction.
func (f *Flow) ShareTo(ctx context.Context, targetID string) error {
	f.mu.Lock()
	if f.state != StateReady {
		f.mu.Unlock()
		return errFlowNotReady
	}
	found := false
	for _, u := range f.targets {
		if u.ID == targetID {
			found = true
			break
		}
	}
	imageID, viewerID := f.image.ID, f.viewerID
	f.mu.Unlock()
	if !found {
		return fmt.Errorf("user %s is not an eligible share target", targetID)
	}

	if err := f.api.ShareToUser(ctx, imageID, viewerID, targetID); err != nil {
		f.mu.Lock()
		f.lastErr = err
		f.mu.Unlock()
		return err
	}
	f.complete()
	return nil
}

func (f *Flow) complete() {
	f.mu.Lock()
	f.state = StateClosed
	f.targets = nil
	f.lastErr = nil
	onShared := f.onShared
	f.mu.Unlock()
	if onShared != nil {
		onShared()
	}
}

// Close abandons the flow without sharing.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateClosed
	f.targets = nil
	f.lastErr = nil
}

// State returns the flow's current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the most recent failure, if any.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Targets returns a copy of the offered share targets.
func (f *Flow) Targets() []models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, len(f.targets))
	copy(out, f.targets)
	return out
}

// WhyEmpty explains an empty target list: sharing your own post is not
// possible at all, while an empty list on someone else's post means the
// only user you follow is the uploader (or you follow nobody).
func (f *Flow) WhyEmpty() EmptyReason {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateReady || len(f.targets) > 0 {
		return ReasonNone
	}
	if f.image.UploaderID == f.viewerID {
		return ReasonOwnPost
	}
	return ReasonOnlyUploaderFollowed
}
