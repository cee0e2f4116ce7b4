// Package discovery lists the other users on the platform and tracks
// whether the viewer follows each of them.
package discovery

import (
	"context"
	"log"
	"sync"

	"github.com/picfeed/picfeed-client/cmd/models"
)

// API is the slice of the REST client discovery needs.
type API interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	IsFollowing(ctx context.Context, userID, targetID string) (bool, error)
	ToggleFollow(ctx context.Context, userID, targetID string) (models.FollowResult, error)
}

// FollowStatus is the per-user probe result. Known is false when the
// probe failed, so one bad check degrades that entry instead of the
// whole listing.
type FollowStatus struct {
	Following bool
	Known     bool
}

// ViewModel owns the discovery listing and the follow-status map.
type ViewModel struct {
	api API

	mu     sync.Mutex
	users  []models.User
	status map[string]FollowStatus
}

func New(api API) *ViewModel {
	return &ViewModel{api: api, status: make(map[string]FollowStatus)}
}

// LoadUsers fetches all users and keeps everyone except the viewer. The
// self-exclusion is done here; the backend is not assumed to enforce it.
func (vm *ViewModel) LoadUsers(ctx context.Context, viewerID string) error {
	all, err := vm.api.ListUsers(ctx)
	if err != nil {
		return err
	}
	others := make([]models.User, 0, len(all))
	for _, u := range all {
		if u.ID != viewerID {
			others = append(others, u)
		}
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.users = others
	return nil
}

// LoadFollowStatus probes the follow state for every listed user. All
// probes run concurrently and the call returns once the full set has
// settled. A failed probe is recorded as unknown (treated as "not
// following" by callers) rather than failing the batch.
func (vm *ViewModel) LoadFollowStatus(ctx context.Context, viewerID string) {
	vm.mu.Lock()
	users := make([]models.User, len(vm.users))
	copy(users, vm.users)
	vm.mu.Unlock()

	results := make([]FollowStatus, len(users))
	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func(i int, targetID string) {
			defer wg.Done()
			following, err := vm.api.IsFollowing(ctx, viewerID, targetID)
			if err != nil {
				log.Printf("follow-status check failed for %s: %v", targetID, err)
				results[i] = FollowStatus{}
				return
			}
			results[i] = FollowStatus{Following: following, Known: true}
		}(i, u.ID)
	}
	wg.Wait()

	vm.mu.Lock()
	defer vm.mu.Unlock()
	for i, u := range users {
		vm.status[u.ID] = results[i]
	}
}

// ToggleFollow flips the viewer's follow state for targetID. The backend
// performs the read-modify-write and reports which action happened; that
// answer is authoritative and overrides whatever this side believed.
func (vm *ViewModel) ToggleFollow(ctx context.Context, viewerID, targetID string) (models.FollowResult, error) {
	result, err := vm.api.ToggleFollow(ctx, viewerID, targetID)
	if err != nil {
		return models.FollowResult{}, err
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	switch result.Action {
	case models.ActionFollowed:
		vm.status[targetID] = FollowStatus{Following: true, Known: true}
	case models.ActionUnfollowed:
		vm.status[targetID] = FollowStatus{Following: false, Known: true}
	default:
		// Unrecognized action: drop to unknown rather than guess.
		vm.status[targetID] = FollowStatus{}
	}
	return result, nil
}

// Users returns a copy of the listing.
func (vm *ViewModel) Users() []models.User {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]models.User, len(vm.users))
	copy(out, vm.users)
	return out
}

// Status returns the probe result for one user.
func (vm *ViewModel) Status(targetID string) FollowStatus {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.status[targetID]
}

// Reset drops all discovery state.
func (vm *ViewModel) Reset() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.users = nil
	vm.status = make(map[string]FollowStatus)
}
