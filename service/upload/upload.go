// Package upload captures the new-post form and submits it.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/picfeed/picfeed-client/cmd/models"
)

// API is the slice of the REST client the upload flow needs.
type API interface {
	UploadImage(ctx context.Context, upload models.ImageUpload) (models.Image, error)
}

// Form is the new-post input. Everything is required; IsTrial marks the
// post for deliberate exposure to non-followers.
type Form struct {
	Title       string
	Description string
	ImageURL    string
	IsTrial     bool
}

var errMissingFields = errors.New("title, description and image URL are required")

// Flow holds form state across attempts: a failed submit preserves the
// form so the user can correct and retry, a successful one resets it.
type Flow struct {
	api       API
	onCreated func(models.Image)

	mu      sync.Mutex
	form    Form
	lastErr error
}

// New creates an upload flow. onCreated receives the canonical record
// after a successful submit (typically feed.PrependNew); may be nil.
func New(api API, onCreated func(models.Image)) *Flow {
	return &Flow{api: api, onCreated: onCreated}
}

// SetForm replaces the form contents.
func (f *Flow) SetForm(form Form) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.form = form
}

// Form returns the current form contents.
func (f *Flow) Form() Form {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// Err returns the error from the last failed submit, if any.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// validate checks required-field presence and URL well-formedness. All
// semantic validation (e.g. whether the URL resolves to an image) is the
// backend's business.
func validate(form Form) error {
	if form.Title == "" || form.Description == "" || form.ImageURL == "" {
		return errMissingFields
	}
	parsed, err := url.ParseRequestURI(form.ImageURL)
	if err != nil {
		return fmt.Errorf("invalid image URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid image URL scheme %q", parsed.Scheme)
	}
	return nil
}

// Submit sends the form as uploaderID's new post. On success the canonical
// server record is handed to the onCreated callback, the form resets, and
// the record is returned. On failure the form contents survive untouched.
func (f *Flow) Submit(ctx context.Context, uploaderID string) (models.Image, error) {
	f.mu.Lock()
	form := f.form
	f.mu.Unlock()

	if err := validate(form); err != nil {
		f.setErr(err)
		return models.Image{}, err
	}

	created, err := f.api.UploadImage(ctx, models.ImageUpload{
		Title:       form.Title,
		Description: form.Description,
		ImageURL:    form.ImageURL,
		UploaderID:  uploaderID,
		IsTrial:     form.IsTrial,
	})
	if err != nil {
		f.setErr(err)
		return models.Image{}, err
	}

	f.mu.Lock()
	f.form = Form{}
	f.lastErr = nil
	onCreated := f.onCreated
	f.mu.Unlock()

	if onCreated != nil {
		onCreated(created)
	}
	return created, nil
}

func (f *Flow) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastErr = err
}
