package models

import (
	"time" // CreatedAt timestamps
)

// User is the photographer account. Only allow-listed emails can own one.
// `json:"-"` keeps the password hash out of any JSON response.
type User struct {
	ID           int64     `json:"id"`        // Primary key
	Email        string    `json:"email"`     // Unique, lower-cased login identity
	PasswordHash string    `json:"-"`         // bcrypt hash, never sent to the client
	CreatedAt    time.Time `json:"createdAt"` // Registration time
}

// Photo is a single stored image inside a Collection.
// It is immutable once created.
type Photo struct {
	ID             string `json:"id"`               // uuid
	URL            string `json:"url"`              // Public URL of the stored file
	Filename       string `json:"filename"`         // Original filename as uploaded
	StoredFilename string `json:"-"`                // Name on disk under the upload directory
	Size           int64  `json:"size"`             // Bytes written to disk
	Type           string `json:"type"`             // MIME type of the stored file
	Width          *int   `json:"width,omitempty"`  // Pixel width, nil when unknown
	Height         *int   `json:"height,omitempty"` // Pixel height, nil when unknown
}

// Collection is the unit of sharing. Slug is the public lookup key used by /gallery/:slug.
type Collection struct {
	ID                string    `json:"id"`                // uuid
	Slug              string    `json:"slug"`              // Unique, URL-safe
	Name              string    `json:"name"`              // Display name
	Description       string    `json:"description"`       // Free text, may be empty
	CreatedAt         time.Time `json:"createdAt"`         // Creation time (UTC)
	Photos            []Photo   `json:"photos"`            // Ordered as uploaded
	PhotographerEmail string    `json:"photographerEmail"` // Owner
}

// UploadState is transient view-state for one upload attempt.
// It is built fresh for every POST /upload and never stored.
type UploadState struct {
	IsUploading   bool    `json:"isUploading"`
	Progress      float64 `json:"progress"` // 0..1, share of files processed
	Error         *string `json:"error"`
	Success       bool    `json:"success"`
	GeneratedSlug *string `json:"generatedSlug"`
}

// NewUploadState returns the state of an attempt that has just started.
func NewUploadState() *UploadState {
	return &UploadState{IsUploading: true}
}

// Advance records that done of total files have been processed.
func (s *UploadState) Advance(done, total int) {
	if total <= 0 {
		s.Progress = 0
		return
	}
	s.Progress = float64(done) / float64(total)
	if s.Progress > 1 {
		s.Progress = 1
	}
}

// Fail ends the attempt with a user-facing message.
func (s *UploadState) Fail(message string) {
	s.IsUploading = false
	s.Success = false
	s.Error = &message
}

// Complete ends the attempt successfully with the slug of the new collection.
func (s *UploadState) Complete(slug string) {
	s.IsUploading = false
	s.Success = true
	s.Progress = 1
	s.Error = nil
	s.GeneratedSlug = &slug
}

// CoverURL returns the URL of the first photo, or "" for an empty collection.
func (c *Collection) CoverURL() string {
	if len(c.Photos) == 0 {
		return ""
	}
	return c.Photos[0].URL
}
