package models

import "testing"

func TestUploadStateLifecycle(t *testing.T) {
	s := NewUploadState()
	if !s.IsUploading || s.Success || s.Error != nil || s.GeneratedSlug != nil {
		t.Fatalf("unexpected initial state: %+v", s)
	}

	s.Advance(1, 4)
	if s.Progress != 0.25 {
		t.Fatalf("progress = %v, want 0.25", s.Progress)
	}

	s.Complete("summer-trip-abc123")
	if s.IsUploading || !s.Success || s.Progress != 1 {
		t.Fatalf("unexpected completed state: %+v", s)
	}
	if s.GeneratedSlug == nil || *s.GeneratedSlug != "summer-trip-abc123" {
		t.Fatalf("generated slug = %v", s.GeneratedSlug)
	}
}

func TestUploadStateFail(t *testing.T) {
	s := NewUploadState()
	s.Advance(5, 0)
	if s.Progress != 0 {
		t.Fatalf("progress with zero total = %v, want 0", s.Progress)
	}

	s.Fail("no files selected")
	if s.IsUploading || s.Success {
		t.Fatalf("unexpected failed state: %+v", s)
	}
	if s.Error == nil || *s.Error != "no files selected" {
		t.Fatalf("error = %v", s.Error)
	}
}

func TestCollectionCoverURL(t *testing.T) {
	c := &Collection{}
	if got := c.CoverURL(); got != "" {
		t.Fatalf("empty collection cover = %q", got)
	}
	c.Photos = []Photo{{URL: "/media/a.jpeg"}, {URL: "/media/b.jpeg"}}
	if got := c.CoverURL(); got != "/media/a.jpeg" {
		t.Fatalf("cover = %q", got)
	}
}
