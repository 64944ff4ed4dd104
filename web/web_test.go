package web

import (
	// Standard library
	"bytes"
	"strings"
	"testing"
	"time"

	// Internal packages
	"photogallery/internal/models"
)

func TestTemplatesRenderWithSharedHeader(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates() error: %v", err)
	}

	w := 10
	msg := "bad file"
	slug := "trip-abc"
	collection := models.Collection{
		Slug:      "trip-abc",
		Name:      "Trip",
		CreatedAt: time.Now(),
		Photos:    []models.Photo{{URL: "/media/a.png", Filename: "a.png", Width: &w}},
	}

	pages := map[string]map[string]any{
		"home.html":           {"title": "Home", "collections": []models.Collection{collection}},
		"login.html":          {"title": "Sign in", "error": "nope"},
		"register.html":       {"title": "Register"},
		"upload.html":         {"title": "Upload", "email": "o@example.com", "state": &models.UploadState{Error: &msg, Success: true, GeneratedSlug: &slug, Progress: 0.5}, "share_url": "/gallery/trip-abc"},
		"my_collections.html": {"title": "Mine", "email": "o@example.com", "collections": []models.Collection{collection}},
		"gallery.html":        {"title": "Trip", "collection": &collection},
		"error.html":          {"title": "Not found", "message": "gone"},
	}
	for name, data := range pages {
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
			t.Errorf("%s: execute error: %v", name, err)
			continue
		}
		out := buf.String()
		if !strings.Contains(out, `class="navbar"`) {
			t.Errorf("%s: shared header missing", name)
		}
		if !strings.Contains(out, "</html>") {
			t.Errorf("%s: footer missing", name)
		}
	}
}

func TestHeaderReflectsSignIn(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates() error: %v", err)
	}

	var anon, signed bytes.Buffer
	if err := tmpl.ExecuteTemplate(&anon, "home.html", map[string]any{"title": "Home"}); err != nil {
		t.Fatal(err)
	}
	if err := tmpl.ExecuteTemplate(&signed, "home.html", map[string]any{"title": "Home", "email": "o@example.com"}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(anon.String(), "/my-collections") || !strings.Contains(anon.String(), "/login") {
		t.Error("anonymous header should only offer sign in")
	}
	if !strings.Contains(signed.String(), "/my-collections") || !strings.Contains(signed.String(), "/logout") {
		t.Error("signed-in header should offer my collections and sign out")
	}
}

func TestGalleryRendersDimensions(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates() error: %v", err)
	}
	w, h := 640, 480
	c := &models.Collection{Name: "Dims", Photos: []models.Photo{{URL: "/media/x.jpeg", Filename: "x.jpg", Width: &w, Height: &h}, {URL: "/media/y.jpeg", Filename: "y.jpg"}}}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "gallery.html", map[string]any{"title": "Dims", "collection": c}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `width="640"`) || !strings.Contains(out, `height="480"`) {
		t.Errorf("dimensions not rendered:\n%s", out)
	}
	if strings.Count(out, "width=") != 2 { // the viewport meta tag plus the measured photo
		t.Errorf("unmeasured photo should not get a width attribute:\n%s", out)
	}
}
