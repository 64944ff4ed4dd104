package services

import (
	// Standard library
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Summer Trip 2024":       "summer-trip-2024",
		"  Café & Crème  ":       "cafe-creme",
		"---":                    "",
		"Привет":                 "",
		"a/b\\c":                 "a-b-c",
		strings.Repeat("x", 100): strings.Repeat("x", maxSlugBase),
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateSlug(t *testing.T) {
	slug, err := GenerateSlug("Wedding Day")
	if err != nil {
		t.Fatalf("GenerateSlug() error: %v", err)
	}
	if !strings.HasPrefix(slug, "wedding-day-") {
		t.Errorf("slug %q missing name prefix", slug)
	}
	if len(slug) != len("wedding-day-")+8 {
		t.Errorf("slug %q has unexpected suffix length", slug)
	}
	if !IsValidSlug(slug) {
		t.Errorf("generated slug %q is not valid", slug)
	}

	bare, err := GenerateSlug("!!!")
	if err != nil {
		t.Fatalf("GenerateSlug() error: %v", err)
	}
	if len(bare) != 8 || !IsValidSlug(bare) {
		t.Errorf("bare slug = %q", bare)
	}

	other, _ := GenerateSlug("Wedding Day")
	if other == slug {
		t.Errorf("two generated slugs collided: %q", slug)
	}
}

func TestUniqueSlugRetriesOnCollision(t *testing.T) {
	calls := 0
	slug, err := UniqueSlug(context.Background(), "trip", func(ctx context.Context, s string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	if err != nil {
		t.Fatalf("UniqueSlug() error: %v", err)
	}
	if calls != 3 || !strings.HasPrefix(slug, "trip-") {
		t.Errorf("calls = %d, slug = %q", calls, slug)
	}
}

func TestUniqueSlugGivesUp(t *testing.T) {
	_, err := UniqueSlug(context.Background(), "trip", func(ctx context.Context, s string) (bool, error) {
		return true, nil
	})
	if err == nil {
		t.Fatal("expected error when every slug is taken")
	}

	boom := errors.New("db down")
	_, err = UniqueSlug(context.Background(), "trip", func(ctx context.Context, s string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped db error", err)
	}
}

func TestIsValidSlug(t *testing.T) {
	for s, want := range map[string]bool{
		"abc123":          true,
		"summer-trip-abc": true,
		"":                false,
		"Upper":           false,
		"../etc":          false,
		"has space":       false,
	} {
		if got := IsValidSlug(s); got != want {
			t.Errorf("IsValidSlug(%q) = %v, want %v", s, got, want)
		}
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestSavePhoto(t *testing.T) {
	dir := t.TempDir()

	photo, err := SavePhoto(bytes.NewReader(pngBytes(t, 32, 16)), "holiday.png", dir)
	if err != nil {
		t.Fatalf("SavePhoto() error: %v", err)
	}
	if photo.Type != "image/png" || photo.Filename != "holiday.png" {
		t.Errorf("unexpected photo: %+v", photo)
	}
	if photo.Width == nil || *photo.Width != 32 || photo.Height == nil || *photo.Height != 16 {
		t.Errorf("dimensions = %v x %v, want 32 x 16", photo.Width, photo.Height)
	}
	if photo.URL != MediaPrefix+photo.StoredFilename {
		t.Errorf("URL = %q", photo.URL)
	}

	stat, err := os.Stat(filepath.Join(dir, photo.StoredFilename))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if stat.Size() != photo.Size || photo.Size == 0 {
		t.Errorf("size = %d, file has %d", photo.Size, stat.Size())
	}

	RemoveStoredFiles(dir, []string{photo.StoredFilename, "never-existed.png"})
	if _, err := os.Stat(filepath.Join(dir, photo.StoredFilename)); !os.IsNotExist(err) {
		t.Errorf("stored file not removed: %v", err)
	}
}

func TestSavePhotoRejectsNonImages(t *testing.T) {
	dir := t.TempDir()

	_, err := SavePhoto(strings.NewReader("just some text, definitely not a photo"), "notes.jpg", dir)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}

	// Valid PNG signature followed by garbage.
	broken := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	_, err = SavePhoto(bytes.NewReader(broken), "broken.png", dir)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("rejected uploads left %d files behind", len(entries))
	}
}
