package database

import (
	// Standard library
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	// Internal packages
	"photogallery/internal/models"
)

func setupDB(t *testing.T) {
	t.Helper()
	if err := InitDB(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func sampleCollection(id, slug, owner string, created time.Time) *models.Collection {
	w, h := 640, 480
	return &models.Collection{
		ID:                id,
		Slug:              slug,
		Name:              "Name " + slug,
		Description:       "desc",
		CreatedAt:         created,
		PhotographerEmail: owner,
		Photos: []models.Photo{
			{ID: id + "-p1", URL: "/media/" + id + "-1.jpeg", StoredFilename: id + "-1.jpeg", Filename: "first.jpg", Size: 100, Type: "image/jpeg", Width: &w, Height: &h},
			{ID: id + "-p2", URL: "/media/" + id + "-2.png", StoredFilename: id + "-2.png", Filename: "second.png", Size: 200, Type: "image/png"},
		},
	}
}

func TestUsers(t *testing.T) {
	setupDB(t)
	ctx := context.Background()

	id, err := CreateUser(ctx, "owner@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	if id == 0 {
		t.Fatal("CreateUser() returned zero id")
	}

	if _, err := CreateUser(ctx, "owner@example.com", "hash2"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate CreateUser() error = %v, want ErrUserExists", err)
	}

	u, err := GetUserByEmail(ctx, "owner@example.com")
	if err != nil || u == nil {
		t.Fatalf("GetUserByEmail() = %v, %v", u, err)
	}
	if u.PasswordHash != "hash" || u.ID != id {
		t.Errorf("unexpected user: %+v", u)
	}

	missing, err := GetUserByEmail(ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Fatalf("GetUserByEmail(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestCollectionRoundTrip(t *testing.T) {
	setupDB(t)
	ctx := context.Background()

	c := sampleCollection("c1", "summer-abc123", "owner@example.com", time.Now())
	if err := CreateCollection(ctx, c); err != nil {
		t.Fatalf("CreateCollection() error: %v", err)
	}

	exists, err := SlugExists(ctx, "summer-abc123")
	if err != nil || !exists {
		t.Fatalf("SlugExists() = %v, %v", exists, err)
	}

	got, err := GetCollectionBySlug(ctx, "summer-abc123")
	if err != nil || got == nil {
		t.Fatalf("GetCollectionBySlug() = %v, %v", got, err)
	}
	if got.Name != c.Name || got.PhotographerEmail != c.PhotographerEmail {
		t.Errorf("unexpected collection: %+v", got)
	}
	if len(got.Photos) != 2 || got.Photos[0].Filename != "first.jpg" || got.Photos[1].Filename != "second.png" {
		t.Fatalf("photos out of order: %+v", got.Photos)
	}
	if got.Photos[0].Width == nil || *got.Photos[0].Width != 640 {
		t.Errorf("width not preserved: %+v", got.Photos[0])
	}
	if got.Photos[1].Width != nil || got.Photos[1].Height != nil {
		t.Errorf("missing dimensions should stay nil: %+v", got.Photos[1])
	}

	none, err := GetCollectionBySlug(ctx, "abc123")
	if err != nil || none != nil {
		t.Fatalf("GetCollectionBySlug(unknown) = %v, %v; want nil, nil", none, err)
	}
}

func TestCreateCollectionSlugTaken(t *testing.T) {
	setupDB(t)
	ctx := context.Background()

	if err := CreateCollection(ctx, sampleCollection("c1", "dup", "owner@example.com", time.Now())); err != nil {
		t.Fatalf("CreateCollection() error: %v", err)
	}
	err := CreateCollection(ctx, sampleCollection("c2", "dup", "owner@example.com", time.Now()))
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("CreateCollection(dup) error = %v, want ErrSlugTaken", err)
	}
}

func TestListCollections(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, spec := range []struct{ id, slug, owner string }{
		{"c1", "one", "owner@example.com"},
		{"c2", "two", "other@example.com"},
		{"c3", "three", "owner@example.com"},
	} {
		c := sampleCollection(spec.id, spec.slug, spec.owner, base.Add(time.Duration(i)*time.Minute))
		if err := CreateCollection(ctx, c); err != nil {
			t.Fatalf("CreateCollection(%s) error: %v", spec.slug, err)
		}
	}

	mine, err := ListCollectionsByPhotographer(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("ListCollectionsByPhotographer() error: %v", err)
	}
	if len(mine) != 2 || mine[0].Slug != "three" || mine[1].Slug != "one" {
		t.Fatalf("unexpected owner collections: %+v", mine)
	}
	if len(mine[0].Photos) != 2 {
		t.Errorf("photos not loaded for listed collection")
	}

	recent, err := ListRecentCollections(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentCollections() error: %v", err)
	}
	if len(recent) != 2 || recent[0].Slug != "three" || recent[1].Slug != "two" {
		t.Fatalf("unexpected recent collections: %+v", recent)
	}
}

func TestDeleteCollection(t *testing.T) {
	setupDB(t)
	ctx := context.Background()

	if err := CreateCollection(ctx, sampleCollection("c1", "gone", "owner@example.com", time.Now())); err != nil {
		t.Fatalf("CreateCollection() error: %v", err)
	}

	if _, err := DeleteCollection(ctx, "gone", "intruder@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteCollection(not owner) error = %v, want ErrNotFound", err)
	}

	files, err := DeleteCollection(ctx, "gone", "owner@example.com")
	if err != nil {
		t.Fatalf("DeleteCollection() error: %v", err)
	}
	if len(files) != 2 || files[0] != "c1-1.jpeg" {
		t.Errorf("stored files = %v", files)
	}

	got, err := GetCollectionBySlug(ctx, "gone")
	if err != nil || got != nil {
		t.Fatalf("collection still present: %v, %v", got, err)
	}

	var photos int
	if err := DB.QueryRow("SELECT COUNT(1) FROM photos").Scan(&photos); err != nil {
		t.Fatalf("count photos: %v", err)
	}
	if photos != 0 {
		t.Errorf("photos not cascaded, %d left", photos)
	}
}
