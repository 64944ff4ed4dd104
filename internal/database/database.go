package database

import (
	// Standard library
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	// Internal packages
	"photogallery/internal/models"

	// Third-party
	"github.com/pressly/goose/v3" // Schema migrations embedded in the binary

	// Pure-Go SQLite driver, registers itself as "sqlite" in database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB is the shared connection pool. It is set by InitDB.
var DB *sql.DB

var (
	// ErrUserExists is returned by CreateUser when the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrSlugTaken is returned by CreateCollection when the slug is already in use.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrNotFound is returned by mutating calls whose target row does not exist.
	ErrNotFound = errors.New("not found")
)

// InitDB opens the SQLite file at dataSourceName and applies pending migrations.
func InitDB(dataSourceName string) error {
	var err error

	// modernc.org/sqlite takes pragmas as _pragma query parameters.
	// foreign_keys is required for ON DELETE CASCADE on photos.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dataSourceName)
	DB, err = sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", dataSourceName, err)
	}

	// SQLite allows a single writer; one connection avoids "database is locked".
	DB.SetMaxOpenConns(1)
	DB.SetMaxIdleConns(1)
	DB.SetConnMaxLifetime(time.Hour)

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("ping %s: %w", dataSourceName, err)
	}
	log.Println("Connected to database:", dataSourceName)

	if err = migrate(DB); err != nil {
		DB.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	log.Println("Database schema is up to date.")
	return nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			return nil
		}
		return err
	}
	return nil
}

// Close closes the pool if it was opened.
func Close() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}

// CreateUser inserts a photographer account. The email must already be normalized.
func CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	res, err := DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)",
		email, passwordHash, time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return 0, fmt.Errorf("insert user %s: %w", email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for user %s: %w", email, err)
	}
	log.Printf("Created user %s (ID: %d)", email, id)
	return id, nil
}

// GetUserByEmail returns nil, nil when no such user exists.
func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	row := DB.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?", email)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user %s: %w", email, err)
	}
	return user, nil
}

// SlugExists reports whether a collection already uses slug.
func SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := DB.QueryRowContext(ctx, "SELECT COUNT(1) FROM collections WHERE slug = ?", slug).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check slug %s: %w", slug, err)
	}
	return n > 0, nil
}

// CreateCollection stores the collection and its photos in one transaction.
// Photo order is preserved through the position column.
func CreateCollection(ctx context.Context, c *models.Collection) error {
	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for collection %s: %w", c.Slug, err)
	}
	defer tx.Rollback() // no-op after Commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (id, slug, name, description, created_at, photographer_email)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Slug, c.Name, c.Description, c.CreatedAt.UTC(), c.PhotographerEmail)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") && strings.Contains(err.Error(), "slug") {
			return fmt.Errorf("%w: %s", ErrSlugTaken, c.Slug)
		}
		return fmt.Errorf("insert collection %s: %w", c.Slug, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO photos (id, collection_id, position, url, stored_filename, filename, size, mime_type, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare photo insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range c.Photos {
		_, err = stmt.ExecContext(ctx, p.ID, c.ID, i, p.URL, p.StoredFilename, p.Filename, p.Size, p.Type,
			nullInt(p.Width), nullInt(p.Height))
		if err != nil {
			return fmt.Errorf("insert photo %s of collection %s: %w", p.Filename, c.Slug, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit collection %s: %w", c.Slug, err)
	}
	log.Printf("Collection stored: slug=%s, photos=%d, owner=%s", c.Slug, len(c.Photos), c.PhotographerEmail)
	return nil
}

// GetCollectionBySlug returns nil, nil when the slug is unknown.
func GetCollectionBySlug(ctx context.Context, slug string) (*models.Collection, error) {
	c := &models.Collection{}
	row := DB.QueryRowContext(ctx, `
		SELECT id, slug, name, description, created_at, photographer_email
		FROM collections WHERE slug = ?`, slug)
	err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.CreatedAt, &c.PhotographerEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan collection %s: %w", slug, err)
	}

	c.Photos, err = photosOf(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCollectionsByPhotographer returns the owner's collections, newest first.
func ListCollectionsByPhotographer(ctx context.Context, email string) ([]models.Collection, error) {
	return listCollections(ctx, `
		SELECT id, slug, name, description, created_at, photographer_email
		FROM collections WHERE photographer_email = ?
		ORDER BY created_at DESC`, email)
}

// ListRecentCollections returns up to limit collections, newest first.
func ListRecentCollections(ctx context.Context, limit int) ([]models.Collection, error) {
	return listCollections(ctx, `
		SELECT id, slug, name, description, created_at, photographer_email
		FROM collections
		ORDER BY created_at DESC LIMIT ?`, limit)
}

func listCollections(ctx context.Context, query string, args ...any) ([]models.Collection, error) {
	rows, err := DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}

	var out []models.Collection
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.CreatedAt, &c.PhotographerEmail); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan collection row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	// Release the only connection before loading photos.
	rows.Close()

	for i := range out {
		out[i].Photos, err = photosOf(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func photosOf(ctx context.Context, collectionID string) ([]models.Photo, error) {
	rows, err := DB.QueryContext(ctx, `
		SELECT id, url, stored_filename, filename, size, mime_type, width, height
		FROM photos WHERE collection_id = ?
		ORDER BY position`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("query photos of %s: %w", collectionID, err)
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		var (
			p             models.Photo
			width, height sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.URL, &p.StoredFilename, &p.Filename, &p.Size, &p.Type, &width, &height); err != nil {
			return nil, fmt.Errorf("scan photo of %s: %w", collectionID, err)
		}
		p.Width = intPtr(width)
		p.Height = intPtr(height)
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos of %s: %w", collectionID, err)
	}
	return photos, nil
}

// DeleteCollection removes the collection owned by email and returns the stored
// filenames of its photos so the caller can remove them from disk.
func DeleteCollection(ctx context.Context, slug, email string) ([]string, error) {
	c, err := GetCollectionBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if c == nil || c.PhotographerEmail != email {
		return nil, fmt.Errorf("%w: collection %s for %s", ErrNotFound, slug, email)
	}

	res, err := DB.ExecContext(ctx, "DELETE FROM collections WHERE id = ? AND photographer_email = ?", c.ID, email)
	if err != nil {
		return nil, fmt.Errorf("delete collection %s: %w", slug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected deleting %s: %w", slug, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: collection %s", ErrNotFound, slug)
	}

	files := make([]string, 0, len(c.Photos))
	for _, p := range c.Photos {
		files = append(files, p.StoredFilename)
	}
	log.Printf("Collection %s deleted by %s (%d photos)", slug, email, len(files))
	return files, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
