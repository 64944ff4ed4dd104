package services

import (
	// Standard library
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"unicode"

	// Third-party
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxSlugBase     = 40 // characters kept from the collection name
	slugSuffixBytes = 5  // 8 base32 characters
	maxSlugAttempts = 5
)

var slugEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// GenerateSecureToken returns a random lower-case base32 string built from length bytes.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return slugEncoding.EncodeToString(b), nil
}

// Slugify turns a display name into lower-case ASCII words joined by '-'.
// Accents are stripped ("Café" becomes "cafe"), everything else non-alphanumeric separates words.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			if b.Len() >= maxSlugBase {
				return b.String()
			}
		default:
			dash = true
		}
	}
	return b.String()
}

// GenerateSlug returns Slugify(name) followed by a random suffix, or only the
// suffix when the name has no usable characters.
func GenerateSlug(name string) (string, error) {
	suffix, err := GenerateSecureToken(slugSuffixBytes)
	if err != nil {
		return "", err
	}
	base := Slugify(name)
	if base == "" {
		return suffix, nil
	}
	return base + "-" + suffix, nil
}

// UniqueSlug generates slugs until exists reports one as free.
func UniqueSlug(ctx context.Context, name string, exists func(ctx context.Context, slug string) (bool, error)) (string, error) {
	for i := 0; i < maxSlugAttempts; i++ {
		slug, err := GenerateSlug(name)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug %s: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", name, maxSlugAttempts)
}

// IsValidSlug reports whether s only contains characters GenerateSlug can produce.
func IsValidSlug(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}
