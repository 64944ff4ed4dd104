package auth

import (
	// Standard library
	"context"
	"fmt"

	// Internal packages
	"photogallery/internal/models"

	// Third-party
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// SessionEmailKey is the session value holding the signed-in photographer's email.
const SessionEmailKey = "email"

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a plain password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	// The salt is part of the hash, bcrypt extracts it itself.
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// SessionEmail returns the email stored in the session, or "" when nobody is signed in
// or the value has an unexpected type.
func SessionEmail(c *gin.Context) string {
	session := sessions.Default(c)
	email, _ := session.Get(SessionEmailKey).(string)
	return email
}

// SignIn stores email in the session cookie.
func SignIn(c *gin.Context, email string) error {
	session := sessions.Default(c)
	session.Set(SessionEmailKey, email)
	if err := session.Save(); err != nil {
		return fmt.Errorf("save session for %s: %w", email, err)
	}
	return nil
}

// SignOut clears the session and expires the cookie.
func SignOut(c *gin.Context) error {
	session := sessions.Default(c)
	session.Delete(SessionEmailKey)
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// UserLookup finds a user by email, returning nil, nil when there is none.
type UserLookup func(ctx context.Context, email string) (*models.User, error)

// SessionOracle answers "is the current session authenticated" from the session
// cookie, the photographer allow-list and the user store.
type SessionOracle struct {
	Authorized func(email string) bool // allow-list check
	Lookup     UserLookup
}

// IsAuthenticated returns false for a missing, non-allow-listed or unknown email.
// Storage failures are returned as errors. The email comes from SessionEmail,
// read by the caller on the request goroutine.
func (o *SessionOracle) IsAuthenticated(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	if o.Authorized != nil && !o.Authorized(email) {
		return false, nil
	}
	user, err := o.Lookup(ctx, email)
	if err != nil {
		return false, fmt.Errorf("lookup session user %s: %w", email, err)
	}
	return user != nil, nil
}
