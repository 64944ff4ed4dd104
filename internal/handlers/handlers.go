package handlers

import (
	// Standard library
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	// Internal packages
	"photogallery/internal/auth"
	"photogallery/internal/config"
	"photogallery/internal/database"
	"photogallery/internal/events"
	"photogallery/internal/middleware"
	"photogallery/internal/models"
	"photogallery/internal/services"

	// Third-party
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Upload limits
const MaxUploadSize = 10 << 20 // 10 MB per photo
const MaxFiles = 30            // photos per collection

// recentLimit is how many collections the home page lists.
const recentLimit = 12

// Handlers serves every page of the gallery.
type Handlers struct {
	cfg       *config.Config
	oracle    middleware.Oracle
	publisher events.Publisher
}

// New wires the page handlers. publisher may be nil.
func New(cfg *config.Config, oracle middleware.Oracle, publisher events.Publisher) *Handlers {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Handlers{cfg: cfg, oracle: oracle, publisher: publisher}
}

// page builds template data with the fields the shared header needs.
func page(c *gin.Context, title string, extra gin.H) gin.H {
	data := gin.H{
		"title": title,
		"email": auth.SessionEmail(c),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// RenderError renders error.html with the given status.
func (h *Handlers) RenderError(c *gin.Context, status int, title, message string) {
	c.HTML(status, "error.html", page(c, title, gin.H{"message": message}))
}

// GuardFailure renders the route guard's Failed outcome.
func (h *Handlers) GuardFailure(c *gin.Context, err error) {
	h.RenderError(c, http.StatusServiceUnavailable, "Temporarily unavailable",
		"We could not verify your session. Please try again in a moment.")
}

// ShowHome lists the most recent collections.
func (h *Handlers) ShowHome(c *gin.Context) {
	collections, err := database.ListRecentCollections(c.Request.Context(), recentLimit)
	if err != nil {
		log.Printf("Error listing recent collections: %v", err)
		h.RenderError(c, http.StatusInternalServerError, "Server error", "Could not load collections.")
		return
	}
	c.HTML(http.StatusOK, "home.html", page(c, "Home", gin.H{"collections": collections}))
}

// ShowLoginPage renders the sign-in form.
func (h *Handlers) ShowLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", page(c, "Sign in", nil))
}

// ShowRegisterPage renders the registration form.
func (h *Handlers) ShowRegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", page(c, "Register", nil))
}

// HandleRegister creates an account for an allow-listed photographer.
func (h *Handlers) HandleRegister(c *gin.Context) {
	email := config.NormalizeEmail(c.PostForm("email"))
	password := c.PostForm("password")
	passwordConfirm := c.PostForm("password_confirm")

	renderRegisterWithError := func(status int, message string) {
		c.HTML(status, "register.html", page(c, "Register", gin.H{
			"error":      message,
			"form_email": email, // keep what the user typed
		}))
	}

	if email == "" || password == "" || passwordConfirm == "" {
		renderRegisterWithError(http.StatusBadRequest, "All fields are required.")
		return
	}
	if len(password) < 8 {
		renderRegisterWithError(http.StatusBadRequest, "Password must be at least 8 characters.")
		return
	}
	if password != passwordConfirm {
		renderRegisterWithError(http.StatusBadRequest, "Passwords do not match.")
		return
	}
	if !h.cfg.IsAuthorized(email) {
		log.Printf("Registration refused for non-authorized email %s from IP %s", email, c.ClientIP())
		renderRegisterWithError(http.StatusForbidden, "This email is not allowed to publish collections.")
		return
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", email, err)
		renderRegisterWithError(http.StatusInternalServerError, "Internal error while processing the password.")
		return
	}

	if _, err = database.CreateUser(c.Request.Context(), email, hashedPassword); err != nil {
		log.Printf("Error creating user %s: %v", email, err)
		if errors.Is(err, database.ErrUserExists) {
			renderRegisterWithError(http.StatusConflict, "An account with this email already exists.")
		} else {
			renderRegisterWithError(http.StatusInternalServerError, "Internal error while creating the account.")
		}
		return
	}

	log.Printf("User %s registered.", email)
	c.HTML(http.StatusOK, "login.html", page(c, "Sign in", gin.H{
		"success":    "Account created. You can sign in now.",
		"form_email": email,
	}))
}

// HandleLogin checks credentials and stores the email in the session.
func (h *Handlers) HandleLogin(c *gin.Context) {
	email := config.NormalizeEmail(c.PostForm("email"))
	password := c.PostForm("password")

	renderLoginWithError := func(status int, message string) {
		c.HTML(status, "login.html", page(c, "Sign in", gin.H{
			"error":      message,
			"form_email": email,
		}))
	}

	if email == "" || password == "" {
		renderLoginWithError(http.StatusUnauthorized, "Email and password are required.")
		return
	}

	user, err := database.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		log.Printf("Error loading user %s: %v", email, err)
		renderLoginWithError(http.StatusInternalServerError, "Server error while checking credentials.")
		return
	}
	// Same message for every failure so the form does not reveal which emails exist.
	if user == nil || !h.cfg.IsAuthorized(email) || !auth.CheckPasswordHash(password, user.PasswordHash) {
		log.Printf("Failed sign-in for '%s' from IP %s.", email, c.ClientIP())
		renderLoginWithError(http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	if err := auth.SignIn(c, user.Email); err != nil {
		log.Printf("Error saving session for %s: %v", email, err)
		renderLoginWithError(http.StatusInternalServerError, "Could not save the session.")
		return
	}

	log.Printf("User %s signed in.", user.Email)
	c.Redirect(http.StatusFound, "/upload")
}

// HandleLogout clears the session and goes back home.
func (h *Handlers) HandleLogout(c *gin.Context) {
	email := auth.SessionEmail(c)
	if err := auth.SignOut(c); err != nil {
		log.Printf("Error clearing session of %s: %v", email, err)
	} else if email != "" {
		log.Printf("User %s signed out.", email)
	}
	c.Redirect(http.StatusFound, "/")
}

// ShowUploadPage renders an empty upload form.
func (h *Handlers) ShowUploadPage(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", page(c, "Upload", nil))
}

// renderUpload answers with the upload page or, for API clients, the UploadState as JSON.
func (h *Handlers) renderUpload(c *gin.Context, status int, state *models.UploadState, name, description string) {
	shareURL := ""
	if state.GeneratedSlug != nil {
		shareURL = h.ShareURL(*state.GeneratedSlug)
	}

	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(status, gin.H{"state": state, "shareUrl": shareURL})
		return
	}
	c.HTML(status, "upload.html", page(c, "Upload", gin.H{
		"state":            state,
		"share_url":        shareURL,
		"form_name":        name,
		"form_description": description,
	}))
}

// ShareURL is the public link of a gallery.
func (h *Handlers) ShareURL(slug string) string {
	return strings.TrimRight(h.cfg.BaseURL, "/") + "/gallery/" + slug
}

// HandleUpload turns a multipart form (name, description, photos[]) into a new collection.
// Either every photo is stored or none is.
func (h *Handlers) HandleUpload(c *gin.Context) {
	state := models.NewUploadState()
	ctx := c.Request.Context()

	maxTotalSize := int64(MaxFiles*MaxUploadSize + 1<<20) // photos plus form fields
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxTotalSize)

	email := auth.SessionEmail(c)
	if !h.cfg.IsAuthorized(email) {
		// The guard already checked this; the allow-list may have changed since.
		log.Printf("Upload refused for non-authorized %q", email)
		state.Fail("Your account is not allowed to publish collections.")
		h.renderUpload(c, http.StatusForbidden, state, "", "")
		return
	}

	if err := c.Request.ParseMultipartForm(MaxUploadSize); err != nil {
		log.Printf("Error parsing multipart form from %s: %v", email, err)
		var tooLarge *http.MaxBytesError
		msg := "Could not read the upload."
		if errors.As(err, &tooLarge) {
			msg = fmt.Sprintf("Upload too large. The limit is about %d MB in total.", maxTotalSize>>20)
		}
		state.Fail(msg)
		h.renderUpload(c, http.StatusBadRequest, state, "", "")
		return
	}

	name := strings.TrimSpace(c.Request.FormValue("name"))
	description := strings.TrimSpace(c.Request.FormValue("description"))
	files := c.Request.MultipartForm.File["photos"]

	switch {
	case name == "":
		state.Fail("The collection needs a name.")
	case len(files) == 0:
		state.Fail("Select at least one photo.")
	case len(files) > MaxFiles:
		state.Fail(fmt.Sprintf("At most %d photos per collection.", MaxFiles))
	}
	if state.Error != nil {
		h.renderUpload(c, http.StatusBadRequest, state, name, description)
		return
	}

	photos := make([]models.Photo, 0, len(files))
	cleanup := func() {
		stored := make([]string, 0, len(photos))
		for _, p := range photos {
			stored = append(stored, p.StoredFilename)
		}
		services.RemoveStoredFiles(h.cfg.UploadPath, stored)
	}

	for i, fileHeader := range files {
		log.Printf("Processing %s (%d bytes) for %s", fileHeader.Filename, fileHeader.Size, email)

		if fileHeader.Size == 0 {
			cleanup()
			state.Fail(fmt.Sprintf("File '%s' is empty.", fileHeader.Filename))
			h.renderUpload(c, http.StatusBadRequest, state, name, description)
			return
		}
		if fileHeader.Size > MaxUploadSize {
			cleanup()
			state.Fail(fmt.Sprintf("File '%s' is too large (%.2f MB > %d MB).",
				fileHeader.Filename, float64(fileHeader.Size)/(1<<20), MaxUploadSize>>20))
			h.renderUpload(c, http.StatusBadRequest, state, name, description)
			return
		}

		photo, err := services.ProcessAndSavePhoto(fileHeader, h.cfg.UploadPath)
		if err != nil {
			log.Printf("Error storing %s for %s: %v", fileHeader.Filename, email, err)
			cleanup()
			status, msg := http.StatusInternalServerError, "internal error while saving the file."
			switch {
			case errors.Is(err, services.ErrUnsupportedType):
				status, msg = http.StatusBadRequest, "unsupported file type (JPEG, PNG, GIF and WebP are allowed)."
			case errors.Is(err, services.ErrDecode):
				status, msg = http.StatusBadRequest, "the image is corrupted or could not be read."
			}
			state.Fail(fmt.Sprintf("File '%s': %s", fileHeader.Filename, msg))
			h.renderUpload(c, status, state, name, description)
			return
		}
		photos = append(photos, *photo)
		state.Advance(i+1, len(files))
	}

	collection, err := h.storeCollection(ctx, name, description, email, photos)
	if err != nil {
		log.Printf("Error storing collection %q for %s: %v", name, email, err)
		cleanup()
		state.Fail("Internal error while saving the collection.")
		h.renderUpload(c, http.StatusInternalServerError, state, name, description)
		return
	}

	h.publishCreated(ctx, collection)

	state.Complete(collection.Slug)
	log.Printf("Collection %s created by %s with %d photos. URL: %s", collection.Slug, email, len(photos), h.ShareURL(collection.Slug))
	h.renderUpload(c, http.StatusOK, state, "", "")
}

// publishTimeout bounds the collection.created write once the collection is committed.
const publishTimeout = 5 * time.Second

// publishCreated announces a committed collection. The event outlives the
// request: a client that disconnects after the commit does not cancel it.
func (h *Handlers) publishCreated(ctx context.Context, collection *models.Collection) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := h.publisher.CollectionCreated(ctx, collection); err != nil {
		log.Printf("WARNING: collection %s stored but event not published: %v", collection.Slug, err)
	}
}

// storeCollection assigns a free slug and persists the collection, retrying if
// another upload grabbed the same slug in between.
func (h *Handlers) storeCollection(ctx context.Context, name, description, email string, photos []models.Photo) (*models.Collection, error) {
	const attempts = 3
	var lastErr error
	for i := 0; i < attempts; i++ {
		slug, err := services.UniqueSlug(ctx, name, database.SlugExists)
		if err != nil {
			return nil, err
		}
		collection := &models.Collection{
			ID:                uuid.NewString(),
			Slug:              slug,
			Name:              name,
			Description:       description,
			CreatedAt:         time.Now().UTC(),
			Photos:            photos,
			PhotographerEmail: email,
		}
		err = database.CreateCollection(ctx, collection)
		if err == nil {
			return collection, nil
		}
		if !errors.Is(err, database.ErrSlugTaken) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// ShowMyCollections lists the signed-in photographer's collections.
func (h *Handlers) ShowMyCollections(c *gin.Context) {
	email := auth.SessionEmail(c)
	collections, err := database.ListCollectionsByPhotographer(c.Request.Context(), email)
	if err != nil {
		log.Printf("Error listing collections of %s: %v", email, err)
		h.RenderError(c, http.StatusInternalServerError, "Server error", "Could not load your collections.")
		return
	}
	c.HTML(http.StatusOK, "my_collections.html", page(c, "My collections", gin.H{"collections": collections}))
}

// HandleDeleteCollection removes one of the signed-in photographer's collections and its files.
func (h *Handlers) HandleDeleteCollection(c *gin.Context) {
	email := auth.SessionEmail(c)
	slug := c.Param("slug")

	stored, err := database.DeleteCollection(c.Request.Context(), slug, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.RenderError(c, http.StatusNotFound, "Not found", "This collection does not exist or is not yours.")
			return
		}
		log.Printf("Error deleting collection %s of %s: %v", slug, email, err)
		h.RenderError(c, http.StatusInternalServerError, "Server error", "Could not delete the collection.")
		return
	}

	services.RemoveStoredFiles(h.cfg.UploadPath, stored)
	c.Redirect(http.StatusFound, "/my-collections")
}

// lookupCollection resolves :slug, rendering the failure itself when it returns nil.
func (h *Handlers) lookupCollection(c *gin.Context, notFound func(), failed func()) *models.Collection {
	slug := c.Param("slug")
	if !services.IsValidSlug(slug) {
		notFound()
		return nil
	}
	collection, err := database.GetCollectionBySlug(c.Request.Context(), slug)
	if err != nil {
		log.Printf("Error loading collection %s: %v", slug, err)
		failed()
		return nil
	}
	if collection == nil {
		notFound()
		return nil
	}
	return collection
}

// ShowGallery renders a collection by slug. Public.
func (h *Handlers) ShowGallery(c *gin.Context) {
	collection := h.lookupCollection(c,
		func() {
			h.RenderError(c, http.StatusNotFound, "Gallery not found", "This link is invalid or the collection was removed.")
		},
		func() {
			h.RenderError(c, http.StatusInternalServerError, "Server error", "Could not load the gallery.")
		})
	if collection == nil {
		return
	}
	c.HTML(http.StatusOK, "gallery.html", page(c, collection.Name, gin.H{"collection": collection}))
}

// APICollection returns a collection as JSON.
func (h *Handlers) APICollection(c *gin.Context) {
	collection := h.lookupCollection(c,
		func() { c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"}) },
		func() { c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"}) })
	if collection == nil {
		return
	}
	c.JSON(http.StatusOK, collection)
}

// APISession exposes the authentication oracle: {"authenticated": bool}.
func (h *Handlers) APISession(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.AuthTimeout)
	defer cancel()

	ok, err := h.oracle.IsAuthenticated(ctx, auth.SessionEmail(c))
	if err != nil {
		log.Printf("Session check failed from IP %s: %v", c.ClientIP(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": ok})
}

// Health pings the database.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := database.DB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
