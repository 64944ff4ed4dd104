package router

import (
	// Standard library
	"fmt"
	"net/http"
	"strings"

	// Internal packages
	"photogallery/internal/auth"
	"photogallery/internal/config"
	"photogallery/internal/events"
	"photogallery/internal/handlers"
	"photogallery/internal/middleware"
	"photogallery/internal/services"
	"photogallery/web"

	// Third-party
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SessionName is the session cookie name.
const SessionName = "gallery_session"

// Deps are the collaborators the router needs.
type Deps struct {
	Config    *config.Config
	Oracle    middleware.Oracle
	Publisher events.Publisher

	// GuardObserver, when set, sees every state of the route guard.
	GuardObserver func(c *gin.Context, s middleware.State)
}

// New builds the gin engine: shared header templates, sessions, and the route table.
//
//	/                        home              public
//	/login, /register        sign in / up      public
//	/upload                  upload            guarded
//	/my-collections          own collections   guarded
//	/gallery/:slug           gallery           public
//	anything else            redirect to /
func New(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	h := handlers.New(cfg, deps.Oracle, deps.Publisher)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Only the multipart part above this stays in memory, the rest goes to temp files.
	router.MaxMultipartMemory = handlers.MaxUploadSize

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	store := cookie.NewStore([]byte(cfg.CookieSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(SessionName, store))

	router.Static(strings.TrimSuffix(services.MediaPrefix, "/"), cfg.UploadPath)

	guard := &middleware.Guard{
		Oracle:    deps.Oracle,
		Identity:  auth.SessionEmail,
		Timeout:   cfg.AuthTimeout,
		LoginPath: "/login",
		Observe:   deps.GuardObserver,
		OnFailure: h.GuardFailure,
	}

	public := router.Group("/")
	{
		public.GET("/", h.ShowHome)
		public.GET("/login", h.ShowLoginPage)
		public.POST("/login", h.HandleLogin)
		public.GET("/register", h.ShowRegisterPage)
		public.POST("/register", h.HandleRegister)
		public.POST("/logout", h.HandleLogout)
		public.GET("/gallery/:slug", h.ShowGallery)
		public.GET("/healthz", h.Health)
	}

	api := router.Group("/api")
	{
		api.GET("/session", h.APISession)
		api.GET("/collections/:slug", h.APICollection)
	}

	protected := router.Group("/")
	protected.Use(guard.Handler())
	{
		protected.GET("/upload", h.ShowUploadPage)
		protected.POST("/upload", h.HandleUpload)
		protected.GET("/my-collections", h.ShowMyCollections)
		protected.POST("/my-collections/:slug/delete", h.HandleDeleteCollection)
	}

	// Unknown paths are not an error, they land on the home page.
	router.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})

	return router, nil
}
